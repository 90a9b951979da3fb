package postgres

import (
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema migrations, which creates the blocks and transactions
// tables and the view_last_block view.
//
// A dedicated connection is used, since the migrate driver holds it until closed.
func Migrate(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return errors.WithMessage(err, "Failed to open postgres database for migration")
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		db.Close()
		return errors.WithMessage(err, "Failed to load migrations")
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		source.Close()
		db.Close()
		return errors.WithMessage(err, "Failed to create migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return errors.WithMessage(err, "Failed to create migration")
	}
	defer m.Close()

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.WithMessage(err, "Failed to apply migrations")
	}

	version, dirty, _ := m.Version()
	logrus.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("Postgres migrations applied")

	return nil
}
