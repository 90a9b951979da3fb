package encode

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode selects how records are rendered and how transactions are written.
type Mode int

const (
	// Insert renders SQL value tuples, written with an idempotent upsert.
	Insert Mode = iota
	// Copy renders tab separated lines for an append-only bulk loader.
	Copy
)

func (m Mode) String() string {
	switch m {
	case Insert:
		return "insert"
	case Copy:
		return "copy"
	default:
		return "unknown"
	}
}

// ParseMode parses the configured write mode, case insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "insert":
		return Insert, nil
	case "copy":
		return Copy, nil
	default:
		return Insert, errors.Errorf("invalid write mode %q, expected insert or copy", s)
	}
}
