package encode

import (
	"fmt"
	"strings"
)

var (
	BlockTable = Table{
		Name:    "blocks",
		Columns: []string{"number", "hash", "timestamp"},
		Key:     "number",
	}

	TransactionTable = Table{
		Name: "transactions",
		Columns: []string{
			"hash", "nonce", "block_hash", "block_number", "transaction_index",
			"from", "to", "value", "gas", "gas_price",
		},
		Key: "hash",
	}
)

// Table describes the destination table of a record kind.
type Table struct {
	Name    string
	Columns []string // in encoding order
	Key     string   // conflict target for upsert
}

func quote(column string) string {
	return `"` + column + `"`
}

// ColumnList returns the quoted, comma separated column list.
func (t Table) ColumnList() string {
	quoted := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		quoted = append(quoted, quote(c))
	}

	return strings.Join(quoted, ", ")
}

// InsertHeader returns the statement prefix that value tuples are appended to.
func (t Table) InsertHeader() string {
	return fmt.Sprintf("INSERT INTO %v(%v) VALUES", t.Name, t.ColumnList())
}

// UpsertClause returns the conflict clause that overwrites every non-key column.
func (t Table) UpsertClause() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "ON CONFLICT (%v) DO UPDATE SET ", quote(t.Key))

	first := true
	for _, c := range t.Columns {
		if c == t.Key {
			continue
		}

		if !first {
			sb.WriteString(", ")
		}
		first = false

		fmt.Fprintf(&sb, "%v = excluded.%v", quote(c), quote(c))
	}

	return sb.String()
}

// CopyHeader returns the bulk loader command matching CopyValues lines.
func (t Table) CopyHeader() string {
	return fmt.Sprintf("COPY %v(%v) FROM STDIN NULL '%v'", t.Name, t.ColumnList(), NullToken)
}
