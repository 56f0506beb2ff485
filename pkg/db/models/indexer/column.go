package indexer

import (
	"fmt"
	"strings"
)

// ColumnDef defines a single column for a table.
// This is the single source of truth for column definitions, used by:
// - Schema bootstrap (Table.CreateSQL, run by pkg/db/postgres/indexer/db.go)
// - Upsert statement generation (pkg/db/postgres/upsert.go)
type ColumnDef struct {
	// Name is the column name
	Name string

	// Type is the PostgreSQL data type including constraints (e.g., "BYTEA NOT NULL", "BIGINT")
	Type string

	// Key marks the conflict key of the table. Exactly one column per table is the key.
	Key bool
}

// SQL returns the full column definition for CREATE TABLE statements.
// Example: "id BYTEA NOT NULL PRIMARY KEY"
func (c ColumnDef) SQL() string {
	if c.Key {
		return fmt.Sprintf("%s %s PRIMARY KEY", c.Name, c.Type)
	}
	return fmt.Sprintf("%s %s", c.Name, c.Type)
}

// Validate checks if the column definition is valid.
func (c ColumnDef) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if c.Type == "" {
		return fmt.Errorf("column %s: type cannot be empty", c.Name)
	}
	return nil
}

// ColumnsToSchemaSQL converts a list of ColumnDef to a CREATE TABLE schema string.
func ColumnsToSchemaSQL(columns []ColumnDef) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, col.SQL())
	}
	return strings.Join(parts, ",\n\t\t\t")
}

// ColumnsToNameList extracts just the column names from a list of ColumnDef.
func ColumnsToNameList(columns []ColumnDef) []string {
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		names = append(names, col.Name)
	}
	return names
}

// Table is the declaration of one pipeline's output table.
type Table struct {
	Name    string
	Columns []ColumnDef
}

// KeyColumn returns the conflict key column.
func (t Table) KeyColumn() ColumnDef {
	for _, c := range t.Columns {
		if c.Key {
			return c
		}
	}
	return ColumnDef{}
}

// NonKeyColumns returns every column except the key, in declaration order.
func (t Table) NonKeyColumns() []ColumnDef {
	out := make([]ColumnDef, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Key {
			out = append(out, c)
		}
	}
	return out
}

// CreateSQL returns the idempotent DDL for the table.
func (t Table) CreateSQL() string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t\t\t%s\n\t\t)", t.Name, ColumnsToSchemaSQL(t.Columns))
}

// Validate checks that the table has a name, valid columns and exactly one key column.
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	keys := 0
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("table %s: duplicate column %s", t.Name, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Key {
			keys++
		}
	}
	if keys != 1 {
		return fmt.Errorf("table %s: expected exactly one key column, got %d", t.Name, keys)
	}
	return nil
}

// Row is one record destined for a Table. Values are ordered like Table.Columns.
type Row interface {
	// Key identifies the row for in-batch deduplication.
	Key() string
	Values() []any
}
