package db

import (
	"database/sql"
	"time"
)

// Schema holds the introspected structure of a database.
type Schema struct {
	Tables map[string]Table
}

// Table describes a table and its columns.
type Table struct {
	Name       string
	Columns    map[string]Column
	PrimaryKey []string
}

// Column describes a table column.
type Column struct {
	Name         string
	DataType     string
	IsNullable   bool
	DefaultValue sql.NullString
}

// RevisionRow is one bookkeeping row in the revision table. Stamped rows
// record revisions that were marked as applied without executing their
// scripts.
type RevisionRow struct {
	Version   int64
	Name      string
	Stamped   bool
	AppliedAt time.Time
}
