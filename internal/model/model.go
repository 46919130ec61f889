// Package model holds the application's declared data models: the schema
// the database is expected to match. Models are read-only inputs to the
// reconciler; they can be declared as tagged Go structs or loaded from a
// YAML file.
package model

import (
	"database/sql"
	"fmt"
	"sort"

	"schema_reconciler/internal/db"
)

// Column declares one column of a declared table.
type Column struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
	Default  string `yaml:"default"`
}

// Table declares one table.
type Table struct {
	Name       string   `yaml:"name"`
	Columns    []Column `yaml:"columns"`
	PrimaryKey []string `yaml:"primary_key"`
}

// Schema is the full set of declared tables.
type Schema struct {
	Tables []Table `yaml:"tables"`
}

// Declared converts the declared models into the introspection shape used
// for diffing against a live database.
func (s Schema) Declared() db.Schema {
	out := db.Schema{Tables: map[string]db.Table{}}
	for _, t := range s.Tables {
		table := db.Table{
			Name:       t.Name,
			Columns:    map[string]db.Column{},
			PrimaryKey: append([]string{}, t.PrimaryKey...),
		}
		for _, c := range t.Columns {
			table.Columns[c.Name] = db.Column{
				Name:         c.Name,
				DataType:     c.Type,
				IsNullable:   c.Nullable,
				DefaultValue: sql.NullString{Valid: c.Default != "", String: c.Default},
			}
		}
		out.Tables[t.Name] = table
	}
	return out
}

// Validate checks the declaration for empty names, duplicate tables or
// columns, and primary-key references to unknown columns.
func (s Schema) Validate() error {
	seenTables := map[string]struct{}{}
	for _, t := range s.Tables {
		if t.Name == "" {
			return fmt.Errorf("declared table with empty name")
		}
		if _, ok := seenTables[t.Name]; ok {
			return fmt.Errorf("duplicate declared table %s", t.Name)
		}
		seenTables[t.Name] = struct{}{}

		seenCols := map[string]struct{}{}
		for _, c := range t.Columns {
			if c.Name == "" {
				return fmt.Errorf("table %s: column with empty name", t.Name)
			}
			if c.Type == "" {
				return fmt.Errorf("table %s: column %s has no type", t.Name, c.Name)
			}
			if _, ok := seenCols[c.Name]; ok {
				return fmt.Errorf("table %s: duplicate column %s", t.Name, c.Name)
			}
			seenCols[c.Name] = struct{}{}
		}
		for _, pk := range t.PrimaryKey {
			if _, ok := seenCols[pk]; !ok {
				return fmt.Errorf("table %s: primary key column %s is not declared", t.Name, pk)
			}
		}
	}
	return nil
}

// Column returns a declared column by table and column name.
func (s Schema) Column(table, column string) (Column, bool) {
	for _, t := range s.Tables {
		if t.Name != table {
			continue
		}
		for _, c := range t.Columns {
			if c.Name == column {
				return c, true
			}
		}
	}
	return Column{}, false
}

// TableByName returns a declared table by name.
func (s Schema) TableByName(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

func (s *Schema) sortTables() {
	sort.Slice(s.Tables, func(i, j int) bool {
		return s.Tables[i].Name < s.Tables[j].Name
	})
}
