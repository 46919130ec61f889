// Package diff compares the declared model schema against a live database
// schema and renders the difference as DDL for a generated revision.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"schema_reconciler/internal/db"
)

// SchemaDiff describes how a live database deviates from the declared models.
type SchemaDiff struct {
	// MissingTables are declared but absent from the database.
	MissingTables []string
	// UnmanagedTables exist in the database but are not declared.
	UnmanagedTables []string
	// Tables holds per-table differences for tables present on both sides.
	Tables map[string]TableDiff
}

// TableDiff captures per-table differences.
type TableDiff struct {
	// MissingColumns are declared but absent from the live table.
	MissingColumns []string
	// ExtraColumns exist in the live table but are not declared.
	ExtraColumns    []string
	Changed         []ColumnChange
	PrimaryKeyModel []string
	PrimaryKeyLive  []string
	PrimaryKeyDiff  bool
}

// ColumnChange marks a column present on both sides but with different
// attributes.
type ColumnChange struct {
	Name  string
	Model db.Column
	Live  db.Column
}

// Compare builds a diff of the live schema against the declared one. The
// declared schema is canonical: missing means "must be added to the
// database", extra means "not declared by any model".
func Compare(declared, live db.Schema) SchemaDiff {
	res := SchemaDiff{
		Tables: map[string]TableDiff{},
	}

	declaredTables := sortedKeys(declared.Tables)
	liveTables := sortedKeys(live.Tables)

	res.MissingTables = difference(declaredTables, liveTables)
	res.UnmanagedTables = difference(liveTables, declaredTables)

	for name, modelTable := range declared.Tables {
		liveTable, ok := live.Tables[name]
		if !ok {
			continue
		}
		td := TableDiff{}
		td.PrimaryKeyModel = append([]string{}, modelTable.PrimaryKey...)
		td.PrimaryKeyLive = append([]string{}, liveTable.PrimaryKey...)
		if !equalStringSlices(modelTable.PrimaryKey, liveTable.PrimaryKey) {
			td.PrimaryKeyDiff = true
		}

		modelCols := sortedKeys(modelTable.Columns)
		liveCols := sortedKeys(liveTable.Columns)
		td.MissingColumns = difference(modelCols, liveCols)
		td.ExtraColumns = difference(liveCols, modelCols)

		for _, colName := range modelCols {
			modelCol := modelTable.Columns[colName]
			liveCol, ok := liveTable.Columns[colName]
			if !ok {
				continue
			}
			if !columnsEqual(modelCol, liveCol) {
				td.Changed = append(td.Changed, ColumnChange{Name: colName, Model: modelCol, Live: liveCol})
			}
		}
		if td.PrimaryKeyDiff || len(td.MissingColumns) > 0 || len(td.ExtraColumns) > 0 || len(td.Changed) > 0 {
			res.Tables[name] = td
		}
	}
	return res
}

func columnsEqual(model, live db.Column) bool {
	return normalizeType(model.DataType) == normalizeType(live.DataType) &&
		model.IsNullable == live.IsNullable &&
		normalizeDefault(model.DefaultValue.String) == normalizeDefault(live.DefaultValue.String)
}

// typeAliases maps provider spellings onto one canonical form so that a
// model declaring "int" does not drift against a database reporting
// "integer".
var typeAliases = map[string]string{
	"int":                         "integer",
	"int4":                        "integer",
	"int8":                        "bigint",
	"bool":                        "boolean",
	"tinyint(1)":                  "boolean",
	"float8":                      "double precision",
	"float4":                      "real",
	"datetime":                    "timestamp",
	"datetime(6)":                 "timestamp",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamptz",
}

func normalizeType(t string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(t), " "))
	if strings.HasPrefix(norm, "character varying") {
		norm = "varchar" + strings.TrimPrefix(norm, "character varying")
	}
	norm = stripDisplayWidth(norm)
	if alias, ok := typeAliases[norm]; ok {
		return alias
	}
	return norm
}

// stripDisplayWidth drops the integer display width mysql servers before
// 8.0.19 report in column_type: int(11) -> int, bigint(20) -> bigint. The
// width is cosmetic for integer types, unlike varchar/decimal where it is
// part of the type. tinyint(1) is left alone: it is mysql's boolean.
func stripDisplayWidth(t string) string {
	if t == "tinyint(1)" {
		return t
	}
	base, rest, ok := strings.Cut(t, "(")
	if !ok {
		return t
	}
	switch base {
	case "tinyint", "smallint", "mediumint", "int", "integer", "bigint":
		if i := strings.Index(rest, ")"); i >= 0 {
			return base + rest[i+1:]
		}
	}
	return t
}

// normalizeDefault strips the noise providers add around default
// expressions: postgres appends ::type casts, mysql strips quoting.
func normalizeDefault(val string) string {
	v := strings.TrimSpace(val)
	if i := strings.Index(v, "::"); i >= 0 {
		v = v[:i]
	}
	v = strings.Trim(v, "'")
	return strings.ToLower(v)
}

// Describe returns a human-readable summary of differences.
func Describe(d SchemaDiff) string {
	if !d.HasChanges() {
		return "schema matches declared models"
	}

	var lines []string
	if len(d.MissingTables) > 0 {
		lines = append(lines, fmt.Sprintf("Tables missing from database: %s", strings.Join(d.MissingTables, ", ")))
	}
	if len(d.UnmanagedTables) > 0 {
		lines = append(lines, fmt.Sprintf("Tables not declared by any model: %s", strings.Join(d.UnmanagedTables, ", ")))
	}

	tableNames := make([]string, 0, len(d.Tables))
	for name := range d.Tables {
		tableNames = append(tableNames, name)
	}
	sort.Strings(tableNames)

	for _, name := range tableNames {
		td := d.Tables[name]
		if len(td.MissingColumns) > 0 {
			lines = append(lines, fmt.Sprintf("Table %s: columns missing from database: %s", name, strings.Join(td.MissingColumns, ", ")))
		}
		if len(td.ExtraColumns) > 0 {
			lines = append(lines, fmt.Sprintf("Table %s: columns not declared: %s", name, strings.Join(td.ExtraColumns, ", ")))
		}
		for _, ch := range td.Changed {
			lines = append(lines, fmt.Sprintf("Table %s column %s differs (model: %s NULL:%v DEFAULT:%s | database: %s NULL:%v DEFAULT:%s)",
				name,
				ch.Name,
				ch.Model.DataType, ch.Model.IsNullable, normalizeDefault(ch.Model.DefaultValue.String),
				ch.Live.DataType, ch.Live.IsNullable, normalizeDefault(ch.Live.DefaultValue.String)))
		}
		if td.PrimaryKeyDiff {
			lines = append(lines, fmt.Sprintf("Table %s primary key differs (model: %v | database: %v)", name, td.PrimaryKeyModel, td.PrimaryKeyLive))
		}
	}
	return strings.Join(lines, "\n")
}

// HasChanges reports whether the diff contains meaningful differences.
func (d SchemaDiff) HasChanges() bool {
	return len(d.MissingTables) > 0 || len(d.UnmanagedTables) > 0 || len(d.Tables) > 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func difference(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
