package diff

import (
	"fmt"
	"strings"

	"schema_reconciler/internal/model"
)

// Dialect supplies the provider-specific pieces needed to render DDL.
// db.Adapter satisfies it.
type Dialect interface {
	Provider() string
	QuoteIdent(name string) string
}

// Options tunes statement generation.
type Options struct {
	// DropUnmanaged emits DROP TABLE for tables not declared by any model.
	DropUnmanaged bool
}

// Statements renders a diff as forward DDL bringing the database in line
// with the declared models. Some differences cannot be expressed as plain
// DDL on every provider (primary-key changes everywhere, column type changes
// on sqlite); those are skipped here and surface only through Describe.
func Statements(d SchemaDiff, declared model.Schema, dialect Dialect, opts Options) []string {
	var stmts []string

	for _, name := range d.MissingTables {
		table, ok := declared.TableByName(name)
		if !ok {
			continue
		}
		stmts = append(stmts, createTable(table, dialect))
	}

	tableNames := sortedKeys(d.Tables)
	for _, name := range tableNames {
		td := d.Tables[name]
		qt := dialect.QuoteIdent(name)

		for _, col := range td.MissingColumns {
			decl, ok := declared.Column(name, col)
			if !ok {
				continue
			}
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", qt, columnDef(decl, dialect)))
		}
		for _, col := range td.ExtraColumns {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", qt, dialect.QuoteIdent(col)))
		}
		for _, ch := range td.Changed {
			decl, ok := declared.Column(name, ch.Name)
			if !ok {
				continue
			}
			stmts = append(stmts, alterColumn(qt, decl, ch, dialect)...)
		}
	}

	if opts.DropUnmanaged {
		for _, name := range d.UnmanagedTables {
			stmts = append(stmts, fmt.Sprintf("DROP TABLE %s;", dialect.QuoteIdent(name)))
		}
	}
	return stmts
}

func createTable(t model.Table, dialect Dialect) string {
	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, "\t"+columnDef(c, dialect))
	}
	if len(t.PrimaryKey) > 0 {
		quoted := make([]string, len(t.PrimaryKey))
		for i, pk := range t.PrimaryKey {
			quoted[i] = dialect.QuoteIdent(pk)
		}
		lines = append(lines, fmt.Sprintf("\tPRIMARY KEY (%s)", strings.Join(quoted, ", ")))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);", dialect.QuoteIdent(t.Name), strings.Join(lines, ",\n"))
}

// columnDef renders one column declaration. Default values are raw SQL
// expressions as written in the model declaration.
func columnDef(c model.Column, dialect Dialect) string {
	def := fmt.Sprintf("%s %s", dialect.QuoteIdent(c.Name), c.Type)
	if !c.Nullable {
		def += " NOT NULL"
	}
	if c.Default != "" {
		def += " DEFAULT " + c.Default
	}
	return def
}

func alterColumn(qt string, decl model.Column, ch ColumnChange, dialect Dialect) []string {
	switch dialect.Provider() {
	case "mysql":
		return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s;", qt, columnDef(decl, dialect))}
	case "postgres":
		qc := dialect.QuoteIdent(decl.Name)
		var stmts []string
		if normalizeType(ch.Model.DataType) != normalizeType(ch.Live.DataType) {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s;", qt, qc, decl.Type))
		}
		if ch.Model.IsNullable != ch.Live.IsNullable {
			if decl.Nullable {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;", qt, qc))
			} else {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", qt, qc))
			}
		}
		if normalizeDefault(ch.Model.DefaultValue.String) != normalizeDefault(ch.Live.DefaultValue.String) {
			if decl.Default == "" {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", qt, qc))
			} else {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", qt, qc, decl.Default))
			}
		}
		return stmts
	default:
		// sqlite cannot alter column attributes in place.
		return nil
	}
}
