package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type MySQLAdapter struct {
	db *sql.DB
}

func (m *MySQLAdapter) Provider() string { return "mysql" }

func (m *MySQLAdapter) Close() error { return m.db.Close() }

func (m *MySQLAdapter) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (m *MySQLAdapter) HasRevisionTable(ctx context.Context, table string) (bool, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_name = ?`, table).Scan(&count)
	return count > 0, err
}

func (m *MySQLAdapter) EnsureRevisionTable(ctx context.Context, table string) error {
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	version bigint PRIMARY KEY,
	name varchar(255) NOT NULL,
	stamped tinyint(1) NOT NULL DEFAULT 0,
	applied_at datetime(6) NOT NULL
) ENGINE=InnoDB;
`, m.QuoteIdent(table))
	_, err := m.db.ExecContext(ctx, stmt)
	return err
}

func (m *MySQLAdapter) AppliedRevisions(ctx context.Context, table string) ([]RevisionRow, error) {
	stmt := fmt.Sprintf(`SELECT version, name, stamped, applied_at FROM %s ORDER BY version`, m.QuoteIdent(table))
	rows, err := m.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RevisionRow
	for rows.Next() {
		var r RevisionRow
		if err := rows.Scan(&r.Version, &r.Name, &r.Stamped, &r.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) InsertRevision(ctx context.Context, table string, row RevisionRow) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (version, name, stamped, applied_at) VALUES (?,?,?,?)`, m.QuoteIdent(table))
	_, err := m.db.ExecContext(ctx, stmt, row.Version, row.Name, row.Stamped, row.AppliedAt)
	return err
}

func (m *MySQLAdapter) ApplyRevision(ctx context.Context, table string, row RevisionRow, script string) error {
	insert := fmt.Sprintf(`INSERT INTO %s (version, name, stamped, applied_at) VALUES (?,?,?,?)`, m.QuoteIdent(table))
	return applyRevision(ctx, m.db, insert, []any{row.Version, row.Name, row.Stamped, row.AppliedAt}, script)
}

func (m *MySQLAdapter) ExecScript(ctx context.Context, script string) error {
	for _, stmt := range splitStatements(script) {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *MySQLAdapter) FetchSchema(ctx context.Context, schema string) (Schema, error) {
	schemaName := strings.TrimSpace(schema)
	if schemaName == "" {
		if err := m.db.QueryRowContext(ctx, `SELECT DATABASE()`).Scan(&schemaName); err != nil {
			return Schema{Tables: map[string]Table{}}, err
		}
	}
	result := Schema{Tables: map[string]Table{}}

	tablesRows, err := m.db.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema=? AND table_type='BASE TABLE'`, schemaName)
	if err != nil {
		return result, err
	}
	defer tablesRows.Close()

	for tablesRows.Next() {
		var name string
		if err := tablesRows.Scan(&name); err != nil {
			return result, err
		}
		result.Tables[name] = Table{
			Name:       name,
			Columns:    map[string]Column{},
			PrimaryKey: []string{},
		}
	}
	if err := tablesRows.Err(); err != nil {
		return result, err
	}

	colsRows, err := m.db.QueryContext(ctx, `
SELECT table_name, column_name, column_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema=?`, schemaName)
	if err != nil {
		return result, err
	}
	defer colsRows.Close()

	for colsRows.Next() {
		var tbl, col, dataType, nullable string
		var def sql.NullString
		if err := colsRows.Scan(&tbl, &col, &dataType, &nullable, &def); err != nil {
			return result, err
		}
		t, ok := result.Tables[tbl]
		if !ok {
			continue
		}
		t.Columns[col] = Column{
			Name:         col,
			DataType:     dataType,
			IsNullable:   strings.EqualFold(nullable, "YES"),
			DefaultValue: def,
		}
		result.Tables[tbl] = t
	}
	if err := colsRows.Err(); err != nil {
		return result, err
	}

	pkRows, err := m.db.QueryContext(ctx, `
SELECT tc.table_name, kcu.column_name, kcu.ordinal_position
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
 ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
 AND tc.table_name = kcu.table_name
WHERE tc.table_schema=? AND tc.constraint_type='PRIMARY KEY'
ORDER BY kcu.ordinal_position`, schemaName)
	if err != nil {
		return result, err
	}
	defer pkRows.Close()

	for pkRows.Next() {
		var tbl, col string
		var pos int
		if err := pkRows.Scan(&tbl, &col, &pos); err != nil {
			return result, err
		}
		t, ok := result.Tables[tbl]
		if !ok {
			continue
		}
		t.PrimaryKey = append(t.PrimaryKey, col)
		result.Tables[tbl] = t
	}
	return result, pkRows.Err()
}
