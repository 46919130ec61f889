package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type PostgresAdapter struct {
	db *sql.DB
}

func (p *PostgresAdapter) Provider() string { return "postgres" }

func (p *PostgresAdapter) Close() error { return p.db.Close() }

func (p *PostgresAdapter) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (p *PostgresAdapter) HasRevisionTable(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `
SELECT EXISTS (
  SELECT 1 FROM information_schema.tables
  WHERE table_schema = current_schema() AND table_name = $1
)`, table).Scan(&exists)
	return exists, err
}

func (p *PostgresAdapter) EnsureRevisionTable(ctx context.Context, table string) error {
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	version bigint PRIMARY KEY,
	name varchar(255) NOT NULL,
	stamped boolean NOT NULL DEFAULT false,
	applied_at timestamptz NOT NULL
);
`, p.QuoteIdent(table))
	_, err := p.db.ExecContext(ctx, stmt)
	return err
}

func (p *PostgresAdapter) AppliedRevisions(ctx context.Context, table string) ([]RevisionRow, error) {
	stmt := fmt.Sprintf(`SELECT version, name, stamped, applied_at FROM %s ORDER BY version`, p.QuoteIdent(table))
	rows, err := p.db.QueryContext(ctx, stmt)
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

func (p *PostgresAdapter) InsertRevision(ctx context.Context, table string, row RevisionRow) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (version, name, stamped, applied_at) VALUES ($1,$2,$3,$4)`, p.QuoteIdent(table))
	_, err := p.db.ExecContext(ctx, stmt, row.Version, row.Name, row.Stamped, row.AppliedAt)
	return err
}

func (p *PostgresAdapter) ApplyRevision(ctx context.Context, table string, row RevisionRow, script string) error {
	insert := fmt.Sprintf(`INSERT INTO %s (version, name, stamped, applied_at) VALUES ($1,$2,$3,$4)`, p.QuoteIdent(table))
	return applyRevision(ctx, p.db, insert, []any{row.Version, row.Name, row.Stamped, row.AppliedAt}, script)
}

func (p *PostgresAdapter) ExecScript(ctx context.Context, script string) error {
	for _, stmt := range splitStatements(script) {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresAdapter) FetchSchema(ctx context.Context, schema string) (Schema, error) {
	if schema == "" {
		schema = "public"
	}
	result := Schema{Tables: map[string]Table{}}

	tablesRows, err := p.db.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema=$1 AND table_type='BASE TABLE'`, schema)
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

	colsRows, err := p.db.QueryContext(ctx, `
SELECT table_name, column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema=$1`, schema)
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

	pkRows, err := p.db.QueryContext(ctx, `
SELECT tc.table_name, kcu.column_name, kcu.ordinal_position
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name
 AND tc.table_schema = kcu.table_schema
 AND tc.table_name = kcu.table_name
WHERE tc.table_schema=$1 AND tc.constraint_type='PRIMARY KEY'
ORDER BY kcu.ordinal_position`, schema)
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
