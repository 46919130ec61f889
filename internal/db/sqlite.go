package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
)

type SQLiteAdapter struct {
	db *sql.DB
}

func (s *SQLiteAdapter) Provider() string { return "sqlite" }

func (s *SQLiteAdapter) Close() error { return s.db.Close() }

func (s *SQLiteAdapter) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *SQLiteAdapter) HasRevisionTable(ctx context.Context, table string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
	return count > 0, err
}

func (s *SQLiteAdapter) EnsureRevisionTable(ctx context.Context, table string) error {
	stmt := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	version integer PRIMARY KEY,
	name text NOT NULL,
	stamped integer NOT NULL DEFAULT 0,
	applied_at text NOT NULL
);
`, s.QuoteIdent(table))
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *SQLiteAdapter) AppliedRevisions(ctx context.Context, table string) ([]RevisionRow, error) {
	stmt := fmt.Sprintf(`SELECT version, name, stamped, applied_at FROM %s ORDER BY version`, s.QuoteIdent(table))
	rows, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RevisionRow
	for rows.Next() {
		var (
			r       RevisionRow
			applied string
		)
		if err := rows.Scan(&r.Version, &r.Name, &r.Stamped, &applied); err != nil {
			return nil, err
		}
		// applied_at is stored as RFC3339 text; sqlite has no native
		// timestamp type.
		t, err := time.Parse(time.RFC3339Nano, applied)
		if err != nil {
			return nil, fmt.Errorf("parse applied_at for revision %d: %w", r.Version, err)
		}
		r.AppliedAt = t
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteAdapter) InsertRevision(ctx context.Context, table string, row RevisionRow) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (version, name, stamped, applied_at) VALUES (?,?,?,?)`, s.QuoteIdent(table))
	_, err := s.db.ExecContext(ctx, stmt, row.Version, row.Name, row.Stamped, row.AppliedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteAdapter) ApplyRevision(ctx context.Context, table string, row RevisionRow, script string) error {
	insert := fmt.Sprintf(`INSERT INTO %s (version, name, stamped, applied_at) VALUES (?,?,?,?)`, s.QuoteIdent(table))
	args := []any{row.Version, row.Name, row.Stamped, row.AppliedAt.UTC().Format(time.RFC3339Nano)}
	return applyRevision(ctx, s.db, insert, args, script)
}

func (s *SQLiteAdapter) ExecScript(ctx context.Context, script string) error {
	for _, stmt := range splitStatements(script) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// FetchSchema ignores the schema argument; sqlite databases have a single
// implicit schema.
func (s *SQLiteAdapter) FetchSchema(ctx context.Context, _ string) (Schema, error) {
	result := Schema{Tables: map[string]Table{}}

	tablesRows, err := s.db.QueryContext(ctx, `
SELECT name FROM sqlite_master
WHERE type='table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return result, err
	}
	defer tablesRows.Close()

	var names []string
	for tablesRows.Next() {
		var name string
		if err := tablesRows.Scan(&name); err != nil {
			return result, err
		}
		names = append(names, name)
	}
	if err := tablesRows.Err(); err != nil {
		return result, err
	}

	for _, name := range names {
		table, err := s.fetchTable(ctx, name)
		if err != nil {
			return result, err
		}
		result.Tables[name] = table
	}
	return result, nil
}

func (s *SQLiteAdapter) fetchTable(ctx context.Context, name string) (Table, error) {
	table := Table{
		Name:       name,
		Columns:    map[string]Column{},
		PrimaryKey: []string{},
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, s.QuoteIdent(name)))
	if err != nil {
		return table, err
	}
	defer rows.Close()

	type pkCol struct {
		pos  int
		name string
	}
	var pk []pkCol

	for rows.Next() {
		var (
			cid      int
			colName  string
			dataType string
			notNull  int
			def      sql.NullString
			pkPos    int
		)
		if err := rows.Scan(&cid, &colName, &dataType, &notNull, &def, &pkPos); err != nil {
			return table, err
		}
		table.Columns[colName] = Column{
			Name:         colName,
			DataType:     dataType,
			IsNullable:   notNull == 0,
			DefaultValue: def,
		}
		if pkPos > 0 {
			pk = append(pk, pkCol{pos: pkPos, name: colName})
		}
	}
	if err := rows.Err(); err != nil {
		return table, err
	}

	sort.Slice(pk, func(i, j int) bool { return pk[i].pos < pk[j].pos })
	for _, c := range pk {
		table.PrimaryKey = append(table.PrimaryKey, c.name)
	}
	return table, nil
}
