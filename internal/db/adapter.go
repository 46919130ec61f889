package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"schema_reconciler/internal/config"
)

// Adapter abstracts provider-specific behavior.
type Adapter interface {
	Provider() string
	Close() error
	QuoteIdent(name string) string
	HasRevisionTable(ctx context.Context, table string) (bool, error)
	EnsureRevisionTable(ctx context.Context, table string) error
	AppliedRevisions(ctx context.Context, table string) ([]RevisionRow, error)
	InsertRevision(ctx context.Context, table string, row RevisionRow) error
	ApplyRevision(ctx context.Context, table string, row RevisionRow, script string) error
	ExecScript(ctx context.Context, script string) error
	FetchSchema(ctx context.Context, schema string) (Schema, error)
}

// Open builds an adapter for the given configuration.
func Open(cfg config.DBConfig) (Adapter, error) {
	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case "postgres":
		db, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, err
		}
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetMaxOpenConns(5)
		return &PostgresAdapter{db: db}, nil
	case "mysql":
		// Validate DSN early to provide actionable errors.
		if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		db, err := sql.Open("mysql", cfg.DSN)
		if err != nil {
			return nil, err
		}
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetMaxOpenConns(5)
		return &MySQLAdapter{db: db}, nil
	case "sqlite":
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, err
		}
		// The modernc driver misbehaves with concurrent writers on a
		// single file database.
		db.SetMaxOpenConns(1)
		return &SQLiteAdapter{db: db}, nil
	default:
		return nil, fmt.Errorf("unsupported provider %s", cfg.Provider)
	}
}

// applyRevision runs a revision script and records its bookkeeping row in a
// single transaction. MySQL DDL commits implicitly, so the transaction only
// guarantees atomicity where the engine supports transactional DDL.
func applyRevision(ctx context.Context, db *sql.DB, insertStmt string, insertArgs []any, script string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range splitStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, insertStmt, insertArgs...); err != nil {
		return fmt.Errorf("record revision: %w", err)
	}
	return tx.Commit()
}

// splitStatements is a small helper shared by all providers to avoid driver
// differences around multi-statements.
func splitStatements(sqlText string) []string {
	var (
		out      []string
		current  strings.Builder
		inSingle bool
		inDouble bool
	)

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			out = append(out, stmt)
		}
		current.Reset()
	}

	for _, r := range sqlText {
		switch r {
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}
		case ';':
			if !inSingle && !inDouble {
				flush()
				continue
			}
		}
		current.WriteRune(r)
	}
	flush()
	return out
}
