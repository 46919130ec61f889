package revision

import (
	"context"
	"fmt"
	"time"

	"schema_reconciler/internal/db"
)

// Logger is the subset of slog the engine needs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Engine sequences revision operations against one database: stamp, upgrade,
// generate. It owns neither the adapter nor its connection lifetime; the
// caller opens and closes the adapter.
type Engine struct {
	adapter db.Adapter
	dir     *Directory
	table   string
	schema  string
	logger  Logger
}

// NewEngine builds an Engine over an open adapter and a revision directory.
// table is the bookkeeping table name; schema is the database schema to
// introspect (provider default when empty).
func NewEngine(adapter db.Adapter, dir *Directory, table, schema string, logger Logger) *Engine {
	return &Engine{
		adapter: adapter,
		dir:     dir,
		table:   table,
		schema:  schema,
		logger:  logger,
	}
}

// Directory returns the engine's revision directory.
func (e *Engine) Directory() *Directory { return e.dir }

// HasRevisionTable reports whether the database carries the revision
// bookkeeping table at all. Its absence means the database has never been
// under revision control.
func (e *Engine) HasRevisionTable(ctx context.Context) (bool, error) {
	return e.adapter.HasRevisionTable(ctx, e.table)
}

// Applied returns the set of revisions the database records as applied or
// stamped, creating the bookkeeping table if necessary.
func (e *Engine) Applied(ctx context.Context) (Set, error) {
	if err := e.adapter.EnsureRevisionTable(ctx, e.table); err != nil {
		return nil, fmt.Errorf("ensure revision table: %w", err)
	}
	rows, err := e.adapter.AppliedRevisions(ctx, e.table)
	if err != nil {
		return nil, fmt.Errorf("query applied revisions: %w", err)
	}
	set := make(Set, len(rows))
	for _, r := range rows {
		set[r.Version] = struct{}{}
	}
	return set, nil
}

// Defined returns the set of revisions defined in the directory.
func (e *Engine) Defined() (Set, error) {
	return e.dir.Defined()
}

// Head returns the latest defined revision.
func (e *Engine) Head() (Revision, bool, error) {
	return e.dir.Head()
}

// Stamp marks every defined revision up to target as applied without
// executing any script.
func (e *Engine) Stamp(ctx context.Context, target Revision) error {
	if err := e.adapter.EnsureRevisionTable(ctx, e.table); err != nil {
		return fmt.Errorf("ensure revision table: %w", err)
	}
	applied, err := e.Applied(ctx)
	if err != nil {
		return err
	}
	revs, err := e.dir.Revisions()
	if err != nil {
		return err
	}
	for _, rev := range revs {
		if rev.Version > target.Version || applied.Contains(rev.Version) {
			continue
		}
		row := db.RevisionRow{
			Version:   rev.Version,
			Name:      rev.Name,
			Stamped:   true,
			AppliedAt: time.Now().UTC(),
		}
		if err := e.adapter.InsertRevision(ctx, e.table, row); err != nil {
			return fmt.Errorf("stamp revision %d: %w", rev.Version, err)
		}
		e.logger.Info("revision stamped", "version", rev.Version, "name", rev.Name)
	}
	return nil
}

// Upgrade applies every pending revision up to target in version order, each
// inside its own transaction together with its bookkeeping row. It returns
// the revisions actually applied.
func (e *Engine) Upgrade(ctx context.Context, target Revision) ([]Revision, error) {
	if err := e.adapter.EnsureRevisionTable(ctx, e.table); err != nil {
		return nil, fmt.Errorf("ensure revision table: %w", err)
	}
	applied, err := e.Applied(ctx)
	if err != nil {
		return nil, err
	}
	revs, err := e.dir.Revisions()
	if err != nil {
		return nil, err
	}

	var done []Revision
	for _, rev := range revs {
		if rev.Version > target.Version || applied.Contains(rev.Version) {
			continue
		}
		script, err := e.dir.ReadScript(rev)
		if err != nil {
			return done, err
		}
		row := db.RevisionRow{
			Version:   rev.Version,
			Name:      rev.Name,
			AppliedAt: time.Now().UTC(),
		}
		if err := e.adapter.ApplyRevision(ctx, e.table, row, script); err != nil {
			e.logger.Error("revision failed", "version", rev.Version, "name", rev.Name, "error", err)
			return done, fmt.Errorf("apply revision %d (%s): %w", rev.Version, rev.Name, err)
		}
		e.logger.Info("revision applied", "version", rev.Version, "name", rev.Name)
		done = append(done, rev)
	}
	return done, nil
}

// Generate writes a new revision file from the given statements without
// applying it.
func (e *Engine) Generate(message string, statements []string) (Revision, error) {
	rev, err := e.dir.Write(message, statements)
	if err != nil {
		return Revision{}, err
	}
	e.logger.Info("revision generated", "version", rev.Version, "name", rev.Name, "file", rev.Filename)
	return rev, nil
}

// LiveSchema introspects the database, excluding the revision bookkeeping
// table which is never part of the declared models.
func (e *Engine) LiveSchema(ctx context.Context) (db.Schema, error) {
	schema, err := e.adapter.FetchSchema(ctx, e.schema)
	if err != nil {
		return schema, fmt.Errorf("introspect schema: %w", err)
	}
	delete(schema.Tables, e.table)
	return schema, nil
}
