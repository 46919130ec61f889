package reconcile

import (
	"context"
	"log/slog"

	"schema_reconciler/internal/config"
	"schema_reconciler/internal/db"
	"schema_reconciler/internal/diff"
	"schema_reconciler/internal/model"
	"schema_reconciler/internal/revision"
)

// Service runs reconciler operations against the configured database,
// opening a fresh connection per call and releasing it on every exit path.
type Service struct {
	cfg      config.Config
	declared model.Schema
	logger   *slog.Logger
}

// NewService builds a Service from loaded configuration and declared models.
func NewService(cfg config.Config, declared model.Schema, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, declared: declared, logger: logger}
}

// Status describes where the database stands relative to the defined
// history.
type Status struct {
	Provider      string  `json:"provider"`
	RevisionTable bool    `json:"revision_table"`
	Head          *int64  `json:"head,omitempty"`
	Applied       []int64 `json:"applied"`
	Pending       []int64 `json:"pending"`
}

// DiffReport describes declared-vs-live drift without changing anything.
type DiffReport struct {
	Drift      bool     `json:"drift"`
	Summary    string   `json:"summary"`
	Statements []string `json:"statements"`
}

// open connects an engine to the configured database. Read-only operations
// pass create=false so a missing revisions directory is read as an empty
// history instead of being created.
func (s *Service) open(create bool) (db.Adapter, *revision.Engine, error) {
	adapter, err := db.Open(s.cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	dir := revision.NewDirectory(s.cfg.Revisions.Directory)
	if create {
		dir, err = revision.OpenDirectory(s.cfg.Revisions.Directory)
		if err != nil {
			adapter.Close()
			return nil, nil, err
		}
	}
	engine := revision.NewEngine(adapter, dir, s.cfg.Revisions.Table, s.cfg.Database.Schema, s.logger)
	return adapter, engine, nil
}

// Status reports the applied and pending revision sets. It never mutates the
// database: an absent revision table is reported, not created.
func (s *Service) Status(ctx context.Context) (Status, error) {
	adapter, engine, err := s.open(false)
	if err != nil {
		return Status{}, err
	}
	defer adapter.Close()

	st := Status{Provider: adapter.Provider(), Applied: []int64{}, Pending: []int64{}}

	defined, err := engine.Defined()
	if err != nil {
		return st, err
	}
	if head, ok := defined.Max(); ok {
		st.Head = &head
	}

	st.RevisionTable, err = engine.HasRevisionTable(ctx)
	if err != nil {
		return st, err
	}

	applied := revision.NewSet()
	if st.RevisionTable {
		applied, err = engine.Applied(ctx)
		if err != nil {
			return st, err
		}
	}
	st.Applied = applied.Sorted()
	for _, v := range defined.Sorted() {
		if !applied.Contains(v) {
			st.Pending = append(st.Pending, v)
		}
	}
	return st, nil
}

// Diff reports drift between the declared models and the live schema, along
// with the DDL a generated revision would contain.
func (s *Service) Diff(ctx context.Context) (DiffReport, error) {
	adapter, engine, err := s.open(false)
	if err != nil {
		return DiffReport{}, err
	}
	defer adapter.Close()

	live, err := engine.LiveSchema(ctx)
	if err != nil {
		return DiffReport{}, err
	}
	d := diff.Compare(s.declared.Declared(), live)
	report := DiffReport{
		Drift:      d.HasChanges(),
		Summary:    diff.Describe(d),
		Statements: []string{},
	}
	if d.HasChanges() {
		opts := diff.Options{DropUnmanaged: s.cfg.Models.DropUnmanaged}
		report.Statements = diff.Statements(d, s.declared, adapter, opts)
	}
	return report, nil
}

// Reconcile runs the full reconcile-and-migrate operation once.
func (s *Service) Reconcile(ctx context.Context) (Summary, error) {
	adapter, engine, err := s.open(true)
	if err != nil {
		return Summary{}, err
	}
	defer adapter.Close()

	opts := diff.Options{DropUnmanaged: s.cfg.Models.DropUnmanaged}
	r := New(engine, s.declared, adapter, opts, "", s.logger)
	return r.Run(ctx)
}
