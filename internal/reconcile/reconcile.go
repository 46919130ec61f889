// Package reconcile sequences the migration engine to bring a database in
// line with the declared models: stamp an unversioned database, apply
// pending revisions, then diff and generate a revision for any drift.
package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"schema_reconciler/internal/db"
	"schema_reconciler/internal/diff"
	"schema_reconciler/internal/model"
	"schema_reconciler/internal/revision"
)

// Migrator is the migration-framework boundary the reconciler sequences. It
// is satisfied by *revision.Engine and by fakes in tests.
type Migrator interface {
	HasRevisionTable(ctx context.Context) (bool, error)
	Applied(ctx context.Context) (revision.Set, error)
	Head() (revision.Revision, bool, error)
	Stamp(ctx context.Context, target revision.Revision) error
	Upgrade(ctx context.Context, target revision.Revision) ([]revision.Revision, error)
	Generate(message string, statements []string) (revision.Revision, error)
	LiveSchema(ctx context.Context) (db.Schema, error)
}

// Logger is the subset of slog the reconciler needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Summary reports what one reconciliation run did.
type Summary struct {
	RunID uuid.UUID `json:"run_id"`
	// Stamped is set when an unversioned database was marked at head
	// without running any scripts.
	Stamped *revision.Revision `json:"stamped,omitempty"`
	// Upgraded lists pre-existing revisions applied to catch up to head.
	Upgraded []revision.Revision `json:"upgraded,omitempty"`
	// Drift reports whether the live schema differed from the declared
	// models, with a human-readable description.
	Drift        bool   `json:"drift"`
	DriftSummary string `json:"drift_summary,omitempty"`
	// Generated is the revision written for detected drift, and
	// DriftApplied the revisions applied to resolve it.
	Generated    *revision.Revision  `json:"generated,omitempty"`
	DriftApplied []revision.Revision `json:"drift_applied,omitempty"`
}

// NoOp reports whether the run changed nothing.
func (s Summary) NoOp() bool {
	return s.Stamped == nil && len(s.Upgraded) == 0 && s.Generated == nil && !s.Drift
}

// Reconciler runs the reconcile-and-migrate operation. All collaborators are
// explicit parameters so tests can substitute fakes.
type Reconciler struct {
	migrator Migrator
	declared model.Schema
	dialect  diff.Dialect
	opts     diff.Options
	message  string
	logger   Logger
}

// New builds a Reconciler. message names generated revisions; empty means
// "sync declared models".
func New(migrator Migrator, declared model.Schema, dialect diff.Dialect, opts diff.Options, message string, logger Logger) *Reconciler {
	if message == "" {
		message = "sync declared models"
	}
	return &Reconciler{
		migrator: migrator,
		declared: declared,
		dialect:  dialect,
		opts:     opts,
		message:  message,
		logger:   logger,
	}
}

// Run performs one reconciliation pass:
//
//  1. A database with no revision table is stamped at head without running
//     any scripts; whatever schema it has is accepted as current. Drift, if
//     real, is still caught by the diff below.
//  2. A versioned database behind head is upgraded to head, once.
//  3. The live schema is diffed against the declared models; drift produces
//     exactly one generated revision, applied immediately.
//
// Run is idempotent: a second pass with no intervening model change is a
// no-op. Errors from the adapter or engine propagate; there is no retry or
// recovery policy.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.New()}

	head, hasHead, err := r.migrator.Head()
	if err != nil {
		return sum, err
	}

	tracked, err := r.migrator.HasRevisionTable(ctx)
	if err != nil {
		return sum, fmt.Errorf("check revision table: %w", err)
	}

	switch {
	case !tracked && hasHead:
		if err := r.migrator.Stamp(ctx, head); err != nil {
			return sum, err
		}
		sum.Stamped = &head
		r.logger.Info("unversioned database stamped at head", "version", head.Version)
	case !tracked:
		// No history defined yet; create the bookkeeping table so the
		// database is versioned from here on.
		if _, err := r.migrator.Applied(ctx); err != nil {
			return sum, err
		}
	case hasHead:
		applied, err := r.migrator.Applied(ctx)
		if err != nil {
			return sum, err
		}
		if current, ok := applied.Max(); !ok || current < head.Version {
			upgraded, err := r.migrator.Upgrade(ctx, head)
			if err != nil {
				return sum, err
			}
			sum.Upgraded = upgraded
		}
	}

	live, err := r.migrator.LiveSchema(ctx)
	if err != nil {
		return sum, err
	}
	d := diff.Compare(r.declared.Declared(), live)
	sum.Drift = d.HasChanges()
	sum.DriftSummary = diff.Describe(d)
	if !d.HasChanges() {
		return sum, nil
	}

	statements := diff.Statements(d, r.declared, r.dialect, r.opts)
	if len(statements) == 0 {
		// Differences DDL generation cannot express (primary keys,
		// sqlite column changes, undeclared tables under the default
		// policy) are reported but left alone.
		r.logger.Warn("schema drift needs a hand-written revision", "summary", sum.DriftSummary)
		return sum, nil
	}

	generated, err := r.migrator.Generate(r.message, statements)
	if err != nil {
		return sum, err
	}
	sum.Generated = &generated

	applied, err := r.migrator.Upgrade(ctx, generated)
	if err != nil {
		return sum, err
	}
	sum.DriftApplied = applied
	return sum, nil
}
