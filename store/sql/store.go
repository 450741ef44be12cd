package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/stepflow/stepflow/order"
	"github.com/stepflow/stepflow/workflow"
)

var (
	_ workflow.Store = (*Store)(nil)
	_ order.Store    = (*Store)(nil)
)

// Store implements store.Store against either PostgreSQL or SQLite
// through Bun — the query and migration code below is dialect-neutral,
// so the same Store type backs both OpenPostgres and OpenSQLite. The
// caller owns the *bun.DB lifecycle; Store never closes it.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger used for migration progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New builds a Store around db. Callers typically obtain db via
// OpenPostgres or OpenSQLite.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenPostgres connects to dsn via Bun's own pgdriver and wraps it in a
// *bun.DB. It first opens a short-lived jackc/pgx/v5 pool purely to
// surface a clearer dial/auth error before Bun's own connection is
// established, then closes that pool immediately.
func OpenPostgres(ctx context.Context, dsn string) (*bun.DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: parse postgres dsn: %w", err)
	}
	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlstore: dial postgres: %w", pingErr)
	}
	pool.Close()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// OpenSQLite opens a pure-Go SQLite database at path (":memory:" for an
// ephemeral store) and wraps it in a *bun.DB, for local development and
// tests without a running Postgres.
func OpenSQLite(path string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open sqlite %q: %w", path, err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Migrate creates every table and index this Store needs, using Bun's
// schema reflection so the same call produces valid DDL on either
// dialect — raw hand-written SQL would have to be duplicated per
// dialect (BYTEA vs BLOB, TIMESTAMPTZ vs TEXT, ...).
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*workflowModel)(nil),
		(*orderModel)(nil),
		(*runModel)(nil),
		(*stepModel)(nil),
		(*stepResultModel)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("sqlstore: create table for %T: %w", m, err)
		}
	}

	indexes := []struct {
		name    string
		model   any
		unique  bool
		columns []string
	}{
		{"runs_status_idx", (*runModel)(nil), false, []string{"status"}},
		{"runs_workflow_id_idx", (*runModel)(nil), false, []string{"workflow_id"}},
		{"steps_run_id_step_index_idx", (*stepModel)(nil), true, []string{"run_id", "step_index"}},
		{"steps_run_id_idx", (*stepModel)(nil), false, []string{"run_id"}},
		{"step_results_step_id_idx", (*stepResultModel)(nil), false, []string{"step_id"}},
	}
	for _, idx := range indexes {
		q := s.db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			IfNotExists().
			Column(idx.columns...)
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("sqlstore: create index %s: %w", idx.name, err)
		}
	}

	s.logger.Info("schema migration complete")
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the caller owns the *bun.DB lifecycle.
func (s *Store) Close() error {
	return nil
}
