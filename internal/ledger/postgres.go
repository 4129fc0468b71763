package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS model_submissions (
	id UUID PRIMARY KEY,
	version TEXT NOT NULL UNIQUE,
	outcome TEXT NOT NULL,
	mse DOUBLE PRECISION NOT NULL,
	previous_version TEXT NOT NULL DEFAULT '',
	artifact_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

// pool is the subset of *pgxpool.Pool used here; pgxmock satisfies it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Postgres stores entries in the model_submissions table.
type Postgres struct {
	pool pool
}

// OpenPostgres connects to dsn and ensures the table exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, eris.New("ledger: postgres dsn required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: parse postgres config")
	}
	cfg.MaxConns = 2
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: create pool")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "ledger: ping postgres")
	}
	return newPostgres(ctx, p)
}

func newPostgres(ctx context.Context, p pool) (*Postgres, error) {
	if _, err := p.Exec(ctx, postgresSchema); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "ledger: create model_submissions table")
	}
	return &Postgres{pool: p}, nil
}

// Record inserts e.
func (s *Postgres) Record(ctx context.Context, e Entry) error {
	e = normalize(e)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO model_submissions (id, version, outcome, mse, previous_version, artifact_key, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Version, e.Outcome, e.MSE, e.PreviousVersion, e.ArtifactKey, e.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "ledger: insert %s", e.Version)
	}
	return nil
}

// List returns entries newest first.
func (s *Postgres) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, version, outcome, mse, previous_version, artifact_key, created_at FROM model_submissions ORDER BY created_at DESC, version DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: select submissions")
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Version, &e.Outcome, &e.MSE, &e.PreviousVersion, &e.ArtifactKey, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "ledger: scan submission")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "ledger: iterate submissions")
}

// Close releases the pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
