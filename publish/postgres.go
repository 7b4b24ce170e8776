package publish

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS acceptance_runs (
	run_id      text PRIMARY KEY,
	suite       text NOT NULL,
	kind        text NOT NULL,
	status      text NOT NULL,
	started_at  timestamptz NOT NULL,
	finished_at timestamptz NOT NULL,
	total       integer NOT NULL,
	passed      integer NOT NULL,
	failed      integer NOT NULL,
	rate        double precision,
	report_path text,
	summary     jsonb
)`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink keeps a row per run in acceptance_runs.
type PostgresSink struct {
	db    execer
	close func()
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &PostgresSink{db: pool, close: pool.Close}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresSink) Publish(ctx context.Context, a Artifact) error {
	summary, err := json.Marshal(a.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	var rate *float64
	if a.Summary.HasRate {
		r := a.Summary.Rate
		rate = &r
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO acceptance_runs (run_id, suite, kind, status, started_at, finished_at, total, passed, failed, rate, report_path, summary)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12::jsonb)
		ON CONFLICT (run_id) DO NOTHING
	`, a.RunID, a.Suite, a.Kind, a.Status, a.StartTime, a.EndTime,
		a.Summary.Total, a.Summary.Passed, a.Summary.Failed, rate, nullIfEmpty(a.ReportPath), string(summary),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", a.RunID, err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
