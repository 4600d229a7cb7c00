package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/gwasupload/internal/config"
	"github.com/JonMunkholm/gwasupload/internal/core"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS gwas_submissions (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	file_name      TEXT NOT NULL,
	file_size      BIGINT NOT NULL,
	parser_options JSONB,
	data_rows      INTEGER NOT NULL DEFAULT 0,
	chromosomes    TEXT[] NOT NULL DEFAULT '{}',
	client_ip      TEXT NOT NULL DEFAULT '',
	user_agent     TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS gwas_submissions_created_at_idx ON gwas_submissions (created_at DESC);`

const submissionColumns = `id, session_id, file_name, file_size, parser_options,
	data_rows, chromosomes, client_ip, user_agent, created_at`

// Postgres stores submissions in the gwas_submissions table.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool with the configured limits, verifies the
// connection and creates the table when missing.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewPostgres(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing pool. The pool is closed by Close.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the submissions table and its index.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create gwas_submissions: %w", err)
	}
	return nil
}

func (p *Postgres) SaveSubmission(ctx context.Context, sub core.Submission) error {
	chroms := sub.Chromosomes
	if chroms == nil {
		chroms = []string{}
	}
	var opts []byte
	if len(sub.ParserOptions) > 0 {
		opts = []byte(sub.ParserOptions)
	}

	_, err := p.pool.Exec(ctx, `INSERT INTO gwas_submissions (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			parser_options = EXCLUDED.parser_options,
			data_rows = EXCLUDED.data_rows,
			chromosomes = EXCLUDED.chromosomes`,
		sub.ID, sub.SessionID, sub.FileName, sub.FileSize, opts,
		sub.DataRows, chroms, sub.ClientIP, sub.UserAgent, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (p *Postgres) GetSubmission(ctx context.Context, id string) (core.Submission, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM gwas_submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Submission{}, core.ErrSubmissionMissing
	}
	return sub, err
}

func (p *Postgres) ListSubmissions(ctx context.Context, limit int) ([]core.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.pool.Query(ctx, `SELECT `+submissionColumns+` FROM gwas_submissions
		ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]core.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func scanSubmission(row pgx.Row) (core.Submission, error) {
	var (
		sub  core.Submission
		opts []byte
	)
	err := row.Scan(
		&sub.ID, &sub.SessionID, &sub.FileName, &sub.FileSize, &opts,
		&sub.DataRows, &sub.Chromosomes, &sub.ClientIP, &sub.UserAgent, &sub.CreatedAt,
	)
	if err != nil {
		return core.Submission{}, err
	}
	if len(opts) > 0 {
		sub.ParserOptions = opts
	}
	return sub, nil
}
