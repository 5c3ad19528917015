package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/edvin/swapd/internal/db"
	"github.com/edvin/swapd/internal/model"
)

// PostgresStore keeps the record as one row per target in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	target string
}

// NewPostgresStore migrates the database behind pool and returns a store for
// target. The pool stays owned by the caller.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, target string) (*PostgresStore, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, goose.DialectPostgres, sqlDB, migrations("postgres")); err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, target: target}, nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Read(ctx context.Context) (*model.DeploymentRecord, error) {
	var containerID, status string
	err := s.pool.QueryRow(ctx,
		`SELECT container_id, status FROM deployment_records WHERE target = $1`, s.target,
	).Scan(&containerID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record for %s: %w", s.target, err)
	}
	rec, err := fromColumns(containerID, status)
	if err != nil {
		return nil, fmt.Errorf("read record for %s: %w", s.target, err)
	}
	return rec, nil
}

func (s *PostgresStore) Write(ctx context.Context, rec model.DeploymentRecord) error {
	if err := validate(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO deployment_records (target, container_id, status, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (target) DO UPDATE SET
		   container_id = EXCLUDED.container_id,
		   status = EXCLUDED.status,
		   updated_at = EXCLUDED.updated_at`,
		s.target, rec.ContainerID, string(rec.Status),
	)
	if err != nil {
		return fmt.Errorf("write record for %s: %w", s.target, err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM deployment_records WHERE target = $1`, s.target); err != nil {
		return fmt.Errorf("clear record for %s: %w", s.target, err)
	}
	return nil
}
