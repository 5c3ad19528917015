package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/edvin/swapd/internal/db"
	"github.com/edvin/swapd/internal/model"
)

// SQLiteStore keeps the record as one row per target in a SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	target string
}

// NewSQLiteStore migrates conn and returns a store for target.
func NewSQLiteStore(ctx context.Context, conn *sql.DB, target string) (*SQLiteStore, error) {
	if err := db.RunMigrations(ctx, goose.DialectSQLite3, conn, migrations("sqlite")); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: conn, target: target}, nil
}

// OpenSQLiteStore opens the database at path and returns a store for target.
// The caller closes the store.
func OpenSQLiteStore(ctx context.Context, path, target string) (*SQLiteStore, error) {
	conn, err := db.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	s, err := NewSQLiteStore(ctx, conn, target)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Read(ctx context.Context) (*model.DeploymentRecord, error) {
	var containerID, status string
	err := s.db.QueryRowContext(ctx,
		`SELECT container_id, status FROM deployment_records WHERE target = ?`, s.target,
	).Scan(&containerID, &status)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLiteStore) Write(ctx context.Context, rec model.DeploymentRecord) error {
	if err := validate(rec); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deployment_records (target, container_id, status, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (target) DO UPDATE SET
		   container_id = excluded.container_id,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		s.target, rec.ContainerID, string(rec.Status),
	)
	if err != nil {
		return fmt.Errorf("write record for %s: %w", s.target, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM deployment_records WHERE target = ?`, s.target); err != nil {
		return fmt.Errorf("clear record for %s: %w", s.target, err)
	}
	return nil
}
