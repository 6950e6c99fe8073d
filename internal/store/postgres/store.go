// Package postgres provides the PostgreSQL implementation of the store
// interfaces.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mnemolabs/placement-engine/internal/store"
)

// queryable is satisfied by both *sql.DB and *sql.Tx so sub-stores run
// unchanged inside transactions.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements store.Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger

	nodes      *NodeStore
	placements *PlacementStore
	profiles   *ProfileStore
	telemetry  *TelemetryStore
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// NewPostgresStore creates a new PostgreSQL store with the given configuration.
func NewPostgresStore(cfg *Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{db: db, logger: logger}
	s.nodes = &NodeStore{db: db, logger: logger}
	s.placements = &PlacementStore{db: db, logger: logger}
	s.profiles = &ProfileStore{db: db, logger: logger}
	s.telemetry = &TelemetryStore{db: db, logger: logger}

	return s, nil
}

// Nodes returns the NodeStore.
func (s *PostgresStore) Nodes() store.NodeStore { return s.nodes }

// Placements returns the PlacementStore.
func (s *PostgresStore) Placements() store.PlacementStore { return s.placements }

// Profiles returns the ProfileStore.
func (s *PostgresStore) Profiles() store.ProfileStore { return s.profiles }

// Telemetry returns the TelemetryStore.
func (s *PostgresStore) Telemetry() store.TelemetryStore { return s.telemetry }

// WithTx executes fn within a database transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	txStore := &PostgresStore{
		db:         s.db,
		logger:     s.logger,
		nodes:      &NodeStore{db: s.db, tx: tx, logger: s.logger},
		placements: &PlacementStore{db: s.db, tx: tx, logger: s.logger},
		profiles:   &ProfileStore{db: s.db, tx: tx, logger: s.logger},
		telemetry:  &TelemetryStore{db: s.db, tx: tx, logger: s.logger},
	}

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Ping verifies database connectivity, for health checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
