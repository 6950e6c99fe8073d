package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mnemolabs/placement-engine/internal/models"
)

// TelemetryStore implements store.TelemetryStore using PostgreSQL.
type TelemetryStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *TelemetryStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Insert persists a telemetry sample.
func (s *TelemetryStore) Insert(ctx context.Context, sample *models.Telemetry) error {
	query := `
		INSERT INTO node_telemetry (id, node_id, vram_gb_free, ram_gb_free,
			utilization_percent, temperature_c, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if sample.CollectedAt.IsZero() {
		sample.CollectedAt = time.Now().UTC()
	}

	_, err := s.conn().ExecContext(ctx, query,
		sample.ID,
		sample.NodeID,
		sample.VRAMFreeGB,
		sample.RAMFreeGB,
		sample.UtilizationPercent,
		sample.TemperatureC,
		sample.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting telemetry: %w", err)
	}
	return nil
}

// ListByNode retrieves recent samples for a node, newest first.
func (s *TelemetryStore) ListByNode(ctx context.Context, nodeID string, limit int) ([]*models.Telemetry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, node_id, vram_gb_free, ram_gb_free, utilization_percent,
			temperature_c, collected_at
		FROM node_telemetry
		WHERE node_id = $1
		ORDER BY collected_at DESC
		LIMIT $2`

	rows, err := s.conn().QueryContext(ctx, query, nodeID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying telemetry: %w", err)
	}
	defer rows.Close()

	var samples []*models.Telemetry
	for rows.Next() {
		sample := &models.Telemetry{}
		err := rows.Scan(
			&sample.ID,
			&sample.NodeID,
			&sample.VRAMFreeGB,
			&sample.RAMFreeGB,
			&sample.UtilizationPercent,
			&sample.TemperatureC,
			&sample.CollectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning telemetry row: %w", err)
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating telemetry rows: %w", err)
	}
	return samples, nil
}
