package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/mnemolabs/placement-engine/internal/models"
)

// NodeStore implements store.NodeStore using PostgreSQL.
type NodeStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *NodeStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const nodeColumns = `id, name, node_type, region, latitude, longitude, gpu_model,
	vram_gb_total, vram_gb_free_estimate, ram_gb_total, ram_gb_free_estimate,
	bandwidth_mbps, base_latency_ms, price_per_gb_sec, uptime_score,
	tags, is_active, last_telemetry, registered_at`

// Register creates a node or updates an existing one.
func (s *NodeStore) Register(ctx context.Context, node *models.Node) error {
	query := `
		INSERT INTO nodes (id, name, node_type, region, latitude, longitude, gpu_model,
			vram_gb_total, vram_gb_free_estimate, ram_gb_total, ram_gb_free_estimate,
			bandwidth_mbps, base_latency_ms, price_per_gb_sec, uptime_score,
			tags, is_active, last_telemetry, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			node_type = EXCLUDED.node_type,
			region = EXCLUDED.region,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			gpu_model = EXCLUDED.gpu_model,
			vram_gb_total = EXCLUDED.vram_gb_total,
			vram_gb_free_estimate = EXCLUDED.vram_gb_free_estimate,
			ram_gb_total = EXCLUDED.ram_gb_total,
			ram_gb_free_estimate = EXCLUDED.ram_gb_free_estimate,
			bandwidth_mbps = EXCLUDED.bandwidth_mbps,
			base_latency_ms = EXCLUDED.base_latency_ms,
			price_per_gb_sec = EXCLUDED.price_per_gb_sec,
			uptime_score = EXCLUDED.uptime_score,
			tags = EXCLUDED.tags,
			is_active = EXCLUDED.is_active,
			last_telemetry = EXCLUDED.last_telemetry
		RETURNING id, registered_at`

	now := time.Now().UTC()
	if node.LastTelemetry.IsZero() {
		node.LastTelemetry = now
	}
	if node.RegisteredAt.IsZero() {
		node.RegisteredAt = now
	}

	var lat, lng sql.NullFloat64
	if node.Location != nil {
		lat = sql.NullFloat64{Float64: node.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: node.Location.Longitude, Valid: true}
	}

	err := s.conn().QueryRowContext(ctx, query,
		node.ID,
		node.Name,
		node.Type,
		node.Region,
		lat,
		lng,
		node.GPUModel,
		node.VRAMTotalGB,
		node.VRAMFreeGB,
		node.RAMTotalGB,
		node.RAMFreeGB,
		node.BandwidthMbps,
		node.BaseLatencyMs,
		node.PricePerGBSec,
		node.UptimeScore,
		pq.Array(node.Tags),
		node.Active,
		node.LastTelemetry,
		node.RegisteredAt,
	).Scan(&node.ID, &node.RegisteredAt)

	if err != nil {
		return fmt.Errorf("registering node: %w", err)
	}
	return nil
}

// Get retrieves a node by ID.
func (s *NodeStore) Get(ctx context.Context, id string) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = $1`

	node, err := scanNode(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying node: %w", err)
	}
	return node, nil
}

// List retrieves the full node snapshot.
func (s *NodeStore) List(ctx context.Context) ([]*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes ORDER BY registered_at DESC`

	rows, err := s.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// ListActive retrieves only active nodes.
func (s *NodeStore) ListActive(ctx context.Context) ([]*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE is_active = true ORDER BY registered_at DESC`

	rows, err := s.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying active nodes: %w", err)
	}
	defer rows.Close()

	return scanNodes(rows)
}

// UpdateEstimates refreshes a node's free-capacity estimates and
// last-telemetry timestamp.
func (s *NodeStore) UpdateEstimates(ctx context.Context, id string, vramFreeGB, ramFreeGB float64) error {
	query := `
		UPDATE nodes
		SET vram_gb_free_estimate = $2,
			ram_gb_free_estimate = $3,
			last_telemetry = $4
		WHERE id = $1`

	result, err := s.conn().ExecContext(ctx, query, id, vramFreeGB, ramFreeGB, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating estimates: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive flips a node's active flag.
func (s *NodeStore) SetActive(ctx context.Context, id string, active bool) error {
	result, err := s.conn().ExecContext(ctx, `UPDATE nodes SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("updating active flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	node := &models.Node{}
	var lat, lng sql.NullFloat64

	err := row.Scan(
		&node.ID,
		&node.Name,
		&node.Type,
		&node.Region,
		&lat,
		&lng,
		&node.GPUModel,
		&node.VRAMTotalGB,
		&node.VRAMFreeGB,
		&node.RAMTotalGB,
		&node.RAMFreeGB,
		&node.BandwidthMbps,
		&node.BaseLatencyMs,
		&node.PricePerGBSec,
		&node.UptimeScore,
		pq.Array(&node.Tags),
		&node.Active,
		&node.LastTelemetry,
		&node.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		node.Location = &models.GeoPoint{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	return node, nil
}

func scanNodes(rows *sql.Rows) ([]*models.Node, error) {
	var nodes []*models.Node

	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}
		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating node rows: %w", err)
	}
	return nodes, nil
}
