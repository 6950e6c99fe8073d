package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mnemolabs/placement-engine/internal/models"
)

// PlacementStore implements store.PlacementStore using PostgreSQL.
type PlacementStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

// conn returns the queryable connection (transaction or database).
func (s *PlacementStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// CreateRequest persists a placement request.
func (s *PlacementStore) CreateRequest(ctx context.Context, req *models.PlacementRequest) error {
	query := `
		INSERT INTO placement_requests (id, requester_id, model_name, required_vram_gb,
			required_ram_gb, preferred_region, latitude, longitude, max_distance_km,
			max_price_per_gb_sec, priority, prefer_local, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	var lat, lng sql.NullFloat64
	if req.Location != nil {
		lat = sql.NullFloat64{Float64: req.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: req.Location.Longitude, Valid: true}
	}

	_, err := s.conn().ExecContext(ctx, query,
		req.ID,
		req.RequesterID,
		req.ModelName,
		req.RequiredVRAMGB,
		req.RequiredRAMGB,
		req.PreferredRegion,
		lat,
		lng,
		req.MaxDistanceKm,
		req.MaxPricePerGBSec,
		req.Priority,
		req.PreferLocal,
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating placement request: %w", err)
	}
	return nil
}

// GetRequest retrieves a placement request by ID.
func (s *PlacementStore) GetRequest(ctx context.Context, id string) (*models.PlacementRequest, error) {
	query := `
		SELECT id, requester_id, model_name, required_vram_gb, required_ram_gb,
			preferred_region, latitude, longitude, max_distance_km,
			max_price_per_gb_sec, priority, prefer_local, created_at
		FROM placement_requests
		WHERE id = $1`

	req, err := scanRequest(s.conn().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying placement request: %w", err)
	}
	return req, nil
}

// ListRequests retrieves all requests for a requester, newest first.
func (s *PlacementStore) ListRequests(ctx context.Context, requesterID string) ([]*models.PlacementRequest, error) {
	query := `
		SELECT id, requester_id, model_name, required_vram_gb, required_ram_gb,
			preferred_region, latitude, longitude, max_distance_km,
			max_price_per_gb_sec, priority, prefer_local, created_at
		FROM placement_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC`

	rows, err := s.conn().QueryContext(ctx, query, requesterID)
	if err != nil {
		return nil, fmt.Errorf("querying placement requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.PlacementRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request row: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating request rows: %w", err)
	}
	return requests, nil
}

// CreateDecision persists a placement decision.
func (s *PlacementStore) CreateDecision(ctx context.Context, decision *models.PlacementDecision) error {
	query := `
		INSERT INTO placement_decisions (id, request_id, chosen_node_id, fit_score,
			breakdown, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if decision.CreatedAt.IsZero() {
		decision.CreatedAt = time.Now().UTC()
	}

	breakdown, err := json.Marshal(decision.Breakdown)
	if err != nil {
		return fmt.Errorf("encoding breakdown: %w", err)
	}

	_, err = s.conn().ExecContext(ctx, query,
		decision.ID,
		decision.RequestID,
		decision.ChosenNodeID,
		decision.FitScore,
		breakdown,
		decision.Reason,
		decision.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating placement decision: %w", err)
	}
	return nil
}

// GetDecisionByRequest retrieves the latest decision for a request.
func (s *PlacementStore) GetDecisionByRequest(ctx context.Context, requestID string) (*models.PlacementDecision, error) {
	query := `
		SELECT id, request_id, chosen_node_id, fit_score, breakdown, reason, created_at
		FROM placement_decisions
		WHERE request_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	decision := &models.PlacementDecision{}
	var breakdown []byte

	err := s.conn().QueryRowContext(ctx, query, requestID).Scan(
		&decision.ID,
		&decision.RequestID,
		&decision.ChosenNodeID,
		&decision.FitScore,
		&breakdown,
		&decision.Reason,
		&decision.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying placement decision: %w", err)
	}

	if err := json.Unmarshal(breakdown, &decision.Breakdown); err != nil {
		return nil, fmt.Errorf("decoding breakdown: %w", err)
	}
	return decision, nil
}

func scanRequest(row rowScanner) (*models.PlacementRequest, error) {
	req := &models.PlacementRequest{}
	var lat, lng sql.NullFloat64

	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&req.ModelName,
		&req.RequiredVRAMGB,
		&req.RequiredRAMGB,
		&req.PreferredRegion,
		&lat,
		&lng,
		&req.MaxDistanceKm,
		&req.MaxPricePerGBSec,
		&req.Priority,
		&req.PreferLocal,
		&req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid && lng.Valid {
		req.Location = &models.GeoPoint{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	return req, nil
}
