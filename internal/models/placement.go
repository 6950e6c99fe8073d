package models

import (
	"errors"
	"fmt"
	"time"
)

// Priority indicates how urgently a placement request should be treated.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ErrInvalidRequest is wrapped by all request validation failures so callers
// can distinguish bad input from evaluation errors with errors.Is.
var ErrInvalidRequest = errors.New("invalid placement request")

// PlacementRequest describes one ask for capacity. It is immutable once
// created: a re-evaluation produces a new decision, never an update.
type PlacementRequest struct {
	ID               string    `json:"id"`
	RequesterID      string    `json:"requester_id"`
	ModelName        string    `json:"model_name,omitempty"`
	RequiredVRAMGB   float64   `json:"required_vram_gb"`
	RequiredRAMGB    float64   `json:"required_ram_gb,omitempty"`
	PreferredRegion  string    `json:"preferred_region,omitempty"`
	Location         *GeoPoint `json:"location,omitempty"`
	MaxDistanceKm    float64   `json:"max_distance_km,omitempty"`
	MaxPricePerGBSec float64   `json:"max_price_per_gb_sec,omitempty"`
	Priority         Priority  `json:"priority"`
	PreferLocal      bool      `json:"prefer_local"`
	CreatedAt        time.Time `json:"created_at"`
}

// Validate checks the request before it reaches candidate filtering.
// Requests that fail validation are never scored.
func (r *PlacementRequest) Validate() error {
	if r.RequiredVRAMGB <= 0 {
		return fmt.Errorf("%w: required_vram_gb must be positive", ErrInvalidRequest)
	}
	if r.RequiredRAMGB < 0 {
		return fmt.Errorf("%w: required_ram_gb must not be negative", ErrInvalidRequest)
	}
	if r.Location != nil && !r.Location.Valid() {
		return fmt.Errorf("%w: location out of range", ErrInvalidRequest)
	}
	if r.MaxDistanceKm < 0 {
		return fmt.Errorf("%w: max_distance_km must not be negative", ErrInvalidRequest)
	}
	if r.MaxPricePerGBSec < 0 {
		return fmt.Errorf("%w: max_price_per_gb_sec must not be negative", ErrInvalidRequest)
	}
	switch r.Priority {
	case PriorityNormal, PriorityHigh, "":
	default:
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidRequest, r.Priority)
	}
	return nil
}

// SubScore is one named component of a fit score. The breakdown keeps the
// order the policy computed them in so reasons stay reproducible.
type SubScore struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// PlacementDecision records the outcome of evaluating one request against one
// node snapshot. ChosenNodeID is nil when no candidate was eligible; that is a
// valid terminal outcome, not a failure. Decisions are never mutated.
type PlacementDecision struct {
	ID           string     `json:"id"`
	RequestID    string     `json:"request_id"`
	ChosenNodeID *string    `json:"chosen_node_id"`
	FitScore     float64    `json:"fit_score"`
	Breakdown    []SubScore `json:"breakdown"`
	Reason       string     `json:"reason"`
	CreatedAt    time.Time  `json:"created_at"`
}
