// Package store provides database access interfaces and implementations.
package store

import (
	"context"

	"github.com/mnemolabs/placement-engine/internal/models"
)

// NodeStore defines operations on the node directory. The placement engine
// only reads snapshots from it; writes come from registration and telemetry
// ingestion.
type NodeStore interface {
	// Register creates a node or updates an existing one.
	Register(ctx context.Context, node *models.Node) error
	// Get retrieves a node by ID.
	Get(ctx context.Context, id string) (*models.Node, error)
	// List retrieves the full node snapshot.
	List(ctx context.Context) ([]*models.Node, error)
	// ListActive retrieves only active nodes.
	ListActive(ctx context.Context) ([]*models.Node, error)
	// UpdateEstimates refreshes a node's free-capacity estimates and
	// last-telemetry timestamp.
	UpdateEstimates(ctx context.Context, id string, vramFreeGB, ramFreeGB float64) error
	// SetActive flips a node's active flag.
	SetActive(ctx context.Context, id string, active bool) error
}

// PlacementStore defines operations for placement requests and decisions.
// Decisions are append-only: re-evaluating a request creates a new decision.
type PlacementStore interface {
	// CreateRequest persists a placement request.
	CreateRequest(ctx context.Context, req *models.PlacementRequest) error
	// GetRequest retrieves a placement request by ID.
	GetRequest(ctx context.Context, id string) (*models.PlacementRequest, error)
	// ListRequests retrieves all requests for a requester, newest first.
	ListRequests(ctx context.Context, requesterID string) ([]*models.PlacementRequest, error)
	// CreateDecision persists a placement decision.
	CreateDecision(ctx context.Context, decision *models.PlacementDecision) error
	// GetDecisionByRequest retrieves the latest decision for a request.
	GetDecisionByRequest(ctx context.Context, requestID string) (*models.PlacementDecision, error)
}

// ProfileStore defines operations for model profiles.
type ProfileStore interface {
	// Create persists a new model profile.
	Create(ctx context.Context, profile *models.ModelProfile) error
	// GetByName retrieves a profile by its unique name.
	GetByName(ctx context.Context, name string) (*models.ModelProfile, error)
	// List retrieves all profiles.
	List(ctx context.Context) ([]*models.ModelProfile, error)
	// Update updates an existing profile.
	Update(ctx context.Context, profile *models.ModelProfile) error
	// Delete removes a profile by ID.
	Delete(ctx context.Context, id string) error
}

// TelemetryStore defines operations for node telemetry samples.
type TelemetryStore interface {
	// Insert persists a telemetry sample.
	Insert(ctx context.Context, sample *models.Telemetry) error
	// ListByNode retrieves recent samples for a node, newest first.
	ListByNode(ctx context.Context, nodeID string, limit int) ([]*models.Telemetry, error)
}

// Store is the main interface for database operations.
type Store interface {
	// Nodes returns the NodeStore for node directory operations.
	Nodes() NodeStore
	// Placements returns the PlacementStore for request/decision operations.
	Placements() PlacementStore
	// Profiles returns the ProfileStore for model profile operations.
	Profiles() ProfileStore
	// Telemetry returns the TelemetryStore for telemetry operations.
	Telemetry() TelemetryStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Close closes the database connection.
	Close() error
}
