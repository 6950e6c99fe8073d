// Package engine implements the placement/matching engine: candidate
// filtering, fit scoring, deterministic selection, and decision assembly.
// Evaluation is pure and synchronous; the only I/O is fetching the node
// snapshot and, on the stateful path, persisting the request and decision.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mnemolabs/placement-engine/internal/metrics"
	"github.com/mnemolabs/placement-engine/internal/models"
	"github.com/mnemolabs/placement-engine/internal/store"
)

// ErrNoEligibleCandidate is signalled by the selector when the eligible set
// is empty. It is a terminal outcome, not a fault: callers surface it as a
// decision with a nil chosen node.
var ErrNoEligibleCandidate = errors.New("no eligible candidate")

// Engine evaluates placement requests against node snapshots. It never
// mutates node capacity, so concurrent evaluations share no state and two
// requests may legitimately be steered to the same node.
type Engine struct {
	store   store.Store
	policy  Policy
	logger  *slog.Logger
	metrics *metrics.Metrics

	// now and newID are injectable so evaluation stays deterministic in tests.
	now   func() time.Time
	newID func() string
}

// New creates an Engine using the given scoring policy.
func New(s store.Store, policy Policy, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   s,
		policy:  policy,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Evaluate runs filter, score, select, and assemble against the given
// snapshot. It is a pure function of its inputs: identical request and
// snapshot always produce the same chosen node, score, breakdown, and reason.
func (e *Engine) Evaluate(req *models.PlacementRequest, nodes []*models.Node) (*models.PlacementDecision, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	eligible, drops := Filter(req, nodes)
	scored := e.policy.Score(req, eligible)

	winner, err := SelectBest(scored)
	if err != nil {
		if errors.Is(err, ErrNoEligibleCandidate) {
			return &models.PlacementDecision{
				RequestID: req.ID,
				Reason:    noCandidateReason(req, drops, len(nodes)),
				CreatedAt: e.now(),
			}, nil
		}
		return nil, err
	}

	nodeID := winner.Node.ID
	return &models.PlacementDecision{
		RequestID:    req.ID,
		ChosenNodeID: &nodeID,
		FitScore:     winner.Score,
		Breakdown:    winner.Breakdown,
		Reason:       selectionReason(req, winner),
		CreatedAt:    e.now(),
	}, nil
}

// Quote evaluates a request without persisting anything. Identical requests
// against an identical snapshot yield identical decisions.
func (e *Engine) Quote(ctx context.Context, req *models.PlacementRequest) (*models.PlacementDecision, error) {
	start := e.now()

	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}

	nodes, err := e.store.Nodes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}

	decision, err := e.Evaluate(req, nodes)
	if err != nil {
		return nil, err
	}

	e.observe(decision, len(nodes), start)
	return decision, nil
}

// Place evaluates a request and durably records both the request and the
// resulting decision in a single transaction. The decision references the
// snapshot taken at evaluation time; a later re-evaluation creates a new
// decision rather than updating this one.
func (e *Engine) Place(ctx context.Context, req *models.PlacementRequest) (*models.PlacementDecision, error) {
	start := e.now()

	if req.ID == "" {
		req.ID = e.newID()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = start
	}
	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}

	nodes, err := e.store.Nodes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}

	decision, err := e.Evaluate(req, nodes)
	if err != nil {
		return nil, err
	}
	decision.ID = e.newID()

	err = e.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Placements().CreateRequest(ctx, req); err != nil {
			return fmt.Errorf("creating placement request: %w", err)
		}
		if err := tx.Placements().CreateDecision(ctx, decision); err != nil {
			return fmt.Errorf("creating placement decision: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.observe(decision, len(nodes), start)
	return decision, nil
}

func (e *Engine) observe(decision *models.PlacementDecision, snapshotSize int, start time.Time) {
	outcome := "placed"
	if decision.ChosenNodeID == nil {
		outcome = "no_candidate"
	}

	if e.metrics != nil {
		e.metrics.ObserveEvaluation(e.policy.Name(), outcome, time.Since(start))
	}

	e.logger.Info("placement evaluated",
		"policy", e.policy.Name(),
		"outcome", outcome,
		"request_id", decision.RequestID,
		"fit_score", decision.FitScore,
		"snapshot_size", snapshotSize,
	)
}
