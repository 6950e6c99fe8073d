package engine

import (
	"fmt"

	"github.com/mnemolabs/placement-engine/internal/models"
)

// ScoredCandidate pairs an eligible node with its fit score and the ordered
// sub-scores it was computed from.
type ScoredCandidate struct {
	Node      *models.Node
	Score     float64
	Breakdown []models.SubScore
}

// Policy computes fit scores for the whole eligible set of one evaluation.
// Implementations must be pure: no I/O, no randomness, and no state carried
// between requests. Scoring the full set at once lets policies normalize
// against the set (headroom rescaling, price distribution) without hidden
// globals.
type Policy interface {
	// Name identifies the policy in configuration, logs, and metrics.
	Name() string
	// Score returns one ScoredCandidate per eligible node, in input order.
	Score(req *models.PlacementRequest, eligible []*models.Node) []ScoredCandidate
}

// PolicyByName returns the scoring policy selected by configuration.
func PolicyByName(name string, hw HeadroomWeights, mw MarketplaceWeights) (Policy, error) {
	switch name {
	case PolicyNameHeadroom:
		return &HeadroomPolicy{Weights: hw}, nil
	case PolicyNameMarketplace:
		return &MarketplacePolicy{Weights: mw}, nil
	default:
		return nil, fmt.Errorf("unknown scoring policy %q", name)
	}
}
