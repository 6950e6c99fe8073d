package engine

import (
	"math"

	"github.com/mnemolabs/placement-engine/internal/models"
)

// PolicyNameMarketplace selects the multi-factor policy used for
// capacity-matching and quoting.
const PolicyNameMarketplace = "marketplace"

// MarketplaceWeights caps each marketplace sub-score and sets the flat bonus
// for mist nodes.
type MarketplaceWeights struct {
	ProximityCap   float64 `yaml:"proximity_cap"`
	PriceCap       float64 `yaml:"price_cap"`
	ReliabilityCap float64 `yaml:"reliability_cap"`
	CapacityCap    float64 `yaml:"capacity_cap"`
	MistBonus      float64 `yaml:"mist_bonus"`
}

// DefaultMarketplaceWeights returns the production caps.
func DefaultMarketplaceWeights() MarketplaceWeights {
	return MarketplaceWeights{
		ProximityCap:   100,
		PriceCap:       50,
		ReliabilityCap: 50,
		CapacityCap:    30,
		MistBonus:      20,
	}
}

// MarketplacePolicy sums independent sub-scores with no further rescaling:
// proximity (tripled when the request prefers local capacity), price relative
// to the eligible set's price range, reliability, overcapacity, and a flat
// bonus for mist nodes, whose economics are favorable despite lower
// individual reliability.
type MarketplacePolicy struct {
	Weights MarketplaceWeights
}

// Name implements Policy.
func (p *MarketplacePolicy) Name() string { return PolicyNameMarketplace }

// Score implements Policy.
func (p *MarketplacePolicy) Score(req *models.PlacementRequest, eligible []*models.Node) []ScoredCandidate {
	if len(eligible) == 0 {
		return nil
	}

	maxPrice := 0.0
	for _, node := range eligible {
		if node.PricePerGBSec > maxPrice {
			maxPrice = node.PricePerGBSec
		}
	}

	scored := make([]ScoredCandidate, len(eligible))
	for i, node := range eligible {
		proximity := p.proximityScore(req, node)
		price := p.priceScore(node, maxPrice)
		reliability := node.UptimeScore * p.Weights.ReliabilityCap / 100
		capacity := p.capacityScore(req, node)

		bonus := 0.0
		if node.Type == models.NodeTypeMist {
			bonus = p.Weights.MistBonus
		}

		scored[i] = ScoredCandidate{
			Node:  node,
			Score: proximity + price + reliability + capacity + bonus,
			Breakdown: []models.SubScore{
				{Name: "proximity", Value: proximity},
				{Name: "price", Value: price},
				{Name: "reliability", Value: reliability},
				{Name: "capacity", Value: capacity},
				{Name: "node_type_bonus", Value: bonus},
			},
		}
	}

	return scored
}

// proximityScore is ProximityCap at 0 km falling linearly to 0 at
// ProximityCap*10 km, tripled when the request prefers local capacity, and 0
// when either location is unknown.
func (p *MarketplacePolicy) proximityScore(req *models.PlacementRequest, node *models.Node) float64 {
	if req.Location == nil || node.Location == nil {
		return 0
	}

	distance := HaversineKm(req.Location, node.Location)
	score := math.Max(0, p.Weights.ProximityCap-distance/10)

	if req.PreferLocal {
		score *= 3
	}
	return score
}

// priceScore rewards cheaper capacity relative to the most expensive eligible
// candidate. When every candidate charges the same price no one gets an edge.
func (p *MarketplacePolicy) priceScore(node *models.Node, maxPrice float64) float64 {
	if maxPrice <= 0 {
		return 0
	}
	return (1 - node.PricePerGBSec/maxPrice) * p.Weights.PriceCap
}

// capacityScore rewards overcapacity beyond the requested amount, which
// leaves room for failover.
func (p *MarketplacePolicy) capacityScore(req *models.PlacementRequest, node *models.Node) float64 {
	required := req.RequiredVRAMGB + req.RequiredRAMGB
	if required <= 0 {
		return 0
	}
	available := node.VRAMFreeGB + node.RAMFreeGB
	return math.Min(p.Weights.CapacityCap, available/required*10)
}
