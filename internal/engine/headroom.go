package engine

import "github.com/mnemolabs/placement-engine/internal/models"

// PolicyNameHeadroom selects the linear-headroom policy used for direct node
// placement.
const PolicyNameHeadroom = "headroom"

// HeadroomWeights are the coefficients of the headroom policy's raw score.
// They are passed in rather than hardcoded so alternate weight sets are
// trivially testable.
type HeadroomWeights struct {
	Headroom  float64 `yaml:"headroom"`
	Bandwidth float64 `yaml:"bandwidth"`
	Latency   float64 `yaml:"latency"`
}

// DefaultHeadroomWeights returns the production coefficients.
func DefaultHeadroomWeights() HeadroomWeights {
	return HeadroomWeights{Headroom: 0.5, Bandwidth: 0.3, Latency: 0.2}
}

// HeadroomPolicy scores candidates on VRAM headroom, bandwidth, and latency:
//
//	raw = w_headroom*(free - required) + w_bandwidth*bandwidth - w_latency*latency
//
// Raw scores are then rescaled to 0-100 using the min and max observed across
// the eligible set of this one evaluation. The rescaling never uses state from
// other requests, which means a node's score depends on which other nodes
// were eligible for the same request.
type HeadroomPolicy struct {
	Weights HeadroomWeights
}

// Name implements Policy.
func (p *HeadroomPolicy) Name() string { return PolicyNameHeadroom }

// Score implements Policy.
func (p *HeadroomPolicy) Score(req *models.PlacementRequest, eligible []*models.Node) []ScoredCandidate {
	if len(eligible) == 0 {
		return nil
	}

	scored := make([]ScoredCandidate, len(eligible))
	raws := make([]float64, len(eligible))

	minRaw, maxRaw := 0.0, 0.0
	for i, node := range eligible {
		headroom := p.Weights.Headroom * (node.VRAMFreeGB - req.RequiredVRAMGB)
		bandwidth := p.Weights.Bandwidth * node.BandwidthMbps
		latency := p.Weights.Latency * node.BaseLatencyMs
		raw := headroom + bandwidth - latency

		raws[i] = raw
		if i == 0 || raw < minRaw {
			minRaw = raw
		}
		if i == 0 || raw > maxRaw {
			maxRaw = raw
		}

		scored[i] = ScoredCandidate{
			Node: node,
			Breakdown: []models.SubScore{
				{Name: "headroom", Value: headroom},
				{Name: "bandwidth", Value: bandwidth},
				{Name: "latency_penalty", Value: -latency},
			},
		}
	}

	// A sole candidate, or a set whose raw scores are all equal, gets 100.
	span := maxRaw - minRaw
	for i := range scored {
		if span == 0 {
			scored[i].Score = 100
		} else {
			// Divide before scaling so the top of the range is exactly 100.
			scored[i].Score = (raws[i] - minRaw) / span * 100
		}
	}

	return scored
}
