package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/mnemolabs/placement-engine/internal/models"
)

// genEligibleNode generates a node that passes the VRAM predicate for a
// requirement of up to 16 GB.
func genEligibleNode() gopter.Gen {
	return gopter.CombineGens(
		gen.Identifier(),
		gen.Float64Range(16, 80),
		gen.Float64Range(10, 10000),
		gen.Float64Range(1, 300),
	).Map(func(vals []interface{}) *models.Node {
		return &models.Node{
			ID:            vals[0].(string),
			Name:          vals[0].(string),
			Region:        "us-east-1",
			VRAMFreeGB:    vals[1].(float64),
			BandwidthMbps: vals[2].(float64),
			BaseLatencyMs: vals[3].(float64),
			Active:        true,
		}
	})
}

func TestHeadroomScoresAreRescaledToRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	policy := &HeadroomPolicy{Weights: DefaultHeadroomWeights()}

	properties.Property("every fit score lies in [0, 100]", prop.ForAll(
		func(vram float64, nodes []*models.Node) bool {
			req := &models.PlacementRequest{ID: "req", RequiredVRAMGB: vram}
			scored := policy.Score(req, nodes)

			for _, c := range scored {
				if c.Score < 0 || c.Score > 100 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(1, 16),
		gen.SliceOfN(10, genEligibleNode()),
	))

	properties.Property("the extremes of the raw range map to 0 and 100", prop.ForAll(
		func(vram float64, nodes []*models.Node) bool {
			req := &models.PlacementRequest{ID: "req", RequiredVRAMGB: vram}
			scored := policy.Score(req, nodes)
			if len(scored) == 0 {
				return true
			}

			minScore, maxScore := scored[0].Score, scored[0].Score
			for _, c := range scored {
				minScore = math.Min(minScore, c.Score)
				maxScore = math.Max(maxScore, c.Score)
			}
			// Equal raw scores across the whole set collapse to 100.
			if minScore == maxScore {
				return maxScore == 100
			}
			return minScore == 0 && maxScore == 100
		},
		gen.Float64Range(1, 16),
		gen.SliceOfN(10, genEligibleNode()),
	))

	properties.TestingRun(t)
}

func TestHeadroomSoleCandidateScoresFull(t *testing.T) {
	policy := &HeadroomPolicy{Weights: DefaultHeadroomWeights()}
	req := &models.PlacementRequest{ID: "req", RequiredVRAMGB: 8}

	scored := policy.Score(req, []*models.Node{{ID: "only", VRAMFreeGB: 10, Active: true}})
	if len(scored) != 1 {
		t.Fatalf("expected 1 scored candidate, got %d", len(scored))
	}
	if scored[0].Score != 100 {
		t.Errorf("sole candidate scored %g, want 100", scored[0].Score)
	}
}

func TestHeadroomOrderingFollowsRawScore(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	policy := &HeadroomPolicy{Weights: DefaultHeadroomWeights()}

	properties.Property("more free VRAM never lowers the rescaled score", prop.ForAll(
		func(nodes []*models.Node, extraVRAM float64) bool {
			if len(nodes) < 2 {
				return true
			}
			for i, n := range nodes {
				n.ID = fmt.Sprintf("node-%d", i)
			}

			// Clone the first node with strictly more free VRAM and nothing
			// else changed.
			better := *nodes[0]
			better.ID = nodes[0].ID + "-plus"
			better.VRAMFreeGB = nodes[0].VRAMFreeGB + extraVRAM
			pool := append([]*models.Node{&better}, nodes...)

			req := &models.PlacementRequest{ID: "req", RequiredVRAMGB: 8}
			scored := policy.Score(req, pool)

			var betterScore, baseScore float64
			for _, c := range scored {
				switch c.Node.ID {
				case better.ID:
					betterScore = c.Score
				case nodes[0].ID:
					baseScore = c.Score
				}
			}
			return betterScore >= baseScore
		},
		gen.SliceOfN(6, genEligibleNode()),
		gen.Float64Range(1, 32),
	))

	properties.TestingRun(t)
}

func TestHeadroomBreakdownMatchesWeights(t *testing.T) {
	weights := HeadroomWeights{Headroom: 0.5, Bandwidth: 0.3, Latency: 0.2}
	policy := &HeadroomPolicy{Weights: weights}

	node := &models.Node{
		ID:            "node-a",
		VRAMFreeGB:    24,
		BandwidthMbps: 1000,
		BaseLatencyMs: 40,
		Active:        true,
	}
	req := &models.PlacementRequest{ID: "req", RequiredVRAMGB: 16}

	scored := policy.Score(req, []*models.Node{node})
	if len(scored) != 1 {
		t.Fatalf("expected 1 scored candidate, got %d", len(scored))
	}

	want := map[string]float64{
		"headroom":        0.5 * (24 - 16),
		"bandwidth":       0.3 * 1000,
		"latency_penalty": -0.2 * 40,
	}
	for _, s := range scored[0].Breakdown {
		expected, ok := want[s.Name]
		if !ok {
			t.Errorf("unexpected sub-score %q", s.Name)
			continue
		}
		if math.Abs(s.Value-expected) > 1e-9 {
			t.Errorf("sub-score %q = %g, want %g", s.Name, s.Value, expected)
		}
	}
	if len(scored[0].Breakdown) != len(want) {
		t.Errorf("breakdown has %d entries, want %d", len(scored[0].Breakdown), len(want))
	}
}
