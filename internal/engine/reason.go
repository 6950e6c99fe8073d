package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mnemolabs/placement-engine/internal/models"
)

// selectionReason builds the human-readable justification for a winning
// candidate: the node name, its VRAM headroom over the requirement, and the
// dominant sub-scores.
func selectionReason(req *models.PlacementRequest, winner *ScoredCandidate) string {
	headroom := winner.Node.VRAMFreeGB - req.RequiredVRAMGB

	var b strings.Builder
	fmt.Fprintf(&b, "Node %q selected with %.1f GB VRAM headroom.", winner.Node.Name, headroom)

	if dominant := dominantSubScores(winner.Breakdown, 2); len(dominant) > 0 {
		parts := make([]string, len(dominant))
		for i, s := range dominant {
			parts[i] = fmt.Sprintf("%s (%.1f)", s.Name, s.Value)
		}
		fmt.Fprintf(&b, " Dominant factors: %s.", strings.Join(parts, ", "))
	}

	fmt.Fprintf(&b, " Fit score: %.1f.", winner.Score)
	return b.String()
}

// dominantSubScores returns up to n positive sub-scores in descending value
// order. The sort is stable so equal contributions keep their breakdown
// order.
func dominantSubScores(breakdown []models.SubScore, n int) []models.SubScore {
	positive := make([]models.SubScore, 0, len(breakdown))
	for _, s := range breakdown {
		if s.Value > 0 {
			positive = append(positive, s)
		}
	}

	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].Value > positive[j].Value
	})

	if len(positive) > n {
		positive = positive[:n]
	}
	return positive
}
