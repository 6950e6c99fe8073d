package engine

// SelectBest returns the candidate with the strictly highest fit score.
// Ties are broken by higher uptime score, then lower price, then smallest
// node ID, so identical inputs always produce the same winner.
func SelectBest(scored []ScoredCandidate) (*ScoredCandidate, error) {
	if len(scored) == 0 {
		return nil, ErrNoEligibleCandidate
	}

	best := &scored[0]
	for i := 1; i < len(scored); i++ {
		if beats(&scored[i], best) {
			best = &scored[i]
		}
	}

	return best, nil
}

// beats reports whether a should be preferred over b.
func beats(a, b *ScoredCandidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Node.UptimeScore != b.Node.UptimeScore {
		return a.Node.UptimeScore > b.Node.UptimeScore
	}
	if a.Node.PricePerGBSec != b.Node.PricePerGBSec {
		return a.Node.PricePerGBSec < b.Node.PricePerGBSec
	}
	return a.Node.ID < b.Node.ID
}
