package engine

import (
	"fmt"

	"github.com/mnemolabs/placement-engine/internal/models"
)

// Criterion identifies one candidate-filter predicate. The filter records
// which predicate eliminated each node so a no-candidate decision can report
// the most restrictive one.
type Criterion string

const (
	CriterionActive   Criterion = "active"
	CriterionVRAM     Criterion = "vram"
	CriterionRAM      Criterion = "ram"
	CriterionRegion   Criterion = "region"
	CriterionDistance Criterion = "distance"
	CriterionPrice    Criterion = "price"
)

// criterionOrder is the order predicates are applied in, and the order ties
// are broken in when reporting the most restrictive criterion.
var criterionOrder = []Criterion{
	CriterionActive,
	CriterionVRAM,
	CriterionRAM,
	CriterionRegion,
	CriterionDistance,
	CriterionPrice,
}

// Filter reduces the snapshot to the nodes eligible for the request. It has
// no side effects and returns an empty set, not an error, when nothing
// qualifies; drops counts eliminations by the first predicate each node
// failed.
func Filter(req *models.PlacementRequest, nodes []*models.Node) ([]*models.Node, map[Criterion]int) {
	var eligible []*models.Node
	drops := make(map[Criterion]int)

	for _, node := range nodes {
		if c, ok := eliminates(req, node); ok {
			drops[c]++
			continue
		}
		eligible = append(eligible, node)
	}

	return eligible, drops
}

// eliminates returns the first predicate the node fails, if any.
func eliminates(req *models.PlacementRequest, node *models.Node) (Criterion, bool) {
	if !node.Active {
		return CriterionActive, true
	}
	if node.VRAMFreeGB < req.RequiredVRAMGB {
		return CriterionVRAM, true
	}
	if req.RequiredRAMGB > 0 && node.RAMFreeGB < req.RequiredRAMGB {
		return CriterionRAM, true
	}
	if req.PreferredRegion != "" && node.Region != req.PreferredRegion {
		return CriterionRegion, true
	}
	if req.MaxDistanceKm > 0 && req.Location != nil && node.Location != nil {
		if HaversineKm(req.Location, node.Location) > req.MaxDistanceKm {
			return CriterionDistance, true
		}
	}
	if req.MaxPricePerGBSec > 0 && node.PricePerGBSec > req.MaxPricePerGBSec {
		return CriterionPrice, true
	}
	return "", false
}

// noCandidateReason explains, best effort, which predicate eliminated the
// candidate pool: the criterion that dropped the most nodes wins, with ties
// resolved in predicate order.
func noCandidateReason(req *models.PlacementRequest, drops map[Criterion]int, total int) string {
	if total == 0 {
		return "no nodes in the directory snapshot"
	}

	var worst Criterion
	var worstCount int
	for _, c := range criterionOrder {
		if drops[c] > worstCount {
			worst = c
			worstCount = drops[c]
		}
	}

	region := ""
	if req.PreferredRegion != "" {
		region = fmt.Sprintf(" in region %q", req.PreferredRegion)
	}

	switch worst {
	case CriterionActive:
		return fmt.Sprintf("no node%s is active", region)
	case CriterionVRAM:
		return fmt.Sprintf("no active node%s has >= %g GB VRAM free", region, req.RequiredVRAMGB)
	case CriterionRAM:
		return fmt.Sprintf("no active node%s has >= %g GB RAM free", region, req.RequiredRAMGB)
	case CriterionRegion:
		return fmt.Sprintf("no active node is registered in region %q", req.PreferredRegion)
	case CriterionDistance:
		return fmt.Sprintf("no active node%s lies within %g km of the requested location", region, req.MaxDistanceKm)
	case CriterionPrice:
		return fmt.Sprintf("no active node%s is priced at or below %g per GB-second", region, req.MaxPricePerGBSec)
	default:
		return "no eligible candidate in the directory snapshot"
	}
}
