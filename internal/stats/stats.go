// Package stats computes bias distribution, blindspot and representative
// image for a story cluster.
package stats

import (
	"math"
	"strings"

	"manthan/internal/core"
)

// Blindspot thresholds: a side is a blindspot when its share of coverage is
// marginal while the opposite side dominates.
const (
	blindspotFloor   = 15
	blindspotCeiling = 50
)

// Compute derives ClusterStats for the given members, in insertion order.
//
// Bias bucketing is substring-based and checks Left before Right, so
// "Center Left" counts as Left and "Center Right" as Right. Stored stats
// depend on this bucketing; changing it requires a backfill.
func Compute(members []core.Article) core.ClusterStats {
	n := len(members)
	if n == 0 {
		return core.ClusterStats{Blindspot: core.BlindspotNone}
	}

	var left, right int
	for _, m := range members {
		switch {
		case strings.Contains(string(m.Bias), "Left"):
			left++
		case strings.Contains(string(m.Bias), "Right"):
			right++
		}
	}

	leftPct := int(math.Round(100 * float64(left) / float64(n)))
	rightPct := int(math.Round(100 * float64(right) / float64(n)))
	// Center absorbs rounding drift so the three shares always sum to 100.
	centerPct := 100 - leftPct - rightPct

	return core.ClusterStats{
		TotalSources: n,
		LeftPct:      leftPct,
		CenterPct:    centerPct,
		RightPct:     rightPct,
		Blindspot:    blindspot(leftPct, rightPct),
	}
}

func blindspot(leftPct, rightPct int) core.Blindspot {
	switch {
	case rightPct < blindspotFloor && leftPct > blindspotCeiling:
		return core.BlindspotRight
	case leftPct < blindspotFloor && rightPct > blindspotCeiling:
		return core.BlindspotLeft
	default:
		return core.BlindspotNone
	}
}

// MainImage returns the first member's non-empty image URL, or "".
func MainImage(members []core.Article) string {
	for _, m := range members {
		if m.ImageURL != "" {
			return m.ImageURL
		}
	}
	return ""
}
