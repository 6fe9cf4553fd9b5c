package stats

import (
	"testing"

	"manthan/internal/core"
)

func withBias(ratings ...core.BiasRating) []core.Article {
	articles := make([]core.Article, len(ratings))
	for i, r := range ratings {
		articles[i] = core.Article{ID: string(rune('a' + i)), Bias: r}
	}
	return articles
}

func TestCompute_BiasDistribution(t *testing.T) {
	// 7 Left, 1 Center, 2 Center Right.
	members := withBias(
		core.BiasLeft, core.BiasLeft, core.BiasLeft, core.BiasLeft,
		core.BiasLeft, core.BiasLeft, core.BiasLeft,
		core.BiasCenter,
		core.BiasCenterRight, core.BiasCenterRight,
	)

	s := Compute(members)

	if s.TotalSources != 10 {
		t.Errorf("expected 10 sources, got %d", s.TotalSources)
	}
	if s.LeftPct != 70 || s.RightPct != 20 || s.CenterPct != 10 {
		t.Errorf("expected 70/10/20 split, got left=%d center=%d right=%d", s.LeftPct, s.CenterPct, s.RightPct)
	}
	if s.Blindspot != core.BlindspotNone {
		t.Errorf("expected no blindspot at 20%% right coverage, got %s", s.Blindspot)
	}
}

func TestCompute_RightBlindspot(t *testing.T) {
	// Swap one Center Right for Center: right coverage drops to 10%.
	members := withBias(
		core.BiasLeft, core.BiasLeft, core.BiasLeft, core.BiasLeft,
		core.BiasLeft, core.BiasLeft, core.BiasLeft,
		core.BiasCenter, core.BiasCenter,
		core.BiasCenterRight,
	)

	s := Compute(members)

	if s.LeftPct != 70 || s.RightPct != 10 {
		t.Fatalf("expected 70 left / 10 right, got %d/%d", s.LeftPct, s.RightPct)
	}
	if s.Blindspot != core.BlindspotRight {
		t.Errorf("expected Right blindspot, got %s", s.Blindspot)
	}
}

func TestCompute_LeftBlindspot(t *testing.T) {
	members := withBias(
		core.BiasRight, core.BiasRight, core.BiasRight, core.BiasRight,
		core.BiasRight, core.BiasRight,
		core.BiasCenter, core.BiasCenter, core.BiasCenter,
		core.BiasCenterLeft,
	)

	s := Compute(members)

	if s.Blindspot != core.BlindspotLeft {
		t.Errorf("expected Left blindspot with 10%% left and 60%% right, got %s", s.Blindspot)
	}
}

func TestCompute_CenterLeftCountsAsLeft(t *testing.T) {
	s := Compute(withBias(core.BiasCenterLeft, core.BiasCenterRight))

	if s.LeftPct != 50 || s.RightPct != 50 || s.CenterPct != 0 {
		t.Errorf("substring bucketing broken: left=%d center=%d right=%d", s.LeftPct, s.CenterPct, s.RightPct)
	}
}

func TestCompute_PercentagesAlwaysSumTo100(t *testing.T) {
	// 3 members: raw thirds round to 33/33, center absorbs the drift.
	s := Compute(withBias(core.BiasLeft, core.BiasRight, core.BiasCenter))

	if s.LeftPct+s.CenterPct+s.RightPct != 100 {
		t.Errorf("percentages sum to %d, want 100", s.LeftPct+s.CenterPct+s.RightPct)
	}
	if s.CenterPct != 34 {
		t.Errorf("center should absorb rounding drift, got %d", s.CenterPct)
	}
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil)
	if s.TotalSources != 0 || s.Blindspot != core.BlindspotNone {
		t.Errorf("unexpected stats for empty cluster: %+v", s)
	}
}

func TestMainImage(t *testing.T) {
	members := []core.Article{
		{ID: "a"},
		{ID: "b", ImageURL: "https://example.com/b.jpg"},
		{ID: "c", ImageURL: "https://example.com/c.jpg"},
	}

	if got := MainImage(members); got != "https://example.com/b.jpg" {
		t.Errorf("expected first non-empty image, got %q", got)
	}
	if got := MainImage(nil); got != "" {
		t.Errorf("expected empty image for no members, got %q", got)
	}
}
