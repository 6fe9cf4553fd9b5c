package sources

import (
	"testing"
	"time"

	"manthan/internal/core"
)

func TestToArticle_KnownSourceUsesRegistryRatings(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := IngestArticle{
		SourceID: "the-wire",
		// The payload's own ratings are ignored for known sources.
		Bias:       string(core.BiasFarRight),
		Factuality: string(core.FactualityLow),
		Headline:   "Headline",
		URL:        "https://thewire.in/story",
		PubDate:    now.Add(-time.Hour),
	}

	a := in.ToArticle(now)

	if a.Bias != core.BiasLeft || a.Factuality != core.FactualityHigh {
		t.Errorf("registry ratings not applied: bias=%s factuality=%s", a.Bias, a.Factuality)
	}
	if a.SourceName != "The Wire" {
		t.Errorf("registry display name not applied: %q", a.SourceName)
	}
	if a.ID != core.ArticleID(in.URL) {
		t.Error("article ID must derive from the URL")
	}
	if !a.FetchedAt.Equal(now) {
		t.Errorf("fetched_at should be the ingest time, got %v", a.FetchedAt)
	}
}

func TestToArticle_UnknownSourceDefaults(t *testing.T) {
	now := time.Now().UTC()
	in := IngestArticle{
		SourceID: "some-blog",
		Headline: "Headline",
		URL:      "https://someblog.example/post",
		PubDate:  now,
	}

	a := in.ToArticle(now)

	if a.Bias != core.BiasCenter || a.Factuality != core.FactualityMixed {
		t.Errorf("unknown source should default to Center/Mixed, got %s/%s", a.Bias, a.Factuality)
	}
	if a.SourceName != "some-blog" {
		t.Errorf("unknown source should fall back to its ID as name, got %q", a.SourceName)
	}
}

func TestToArticle_UnknownSourceKeepsPayloadRatings(t *testing.T) {
	now := time.Now().UTC()
	in := IngestArticle{
		SourceID:   "regional-daily",
		SourceName: "Regional Daily",
		Bias:       string(core.BiasCenterRight),
		Factuality: string(core.FactualityHigh),
		Headline:   "Headline",
		URL:        "https://regional.example/1",
		PubDate:    now,
	}

	a := in.ToArticle(now)

	if a.Bias != core.BiasCenterRight || a.Factuality != core.FactualityHigh {
		t.Errorf("payload ratings should survive for unknown sources, got %s/%s", a.Bias, a.Factuality)
	}
	if a.SourceName != "Regional Daily" {
		t.Errorf("payload name should survive, got %q", a.SourceName)
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup("ndtv"); !ok {
		t.Error("expected ndtv in the registry")
	}
	if _, ok := Lookup("no-such-source"); ok {
		t.Error("unexpected hit for an unregistered source")
	}
}

func TestAll(t *testing.T) {
	all := All()
	if len(all) != len(registry) {
		t.Errorf("All() returned %d publishers, registry has %d", len(all), len(registry))
	}
}
