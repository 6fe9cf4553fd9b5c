package label

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"manthan/internal/core"
)

type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func members() []core.Article {
	return []core.Article{
		{ID: "a1", Headline: "Parliament passes farm bill", Summary: "The upper house cleared the bill today."},
		{ID: "a2", Headline: "Farm bill clears Rajya Sabha", Summary: "Opposition walked out during the vote."},
	}
}

func TestLabel_ParsesModelJSON(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"headline": "Farm bill passes upper house", "summary": "Parliament approved the farm bill.", "category": "Politics"}`,
	}}

	l := New(gen, time.Second)
	got := l.Label(context.Background(), members())

	if got.Headline != "Farm bill passes upper house" {
		t.Errorf("unexpected headline %q", got.Headline)
	}
	if got.Category != "Politics" {
		t.Errorf("unexpected category %q", got.Category)
	}
}

func TestLabel_ToleratesCodeFences(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"```json\n{\"headline\": \"Farm bill passes\", \"summary\": \"Done.\", \"category\": \"Politics\"}\n```",
	}}

	l := New(gen, time.Second)
	got := l.Label(context.Background(), members())

	if got.Headline != "Farm bill passes" {
		t.Errorf("fenced JSON not parsed, got headline %q", got.Headline)
	}
}

func TestLabel_FallbackOnGarbage(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"oops"}}

	l := New(gen, time.Second)
	got := l.Label(context.Background(), members())

	first := members()[0]
	if got.Headline != first.Headline || got.Summary != first.Summary || got.Category != "General" {
		t.Errorf("expected first-member fallback, got %+v", got)
	}
}

func TestLabel_FallbackOnUnknownCategory(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"headline": "Something", "summary": "Something.", "category": "Astrology"}`,
	}}

	l := New(gen, time.Second)
	got := l.Label(context.Background(), members())

	if got.Category != "General" {
		t.Errorf("off-schema category should fall back, got %q", got.Category)
	}
}

func TestLabel_RetriesThenFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("HTTP 503")}

	l := New(gen, time.Second)
	got := l.Label(context.Background(), members())

	if got.Category != "General" {
		t.Errorf("transport failure should fall back, got %+v", got)
	}
	if gen.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", gen.calls)
	}
}

func TestLabel_EmptyMembers(t *testing.T) {
	l := New(&fakeGenerator{responses: []string{"{}"}}, time.Second)
	got := l.Label(context.Background(), nil)
	if got.Category != "General" {
		t.Errorf("expected General for empty members, got %+v", got)
	}
}

func TestLabelAll_PositionallyAligned(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		`{"headline": "Same label", "summary": "s", "category": "General"}`,
	}}

	sets := make([][]core.Article, 7)
	for i := range sets {
		sets[i] = []core.Article{{
			ID:       fmt.Sprintf("a%d", i),
			Headline: fmt.Sprintf("headline %d", i),
			Summary:  fmt.Sprintf("summary %d", i),
		}}
	}

	l := New(gen, time.Second)
	labels := l.LabelAll(context.Background(), sets)

	if len(labels) != len(sets) {
		t.Fatalf("expected %d labels, got %d", len(sets), len(labels))
	}
	for i, lbl := range labels {
		if lbl.Headline == "" {
			t.Errorf("label %d is empty", i)
		}
	}
}

func TestKeywords(t *testing.T) {
	texts := []string{
		"Breaking news: Parliament passes landmark education bill today",
		"Parliament education bill passes with large majority",
		"The education bill and what it means",
	}

	got := Keywords(texts)

	if len(got) == 0 {
		t.Fatal("expected keywords")
	}
	// "education" and "bill" appear three times each; "education" occurs
	// first in the stream, so it wins the tie.
	if got[0] != "education" && got[0] != "parliament" {
		t.Errorf("unexpected top keyword %q", got[0])
	}
	for _, kw := range got {
		if stopwords[kw] {
			t.Errorf("stopword %q leaked into keywords", kw)
		}
		if len(kw) <= 3 {
			t.Errorf("short token %q leaked into keywords", kw)
		}
	}
}

func TestKeywords_TieBrokenByFirstOccurrence(t *testing.T) {
	got := Keywords([]string{"zebra apple zebra apple mango"})

	if len(got) < 2 || got[0] != "zebra" || got[1] != "apple" {
		t.Errorf("tie should resolve by first occurrence, got %v", got)
	}
}

func TestKeywords_CapsAtTen(t *testing.T) {
	text := "alpha bravo charlie delta echos foxtrot golfs hotel india juliet kilos limas"
	got := Keywords([]string{text})

	if len(got) > 10 {
		t.Errorf("expected at most 10 keywords, got %d", len(got))
	}
}
