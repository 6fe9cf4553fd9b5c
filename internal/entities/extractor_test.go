package entities

import (
	"context"
	"fmt"
	"testing"
)

func TestDecode_BasicEntities(t *testing.T) {
	tokens := []TaggedToken{
		{Token: "Narendra", Tag: "B-PER"},
		{Token: "Modi", Tag: "I-PER"},
		{Token: "visited", Tag: "O"},
		{Token: "Chennai", Tag: "B-LOC"},
	}

	got := Decode(tokens)
	want := []string{"Narendra Modi", "Chennai"}
	assertEntities(t, got, want)
}

func TestDecode_SubwordContinuation(t *testing.T) {
	tokens := []TaggedToken{
		{Token: "Ben", Tag: "B-ORG"},
		{Token: "##galuru", Tag: "B-ORG"},
		{Token: "Metro", Tag: "I-ORG"},
	}

	got := Decode(tokens)
	assertEntities(t, got, []string{"Bengaluru Metro"})
}

func TestDecode_NewBFlushesPrevious(t *testing.T) {
	tokens := []TaggedToken{
		{Token: "Congress", Tag: "B-ORG"},
		{Token: "BJP", Tag: "B-ORG"},
	}

	got := Decode(tokens)
	assertEntities(t, got, []string{"Congress", "BJP"})
}

func TestDecode_OrphanedIStartsEntity(t *testing.T) {
	// An I- tag with no open entity is tolerated as a start.
	tokens := []TaggedToken{
		{Token: "Kerala", Tag: "I-LOC"},
		{Token: "floods", Tag: "O"},
	}

	got := Decode(tokens)
	assertEntities(t, got, []string{"Kerala"})
}

func TestDecode_ShortEntitiesDiscarded(t *testing.T) {
	tokens := []TaggedToken{
		{Token: "EU", Tag: "B-ORG"},
		{Token: "said", Tag: "O"},
		{Token: "RBI", Tag: "B-ORG"},
	}

	got := Decode(tokens)
	assertEntities(t, got, []string{"RBI"})
}

func TestDecode_DuplicatesRemoved(t *testing.T) {
	tokens := []TaggedToken{
		{Token: "Delhi", Tag: "B-LOC"},
		{Token: "and", Tag: "O"},
		{Token: "Delhi", Tag: "B-LOC"},
	}

	got := Decode(tokens)
	assertEntities(t, got, []string{"Delhi"})
}

func TestDecode_SubwordWithNoOpenEntityIgnored(t *testing.T) {
	tokens := []TaggedToken{
		{Token: "##ing", Tag: "O"},
		{Token: "Mumbai", Tag: "B-LOC"},
	}

	got := Decode(tokens)
	assertEntities(t, got, []string{"Mumbai"})
}

type fakeTagger struct {
	tokens   []TaggedToken
	tagErr   error
	probeErr error
}

func (f *fakeTagger) Tag(ctx context.Context, text string) ([]TaggedToken, error) {
	return f.tokens, f.tagErr
}

func (f *fakeTagger) Probe(ctx context.Context) error {
	return f.probeErr
}

func TestExtractor_DisabledAfterFailedProbe(t *testing.T) {
	tagger := &fakeTagger{
		tokens:   []TaggedToken{{Token: "Delhi", Tag: "B-LOC"}},
		probeErr: fmt.Errorf("connection refused"),
	}

	e := New(context.Background(), tagger)

	if e.Enabled() {
		t.Fatal("extractor should be disabled after a failed probe")
	}
	if got := e.Extract(context.Background(), "Delhi wakes up"); got != nil {
		t.Errorf("disabled extractor should return nil, got %v", got)
	}
}

func TestExtractor_TagErrorDowngradesToNoEntities(t *testing.T) {
	tagger := &fakeTagger{tagErr: fmt.Errorf("model crashed")}

	e := New(context.Background(), tagger)

	if !e.Enabled() {
		t.Fatal("per-call errors must not disable the extractor")
	}
	if got := e.Extract(context.Background(), "anything"); got != nil {
		t.Errorf("expected nil entities on tag error, got %v", got)
	}
	if !e.Enabled() {
		t.Error("extractor disabled itself on a per-call error")
	}
}

func TestExtractor_Extracts(t *testing.T) {
	tagger := &fakeTagger{tokens: []TaggedToken{
		{Token: "Sachin", Tag: "B-PER"},
		{Token: "Tendulkar", Tag: "I-PER"},
	}}

	e := New(context.Background(), tagger)
	got := e.Extract(context.Background(), "Sachin Tendulkar retires")
	assertEntities(t, got, []string{"Sachin Tendulkar"})
}

func assertEntities(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
