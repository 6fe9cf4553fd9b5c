// Package label produces neutral headlines, summaries and categories for
// story clusters via an external generative model.
package label

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"manthan/internal/core"
	"manthan/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// Categories the model may assign. Anything else falls back to "General".
var Categories = []string{"Politics", "Business", "Technology", "Sports", "Entertainment", "General"}

const (
	// batchSize bounds parallel model calls; batches run sequentially to
	// stay under the external rate limit.
	batchSize = 5

	maxRetries      = 2 // 3 attempts total
	initialInterval = 500 * time.Millisecond
	sampleHeadlines = 5
)

// Label is a neutral story label.
type Label struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Category string `json:"category"`
}

// Generator produces text from a prompt. Implemented by the Gemini client;
// tests substitute a fake.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Labeler labels clusters through a Generator with bounded retries and a
// deterministic fallback.
type Labeler struct {
	gen     Generator
	timeout time.Duration
}

// New creates a Labeler. timeout caps each model request; an expired request
// counts as a transient failure and routes to the fallback after retries.
func New(gen Generator, timeout time.Duration) *Labeler {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Labeler{gen: gen, timeout: timeout}
}

// LabelAll labels every member set, batchSize at a time. The returned slice
// is positionally aligned with the input.
func (l *Labeler) LabelAll(ctx context.Context, memberSets [][]core.Article) []Label {
	labels := make([]Label, len(memberSets))

	for start := 0; start < len(memberSets); start += batchSize {
		end := start + batchSize
		if end > len(memberSets) {
			end = len(memberSets)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				labels[i] = l.Label(gctx, memberSets[i])
				return nil
			})
		}
		// Workers never return errors; failures become fallback labels.
		_ = g.Wait()
	}

	return labels
}

// Label produces a neutral label for the cluster's members. On any failure
// (transport after retries, timeout, malformed or off-schema JSON) it falls
// back to the first member's own headline and summary with category
// "General".
func (l *Labeler) Label(ctx context.Context, members []core.Article) Label {
	if len(members) == 0 {
		return Label{Category: "General"}
	}

	prompt := buildPrompt(members)

	raw, err := l.generateWithRetry(ctx, prompt)
	if err != nil {
		logger.Warn("label: generation failed, using fallback", "error", err.Error())
		return fallback(members)
	}

	parsed, err := parseLabel(raw)
	if err != nil {
		logger.Warn("label: unusable model response, using fallback", "error", err.Error())
		return fallback(members)
	}
	return parsed
}

func (l *Labeler) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval
	policy.Multiplier = 2

	var raw string
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()

		var err error
		raw, err = l.gen.Generate(callCtx, prompt)
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
	return raw, err
}

func buildPrompt(members []core.Article) string {
	texts := make([]string, 0, len(members))
	for _, m := range members {
		texts = append(texts, m.Headline+" "+m.Summary)
	}
	keywords := Keywords(texts)

	var b strings.Builder
	b.WriteString("You are labeling a cluster of news reports that cover the same real-world event.\n")
	b.WriteString("Write a strictly neutral label: no loaded language, no editorializing, no attribution of motive.\n\n")

	b.WriteString("Key terms across the coverage: ")
	b.WriteString(strings.Join(keywords, ", "))
	b.WriteString("\n\nSample headlines:\n")
	for i, m := range members {
		if i >= sampleHeadlines {
			break
		}
		fmt.Fprintf(&b, "- %s\n", m.Headline)
	}

	b.WriteString("\nRespond with a single JSON object and nothing else:\n")
	b.WriteString(`{"headline": "<neutral headline>", "summary": "<neutral summary, 30 words or fewer>", "category": "<one of: `)
	b.WriteString(strings.Join(Categories, ", "))
	b.WriteString(`>"}`)

	return b.String()
}

// parseLabel extracts the label from the model response, tolerating markdown
// code fences around the JSON object.
func parseLabel(raw string) (Label, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed Label
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Label{}, fmt.Errorf("model response is not valid JSON: %w", err)
	}
	if parsed.Headline == "" {
		return Label{}, fmt.Errorf("model response is missing a headline")
	}
	if !validCategory(parsed.Category) {
		return Label{}, fmt.Errorf("model response has unknown category %q", parsed.Category)
	}
	return parsed, nil
}

func validCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

func fallback(members []core.Article) Label {
	first := members[0]
	return Label{
		Headline: first.Headline,
		Summary:  first.Summary,
		Category: "General",
	}
}
