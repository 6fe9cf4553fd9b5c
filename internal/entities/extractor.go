// Package entities extracts named entities from article text using a
// token-classification model with BIO tagging.
package entities

import (
	"context"
	"strings"
	"sync/atomic"

	"manthan/internal/logger"
)

// TaggedToken is one model token with its BIO tag, e.g. {"Nar", "B-PER"},
// {"##endra", "B-PER"}, {"Modi", "I-PER"}.
type TaggedToken struct {
	Token string `json:"token"`
	Tag   string `json:"tag"`
}

// TokenTagger runs token classification over text.
type TokenTagger interface {
	Tag(ctx context.Context, text string) ([]TaggedToken, error)
}

// Prober is implemented by taggers that can report availability up front.
type Prober interface {
	Probe(ctx context.Context) error
}

// Extractor turns text into a set of named entities. It is optional and
// self-disabling: when the backing model is unavailable at startup it stays
// disabled for the process lifetime and is never retried. Per-call failures
// downgrade to "no entities" without propagating.
type Extractor struct {
	tagger   TokenTagger
	disabled atomic.Bool
}

// New creates an Extractor over the given tagger, probing it once. A failed
// probe disables extraction for the process lifetime.
func New(ctx context.Context, tagger TokenTagger) *Extractor {
	e := &Extractor{tagger: tagger}
	if tagger == nil {
		e.disabled.Store(true)
		return e
	}
	if p, ok := tagger.(Prober); ok {
		if err := p.Probe(ctx); err != nil {
			logger.Warn("entities: tagger unavailable, entity extraction disabled", "error", err.Error())
			e.disabled.Store(true)
		}
	}
	return e
}

// Enabled reports whether entity extraction is active.
func (e *Extractor) Enabled() bool {
	return !e.disabled.Load()
}

// Extract returns the named entities found in text, in first-occurrence
// order. When extraction is disabled or the tagger fails, it returns nil.
func (e *Extractor) Extract(ctx context.Context, text string) []string {
	if !e.Enabled() {
		return nil
	}
	tokens, err := e.tagger.Tag(ctx, text)
	if err != nil {
		logger.Debug("entities: tagging failed, continuing without entities", "error", err.Error())
		return nil
	}
	return Decode(tokens)
}

// Decode reassembles entities from a BIO-tagged token stream:
//
//   - a "##" subword attaches to the current entity without a separator
//   - a B-* tag flushes the current entity and starts a new one
//   - an I-* tag continues the current entity, or starts one if none is
//     open (tolerant recovery from truncated tag sequences)
//   - an O tag flushes the current entity
//
// Entities of length <= 2 are discarded; duplicates are removed preserving
// first-occurrence order.
func Decode(tokens []TaggedToken) []string {
	var entities []string
	var current strings.Builder

	flush := func() {
		entity := strings.TrimSpace(current.String())
		current.Reset()
		if len(entity) > 2 {
			entities = append(entities, entity)
		}
	}

	for _, t := range tokens {
		if strings.HasPrefix(t.Token, "##") {
			if current.Len() > 0 {
				current.WriteString(strings.TrimPrefix(t.Token, "##"))
			}
			continue
		}

		switch {
		case strings.HasPrefix(t.Tag, "B-"):
			flush()
			current.WriteString(t.Token)
		case strings.HasPrefix(t.Tag, "I-"):
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(t.Token)
		default:
			flush()
		}
	}
	flush()

	return dedupe(entities)
}

func dedupe(entities []string) []string {
	if len(entities) < 2 {
		return entities
	}
	seen := make(map[string]bool, len(entities))
	out := entities[:0]
	for _, e := range entities {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}
