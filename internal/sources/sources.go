// Package sources holds the configured publisher registry. Bias and
// factuality ratings are per-publisher editorial assessments; every ingested
// article inherits them from its source.
package sources

import (
	"time"

	"manthan/internal/core"
)

// Publisher is one configured news source.
type Publisher struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Bias       core.BiasRating `json:"bias"`
	Factuality core.Factuality `json:"factuality"`
}

// registry is the configured set of Indian publishers, keyed by source ID.
var registry = map[string]Publisher{
	"the-hindu":        {ID: "the-hindu", Name: "The Hindu", Bias: core.BiasCenterLeft, Factuality: core.FactualityVeryHigh},
	"indian-express":   {ID: "indian-express", Name: "The Indian Express", Bias: core.BiasCenter, Factuality: core.FactualityVeryHigh},
	"times-of-india":   {ID: "times-of-india", Name: "The Times of India", Bias: core.BiasCenter, Factuality: core.FactualityHigh},
	"hindustan-times":  {ID: "hindustan-times", Name: "Hindustan Times", Bias: core.BiasCenter, Factuality: core.FactualityHigh},
	"ndtv":             {ID: "ndtv", Name: "NDTV", Bias: core.BiasCenterLeft, Factuality: core.FactualityHigh},
	"india-today":      {ID: "india-today", Name: "India Today", Bias: core.BiasCenter, Factuality: core.FactualityHigh},
	"deccan-herald":    {ID: "deccan-herald", Name: "Deccan Herald", Bias: core.BiasCenter, Factuality: core.FactualityHigh},
	"the-wire":         {ID: "the-wire", Name: "The Wire", Bias: core.BiasLeft, Factuality: core.FactualityHigh},
	"scroll":           {ID: "scroll", Name: "Scroll.in", Bias: core.BiasLeft, Factuality: core.FactualityHigh},
	"the-caravan":      {ID: "the-caravan", Name: "The Caravan", Bias: core.BiasLeft, Factuality: core.FactualityHigh},
	"the-quint":        {ID: "the-quint", Name: "The Quint", Bias: core.BiasCenterLeft, Factuality: core.FactualityHigh},
	"the-print":        {ID: "the-print", Name: "ThePrint", Bias: core.BiasCenter, Factuality: core.FactualityHigh},
	"news18":           {ID: "news18", Name: "News18", Bias: core.BiasCenterRight, Factuality: core.FactualityHigh},
	"firstpost":        {ID: "firstpost", Name: "Firstpost", Bias: core.BiasCenterRight, Factuality: core.FactualityHigh},
	"wion":             {ID: "wion", Name: "WION", Bias: core.BiasCenterRight, Factuality: core.FactualityHigh},
	"zee-news":         {ID: "zee-news", Name: "Zee News", Bias: core.BiasRight, Factuality: core.FactualityMixed},
	"republic-world":   {ID: "republic-world", Name: "Republic World", Bias: core.BiasRight, Factuality: core.FactualityMixed},
	"swarajya":         {ID: "swarajya", Name: "Swarajya", Bias: core.BiasRight, Factuality: core.FactualityMixed},
	"opindia":          {ID: "opindia", Name: "OpIndia", Bias: core.BiasFarRight, Factuality: core.FactualityLow},
	"newslaundry":      {ID: "newslaundry", Name: "Newslaundry", Bias: core.BiasLeft, Factuality: core.FactualityHigh},
}

// Lookup returns the publisher for a source ID.
func Lookup(sourceID string) (Publisher, bool) {
	p, ok := registry[sourceID]
	return p, ok
}

// All returns every configured publisher.
func All() []Publisher {
	out := make([]Publisher, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	return out
}

// IngestArticle is the wire shape the ingestion endpoint accepts. It is the
// single translation point between feed-derived JSON and core.Article.
type IngestArticle struct {
	SourceID   string    `json:"source_id"`
	SourceName string    `json:"source_name,omitempty"`
	Bias       string    `json:"bias,omitempty"`
	Factuality string    `json:"factuality,omitempty"`
	Headline   string    `json:"headline"`
	Summary    string    `json:"summary"`
	URL        string    `json:"url"`
	ImageURL   string    `json:"image_url,omitempty"`
	PubDate    time.Time `json:"pub_date"`
}

// ToArticle translates an ingest payload into the canonical article record.
// Publisher identity, bias and factuality come from the registry when the
// source is known; an unknown source keeps whatever the payload carried,
// defaulting to Center / Mixed.
func (in IngestArticle) ToArticle(now time.Time) core.Article {
	a := core.Article{
		ID:         core.ArticleID(in.URL),
		SourceID:   in.SourceID,
		SourceName: in.SourceName,
		Bias:       core.BiasRating(in.Bias),
		Factuality: core.Factuality(in.Factuality),
		Headline:   in.Headline,
		Summary:    in.Summary,
		URL:        in.URL,
		ImageURL:   in.ImageURL,
		PubDate:    in.PubDate.UTC(),
		FetchedAt:  now.UTC(),
	}

	if p, ok := Lookup(in.SourceID); ok {
		a.SourceName = p.Name
		a.Bias = p.Bias
		a.Factuality = p.Factuality
	} else {
		if a.SourceName == "" {
			a.SourceName = in.SourceID
		}
		if a.Bias == "" {
			a.Bias = core.BiasCenter
		}
		if a.Factuality == "" {
			a.Factuality = core.FactualityMixed
		}
	}

	return a
}
