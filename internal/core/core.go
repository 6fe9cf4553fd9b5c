package core

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// EmbeddingDim is the fixed dimensionality of article embeddings. It is set
// once for the lifetime of a store; rows carrying vectors of any other length
// are treated as having no embedding at all.
const EmbeddingDim = 384

// BiasRating is the seven-point political leaning attached to a publisher.
type BiasRating string

const (
	BiasFarLeft     BiasRating = "Far Left"
	BiasLeft        BiasRating = "Left"
	BiasCenterLeft  BiasRating = "Center Left"
	BiasCenter      BiasRating = "Center"
	BiasCenterRight BiasRating = "Center Right"
	BiasRight       BiasRating = "Right"
	BiasFarRight    BiasRating = "Far Right"
)

// Factuality describes a publisher's historical accuracy.
type Factuality string

const (
	FactualityVeryHigh Factuality = "Very High"
	FactualityHigh     Factuality = "High"
	FactualityMixed    Factuality = "Mixed"
	FactualityLow      Factuality = "Low"
)

// Blindspot names the political side that is ignoring a story, if any.
type Blindspot string

const (
	BlindspotLeft  Blindspot = "Left"
	BlindspotRight Blindspot = "Right"
	BlindspotNone  Blindspot = "None"
)

// Article is one publisher-provided news item. Articles are created by the
// ingestion endpoint and belong to at most one cluster at any moment.
type Article struct {
	ID         string     `json:"id"`          // Stable identifier derived from the source URL
	SourceID   string     `json:"source_id"`   // Publisher identifier
	SourceName string     `json:"source_name"` // Publisher display name
	Bias       BiasRating `json:"bias"`        // Publisher political leaning
	Factuality Factuality `json:"factuality"`  // Publisher accuracy rating
	Headline   string     `json:"headline"`
	Summary    string     `json:"summary"`
	URL        string     `json:"url"`
	ImageURL   string     `json:"image_url,omitempty"`
	PubDate    time.Time  `json:"pub_date"`            // Event time from the feed
	FetchedAt  time.Time  `json:"fetched_at"`          // Ingestion time
	ClusterID  *string    `json:"cluster_id"`          // Nil while unclustered
	Embedding  []float64  `json:"embedding,omitempty"` // Unit-norm vector of EmbeddingDim, nil when absent
	Entities   []string   `json:"entities,omitempty"`  // Named entities, nil when extraction was skipped
}

// HasEmbedding reports whether the article carries a usable vector. Vectors
// of the wrong dimension (a corrupted or legacy row) count as missing.
func (a *Article) HasEmbedding() bool {
	return len(a.Embedding) == EmbeddingDim
}

// ClusterStats is the bias distribution computed over a cluster's members.
// LeftPct + CenterPct + RightPct always sums to 100; CenterPct absorbs
// rounding drift and may be 0.
type ClusterStats struct {
	TotalSources int       `json:"total_sources"`
	LeftPct      int       `json:"left_pct"`
	CenterPct    int       `json:"center_pct"`
	RightPct     int       `json:"right_pct"`
	Blindspot    Blindspot `json:"blindspot"`
}

// Cluster is a group of articles judged to cover the same event, with a
// neutral generated label and bias statistics. Clusters reference their
// members through Article.ClusterID; they do not own the article rows.
type Cluster struct {
	ID           string       `json:"id"`
	Headline     string       `json:"headline"`
	Summary      string       `json:"summary"`
	Category     string       `json:"category"`
	MainImageURL string       `json:"main_image_url,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	Stats        ClusterStats `json:"stats"`
}

// ArticleID derives the stable article identifier from its source URL.
func ArticleID(url string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}

// NormalizeHeadline produces the form used for duplicate detection:
// trimmed and case-folded.
func NormalizeHeadline(headline string) string {
	return strings.ToLower(strings.TrimSpace(headline))
}
