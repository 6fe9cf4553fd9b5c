package label

import (
	"regexp"
	"sort"
	"strings"
)

var tokenSplit = regexp.MustCompile(`\W+`)

// stopwords are dropped before keyword counting. The list leans on newsroom
// boilerplate ("breaking", "live", "update") in addition to function words.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "he": true, "she": true, "they": true,
	"news": true, "report": true, "breaking": true, "today": true,
	"live": true, "update": true, "updates": true, "latest": true,
}

const topKeywords = 10

// Keywords returns the most frequent content words across the given texts,
// at most ten, ties broken by first occurrence.
func Keywords(texts []string) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	position := 0

	for _, text := range texts {
		for _, token := range tokenSplit.Split(strings.ToLower(text), -1) {
			if len(token) <= 3 || stopwords[token] {
				continue
			}
			if _, seen := counts[token]; !seen {
				firstSeen[token] = position
			}
			counts[token]++
			position++
		}
	}

	tokens := make([]string, 0, len(counts))
	for token := range counts {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return firstSeen[tokens[i]] < firstSeen[tokens[j]]
	})

	if len(tokens) > topKeywords {
		tokens = tokens[:topKeywords]
	}
	return tokens
}
