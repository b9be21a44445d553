package catalog

import (
	"sort"
	"strings"
	"unicode"
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true, "at": true, "to": true, "for": true,
	"of": true, "with": true, "and": true, "or": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "can": true, "could": true, "should": true,
	"would": true, "will": true, "may": true, "might": true, "must": true, "me": true, "my": true,
	"i": true, "we": true, "you": true, "it": true, "this": true, "that": true, "show": true,
	"give": true, "want": true, "need": true, "add": true, "please": true, "full": true, "dish": true,
}

const (
	exactScore     = 5.0
	equalWordScore = 4.0
	wholeWordScore = 2.0
	partialScore   = 0.5
)

// Relevance scores how well a free-text query matches a target string.
// It is a ranking signal only.
func Relevance(query, target string) float64 {
	q := strings.TrimSpace(stripPunctuation(strings.ToLower(query)))
	t := strings.ToLower(target)
	if q == "" {
		return 0
	}

	if strings.Contains(t, q) {
		return exactScore
	}

	var words []string
	for _, w := range strings.Fields(q) {
		if len(w) > 2 && !stopWords[w] {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return 0
	}

	targetWords := make(map[string]bool)
	for _, w := range strings.FieldsFunc(t, func(r rune) bool { return !isWordRune(r) }) {
		targetWords[w] = true
	}

	score := 0.0
	for _, w := range words {
		switch {
		case t == w:
			score += equalWordScore
		case targetWords[w]:
			score += wholeWordScore
		case len(w) > 4 && strings.Contains(t, w):
			score += partialScore
		}
	}
	return score
}

// SearchResult is a ranked catalog hit
type SearchResult struct {
	Entry
	Score float64 `json:"score"`
}

// Search ranks items by relevance of the query against code, name and
// description. A limit of zero returns every match.
func (c *Catalog) Search(query string, limit int) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	var results []SearchResult
	for _, e := range c.entries {
		score := Relevance(query, e.Item.Name)
		if s := Relevance(query, e.Item.Description) / 2; s > score {
			score = s
		}
		if strings.Contains(e.Item.Code, query) && score < exactScore {
			score = exactScore
		}
		if score > 0 {
			results = append(results, SearchResult{Entry: e, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
