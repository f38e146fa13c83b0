package graph

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

// searchThreshold drops matches too weak to be useful.
const searchThreshold = 0.3

// NodeMatch is a search hit.
type NodeMatch struct {
	Node
	Score float64 `json:"score"`
}

// SearchNodes ranks node labels against query. Exact and substring matches
// rank first, then fuzzy matches by Levenshtein similarity. A limit of zero
// or less returns every match above the threshold.
func (s *Store) SearchNodes(query string, limit int) ([]NodeMatch, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []NodeMatch{}, nil
	}
	nodes, err := s.ListNodes()
	if err != nil {
		return nil, err
	}

	queryTokens := tokenize(query)
	matches := []NodeMatch{}
	for _, n := range nodes {
		score := labelScore(query, queryTokens, n.Label)
		if score > searchThreshold {
			matches = append(matches, NodeMatch{Node: n, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// labelScore returns a similarity score between 0 and 1.
func labelScore(query string, queryTokens map[string]bool, label string) float64 {
	lower := strings.ToLower(label)
	if query == lower {
		return 1.0
	}
	if strings.Contains(lower, query) {
		return 0.95
	}

	global := similarity(query, lower)

	labelTokens := tokenize(lower)
	total := 0.0
	for qt := range queryTokens {
		best := 0.0
		if labelTokens[qt] {
			best = 1.0
		} else {
			for lt := range labelTokens {
				best = math.Max(best, similarity(qt, lt))
			}
		}
		total += best
	}
	tokenScore := 0.0
	if len(queryTokens) > 0 {
		tokenScore = total / float64(len(queryTokens))
	}
	return math.Max(global, tokenScore)
}

// similarity is 1 minus the Levenshtein distance normalized by length.
func similarity(a, b string) float64 {
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 0
	}
	score := 1.0 - float64(levenshtein.Distance(a, b, nil))/float64(maxLen)
	return math.Max(score, 0)
}

// tokenize splits s on any rune that is neither letter nor digit.
func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		tokens[strings.ToLower(tok)] = true
	}
	return tokens
}
