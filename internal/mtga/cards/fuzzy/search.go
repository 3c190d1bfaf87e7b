// Package fuzzy ranks card names by similarity to a misspelled query.
package fuzzy

import (
	"sort"
	"strings"
)

// SearchResult is a matched name with its score.
type SearchResult struct {
	Name  string
	Score int // 0-100
	Index int // position in the searched slice
}

// SearchOptions configures fuzzy search behavior.
type SearchOptions struct {
	// CaseSensitive enables case-sensitive matching
	CaseSensitive bool
	// MaxResults limits the number of results returned (0 = unlimited)
	MaxResults int
	// MinScore sets minimum score threshold (0-100)
	MinScore int
}

// DefaultSearchOptions returns the options used for card name suggestions.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		CaseSensitive: false,
		MaxResults:    3,
		MinScore:      70,
	}
}

// Search scores every name against query and returns the matches sorted by
// score, highest first. Ties keep input order.
func Search(query string, names []string, options SearchOptions) []SearchResult {
	if !options.CaseSensitive {
		query = strings.ToLower(query)
	}

	results := make([]SearchResult, 0)
	for i, name := range names {
		target := name
		if !options.CaseSensitive {
			target = strings.ToLower(name)
		}

		if score := Score(query, target); score >= options.MinScore {
			results = append(results, SearchResult{Name: name, Score: score, Index: i})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if options.MaxResults > 0 && len(results) > options.MaxResults {
		results = results[:options.MaxResults]
	}
	return results
}

// Names returns just the names of results.
func Names(results []SearchResult) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Name
	}
	return names
}

// Score returns the similarity of query and target from 0 to 100. Exact
// matches score 100, substrings at least 80, anything else by edit distance.
func Score(query, target string) int {
	if query == target {
		return 100
	}

	q, t := []rune(query), []rune(target)
	if len(q) == 0 || len(t) == 0 {
		return 0
	}

	if strings.Contains(target, query) {
		return 80 + len(q)*19/len(t)
	}

	distance := levenshtein(q, t)
	return 100 - distance*100/max(len(q), len(t))
}

// levenshtein returns the number of single-rune edits turning a into b.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
