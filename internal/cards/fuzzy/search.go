// Package fuzzy ranks card names by similarity to a query, used to suggest
// corrections for names missing from the catalog.
package fuzzy

import (
	"sort"
	"strings"
)

// Match is a candidate name with its similarity score.
type Match struct {
	Name  string
	Score int
	Index int
}

// Options configures a search.
type Options struct {
	// MaxResults limits the number of results returned (0 = unlimited)
	MaxResults int
	// MinScore sets minimum score threshold (0-100)
	MinScore int
}

// DefaultOptions returns the options used for "did you mean" suggestions.
func DefaultOptions() Options {
	return Options{
		MaxResults: 3,
		MinScore:   60,
	}
}

// Search scores every name against query, case-insensitively, and returns
// the matches sorted by score (highest first), ties in input order.
func Search(query string, names []string, options Options) []Match {
	query = strings.ToLower(strings.TrimSpace(query))

	results := make([]Match, 0)
	for i, name := range names {
		score := calculateScore(query, strings.ToLower(name))
		if score >= options.MinScore {
			results = append(results, Match{Name: name, Score: score, Index: i})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})

	if options.MaxResults > 0 && len(results) > options.MaxResults {
		results = results[:options.MaxResults]
	}
	return results
}

// Suggest returns up to DefaultOptions().MaxResults names close to query.
func Suggest(query string, names []string) []string {
	matches := Search(query, names, DefaultOptions())
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Name
	}
	return out
}

// calculateScore returns a similarity between 0 and 100.
func calculateScore(query, target string) int {
	if query == target {
		return 100
	}
	q, t := []rune(query), []rune(target)
	if len(q) == 0 || len(t) == 0 {
		return 0
	}

	if strings.HasPrefix(target, query) {
		return 85 + len(q)*14/len(t)
	}
	if strings.Contains(target, query) {
		return 70 + len(q)*14/len(t)
	}

	distance := levenshteinDistance(q, t)
	return 100 - distance*100/max(len(q), len(t))
}

// levenshteinDistance is the minimum number of single-rune edits turning s1 into s2.
func levenshteinDistance(s1, s2 []rune) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
