// Package mapreduce merges per-section word counts into article keywords.
package mapreduce

import "github.com/dtnitsch/quote-origin/pkg/analytics"

// Map generates a word frequency map for one section of an article.
func Map(content string, a *analytics.Analytics) map[string]int {
	return a.WordFrequency(content)
}

// Reduce aggregates a slice of word frequency maps into a single map.
func Reduce(intermediate []map[string]int) map[string]int {
	finalResults := make(map[string]int)

	for _, counts := range intermediate {
		for word, count := range counts {
			finalResults[word] += count
		}
	}

	return finalResults
}

// Keywords counts words across sections and returns the n most frequent.
func Keywords(a *analytics.Analytics, n int, sections ...string) []string {
	intermediate := make([]map[string]int, 0, len(sections))
	for _, s := range sections {
		intermediate = append(intermediate, Map(s, a))
	}
	return TopWords(Reduce(intermediate), n)
}
