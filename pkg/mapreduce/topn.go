package mapreduce

import (
	"fmt"
	"sort"
	"strings"
)

type kv struct {
	Key   string
	Value int
}

// isValidKeyword drops tokens that are only digits; years and counts make
// poor search keywords.
func isValidKeyword(word string) bool {
	return strings.IndexFunc(word, func(r rune) bool {
		return r < '0' || r > '9'
	}) >= 0
}

// ranked sorts valid keywords by count (descending), then alphabetically, and
// keeps the top n.
func ranked(wordCounts map[string]int, n int) []kv {
	var ss []kv
	for k, v := range wordCounts {
		if isValidKeyword(k) {
			ss = append(ss, kv{k, v})
		}
	}

	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Value != ss[j].Value {
			return ss[i].Value > ss[j].Value
		}
		return ss[i].Key < ss[j].Key
	})

	if n < 0 {
		n = 0
	}
	if len(ss) > n {
		ss = ss[:n]
	}
	return ss
}

// TopWords returns the top N words without counts, for backend payloads.
func TopWords(wordCounts map[string]int, n int) []string {
	ss := ranked(wordCounts, n)
	words := make([]string, len(ss))
	for i, e := range ss {
		words[i] = e.Key
	}
	return words
}

// TopKeywords returns the top N keywords formatted as "word:count"
// (e.g., "election:12").
func TopKeywords(wordCounts map[string]int, n int) []string {
	ss := ranked(wordCounts, n)
	keywords := make([]string, len(ss))
	for i, e := range ss {
		keywords[i] = fmt.Sprintf("%s:%d", e.Key, e.Value)
	}
	return keywords
}
