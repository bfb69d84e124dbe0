package annotator

import "strings"

// Strategy picks which queue a span found in the tree should consume.
// It returns the queue key, or false when it has no opinion.
type Strategy struct {
	Name    string
	Resolve func(spanKey string, q *MatchQueue) (string, bool)
}

// ExactKey matches a span to the queue with the identical key.
var ExactKey = Strategy{
	Name: "exact",
	Resolve: func(spanKey string, q *MatchQueue) (string, bool) {
		return spanKey, q.Has(spanKey)
	},
}

// Containment accepts the first waiting key that contains the span or is
// contained by it. It absorbs line-wrap and spacing differences between the
// flattened text and individual text nodes.
var Containment = Strategy{
	Name: "containment",
	Resolve: func(spanKey string, q *MatchQueue) (string, bool) {
		for _, key := range q.Keys() {
			if strings.Contains(spanKey, key) || strings.Contains(key, spanKey) {
				return key, true
			}
		}
		return "", false
	},
}

// DefaultStrategies are tried in order; the first that resolves wins.
func DefaultStrategies() []Strategy {
	return []Strategy{ExactKey, Containment}
}

// resolve runs strategies in rank order and pops the chosen queue.
func resolve(strategies []Strategy, spanKey string, q *MatchQueue) (Entry, string, bool) {
	if spanKey == "" {
		return Entry{}, "", false
	}
	for _, s := range strategies {
		key, ok := s.Resolve(spanKey, q)
		if !ok {
			continue
		}
		if e, popped := q.Pop(key); popped {
			return e, s.Name, true
		}
	}
	return Entry{}, "", false
}
