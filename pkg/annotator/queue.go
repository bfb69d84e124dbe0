package annotator

import (
	"strings"

	"github.com/dtnitsch/quote-origin/models"
	"golang.org/x/text/unicode/norm"
)

// quoteMarks are stripped from both sides of a match before comparing.
const quoteMarks = "\"'“”‘’「」『』《》〈〉"

// NormalizeKey strips quote and bracket marks, composes the text to NFC and
// collapses whitespace. Distinct quotes may share a key.
func NormalizeKey(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(quoteMarks, r) {
			return -1
		}
		return r
	}, norm.NFC.String(s))
	return strings.Join(strings.Fields(stripped), " ")
}

// Entry is a quote waiting to be placed in the tree.
type Entry struct {
	ID    string
	Index int // 1-based position in the detection pass
}

// MatchQueue maps a normalized key to the quotes sharing it, in discovery
// order. Keys are also kept in first-insertion order so fallback scans are
// deterministic. An exhausted key is removed.
type MatchQueue struct {
	keys   []string
	queues map[string][]Entry
}

// NewMatchQueue indexes quotes by NormalizeKey(q.Text). Quotes whose key is
// empty cannot be matched and are left out.
func NewMatchQueue(quotes []models.Quote) *MatchQueue {
	m := &MatchQueue{queues: make(map[string][]Entry)}
	for i, q := range quotes {
		key := NormalizeKey(q.Text)
		if key == "" {
			continue
		}
		if _, ok := m.queues[key]; !ok {
			m.keys = append(m.keys, key)
		}
		m.queues[key] = append(m.queues[key], Entry{ID: q.ID, Index: i + 1})
	}
	return m
}

// Has reports whether key still has waiting quotes.
func (m *MatchQueue) Has(key string) bool {
	return len(m.queues[key]) > 0
}

// Keys returns the non-empty keys in first-insertion order.
func (m *MatchQueue) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Pop removes and returns the head of key's queue.
func (m *MatchQueue) Pop(key string) (Entry, bool) {
	q := m.queues[key]
	if len(q) == 0 {
		return Entry{}, false
	}

	head := q[0]
	if len(q) == 1 {
		m.deleteKey(key)
	} else {
		m.queues[key] = q[1:]
	}
	return head, true
}

// Remove drops the entry with the given quote id, wherever it is queued.
func (m *MatchQueue) Remove(id string) bool {
	for _, key := range m.keys {
		q := m.queues[key]
		for i, e := range q {
			if e.ID != id {
				continue
			}
			if len(q) == 1 {
				m.deleteKey(key)
			} else {
				m.queues[key] = append(q[:i:i], q[i+1:]...)
			}
			return true
		}
	}
	return false
}

// Len is the number of quotes still waiting.
func (m *MatchQueue) Len() int {
	n := 0
	for _, q := range m.queues {
		n += len(q)
	}
	return n
}

func (m *MatchQueue) deleteKey(key string) {
	delete(m.queues, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			return
		}
	}
}
