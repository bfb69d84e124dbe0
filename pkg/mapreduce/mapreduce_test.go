package mapreduce

import (
	"testing"

	"github.com/dtnitsch/quote-origin/pkg/analytics"
	"github.com/google/go-cmp/cmp"
)

func TestReduce(t *testing.T) {
	got := Reduce([]map[string]int{{"a": 1, "b": 2}, {"b": 3}, {}})
	want := map[string]int{"a": 1, "b": 5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Reduce() mismatch (-want +got):\n%s", diff)
	}
}

func TestKeywords_AcrossSections(t *testing.T) {
	a := analytics.ForLanguage("en")
	got := Keywords(a, 2, "Budget vote delayed", "The budget vote was delayed again in 2024", "budget")

	want := []string{"budget", "delayed"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Keywords() mismatch (-want +got):\n%s", diff)
	}
}

func TestTopKeywords(t *testing.T) {
	counts := map[string]int{"election": 12, "2024": 30, "vote": 12, "poll": 3}

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"digits dropped", 3, []string{"election:12", "vote:12", "poll:3"}},
		{"limit", 1, []string{"election:12"}},
		{"zero", 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopKeywords(counts, tt.n)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("TopKeywords() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
