package extractor

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtract_Scenarios(t *testing.T) {
	x := New(Options{})

	tests := []struct {
		name      string
		text      string
		wantTexts []string
	}{
		{
			name:      "single straight quote",
			text:      `He said "this is a very long test quote exceeding ten chars" today.`,
			wantTexts: []string{"this is a very long test quote exceeding ten chars"},
		},
		{
			name:      "below length floor",
			text:      `She only said "ok" and left.`,
			wantTexts: nil,
		},
		{
			name:      "empty text",
			text:      "",
			wantTexts: nil,
		},
		{
			name:      "whitespace only",
			text:      "   ",
			wantTexts: nil,
		},
		{
			name:      "inner text is trimmed",
			text:      "“   padded quote with spaces   ”",
			wantTexts: []string{"padded quote with spaces"},
		},
		{
			name:      "korean curly quote",
			text:      "대통령은 “수단은 지구상에서 가장 폭력적인 지역이다”라고 말했다.",
			wantTexts: []string{"수단은 지구상에서 가장 폭력적인 지역이다"},
		},
		{
			name:      "single curly quotes are off by default",
			text:      "He wrote ‘a fairly long single quoted phrase’ there.",
			wantTexts: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := x.Extract(tt.text)
			if got.Len() != len(tt.wantTexts) {
				t.Fatalf("Extract() found %d quotes, want %d: %+v", got.Len(), len(tt.wantTexts), got.Quotes)
			}
			for i, want := range tt.wantTexts {
				if got.Quotes[i].Text != want {
					t.Errorf("quote %d text = %q, want %q", i, got.Quotes[i].Text, want)
				}
			}
		})
	}
}

func TestExtract_LengthBounds(t *testing.T) {
	x := New(Options{})

	long := strings.Repeat("a", 501)
	exact := strings.Repeat("b", 500)
	text := `"` + long + `" "` + exact + `" "123456789" "1234567890"`

	got := x.Extract(text)
	for _, q := range got.Quotes {
		n := utf8.RuneCountInString(q.Text)
		if n < 10 || n > 500 {
			t.Errorf("quote %s has length %d outside [10,500]", q.ID, n)
		}
	}
	if got.Len() != 2 {
		t.Fatalf("Extract() found %d quotes, want 2", got.Len())
	}
	if full, _ := got.FullText(got.Quotes[0].ID); full != exact {
		t.Errorf("first accepted quote should be the 500 char one")
	}
	if got.Quotes[1].Text != "1234567890" {
		t.Errorf("second quote = %q, want %q", got.Quotes[1].Text, "1234567890")
	}
}

func TestExtract_IDsFollowPatternOrder(t *testing.T) {
	x := New(Options{})

	// The straight quote comes first in the text but curly quotes are scanned first.
	text := `"straight quote comes first" then “curly quote comes second”`

	got := x.Extract(text)
	if got.Len() != 2 {
		t.Fatalf("Extract() found %d quotes, want 2", got.Len())
	}

	if got.Quotes[0].ID != "quote-0" || got.Quotes[0].Text != "curly quote comes second" {
		t.Errorf("quote-0 = %+v, want the curly quote", got.Quotes[0])
	}
	if got.Quotes[1].ID != "quote-1" || got.Quotes[1].Text != "straight quote comes first" {
		t.Errorf("quote-1 = %+v, want the straight quote", got.Quotes[1])
	}
	if got.Quotes[1].SourcePosition != 0 {
		t.Errorf("straight quote position = %d, want 0", got.Quotes[1].SourcePosition)
	}
}

func TestExtract_DuplicateQuotesGetDistinctIDs(t *testing.T) {
	x := New(Options{})

	text := `A "same text here for matching" and again "same text here for matching".`
	got := x.Extract(text)
	if got.Len() != 2 {
		t.Fatalf("Extract() found %d quotes, want 2", got.Len())
	}
	if got.Quotes[0].ID == got.Quotes[1].ID {
		t.Errorf("duplicate quotes share id %s", got.Quotes[0].ID)
	}
	if got.Quotes[0].SourcePosition >= got.Quotes[1].SourcePosition {
		t.Errorf("positions not increasing: %d, %d", got.Quotes[0].SourcePosition, got.Quotes[1].SourcePosition)
	}
}

func TestExtract_PreviewIsBounded(t *testing.T) {
	x := New(Options{})

	inner := strings.Repeat("가", 150)
	got := x.Extract(`"` + inner + `"`)
	if got.Len() != 1 {
		t.Fatalf("Extract() found %d quotes, want 1", got.Len())
	}

	q := got.Quotes[0]
	if n := utf8.RuneCountInString(q.PreviewText); n != 100 {
		t.Errorf("preview length = %d runes, want 100", n)
	}
	full, ok := got.FullText(q.ID)
	if !ok || full != inner {
		t.Errorf("FullText(%s) did not return the untruncated quote", q.ID)
	}
}

func TestExtract_PositionCountsRunes(t *testing.T) {
	x := New(Options{})

	got := x.Extract(`한국어 "quoted english text here"`)
	if got.Len() != 1 {
		t.Fatalf("Extract() found %d quotes, want 1", got.Len())
	}
	if got.Quotes[0].SourcePosition != 4 {
		t.Errorf("SourcePosition = %d, want 4", got.Quotes[0].SourcePosition)
	}
}

func TestParsePatterns(t *testing.T) {
	tests := []struct {
		name      string
		input      string
		wantNames []string
		wantErr   bool
	}{
		{name: "empty means defaults", input: "", wantNames: []string{"curly", "straight"}},
		{name: "explicit defaults", input: "curly,straight", wantNames: []string{"curly", "straight"}},
		{name: "single enabled", input: "single, straight ,curly", wantNames: []string{"curly", "straight", "single"}},
		{name: "order is fixed", input: "straight,curly", wantNames: []string{"curly", "straight"}},
		{name: "unknown pattern", input: "curly,guillemet", wantErr: true},
		{name: "only separators", input: ",,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePatterns(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePatterns(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var names []string
			for _, p := range got {
				names = append(names, p.Name)
			}
			if strings.Join(names, ",") != strings.Join(tt.wantNames, ",") {
				t.Errorf("ParsePatterns(%q) = %v, want %v", tt.input, names, tt.wantNames)
			}
		})
	}
}

func TestExtract_SingleQuotesWhenEnabled(t *testing.T) {
	patterns, err := ParsePatterns("curly,straight,single")
	if err != nil {
		t.Fatalf("ParsePatterns() failed: %v", err)
	}
	x := New(Options{Patterns: patterns})

	got := x.Extract("He wrote ‘a fairly long single quoted phrase’ there.")
	if got.Len() != 1 {
		t.Fatalf("Extract() found %d quotes, want 1", got.Len())
	}
	if got.Quotes[0].Text != "a fairly long single quoted phrase" {
		t.Errorf("quote text = %q", got.Quotes[0].Text)
	}
}
