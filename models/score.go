package models

import (
	"bytes"
	"encoding/json"
)

// RawScore holds an optional score exactly as the backend sent it.
type RawScore []byte

// UnmarshalJSON keeps the raw bytes; interpretation is deferred to Float.
func (r *RawScore) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

// MarshalJSON writes the raw value back, or null when empty.
func (r RawScore) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// Float returns the score when it is a JSON number. Missing, null, strings
// and other non-numeric values report false.
func (r RawScore) Float() (float64, bool) {
	trimmed := bytes.TrimSpace(r)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return 0, false
	}
	return f, true
}

// NewRawScore encodes f as a RawScore.
func NewRawScore(f float64) RawScore {
	data, _ := json.Marshal(f)
	return RawScore(data)
}
