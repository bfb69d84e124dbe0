// Package host is the engine's message boundary toward presentation and
// background collaborators. Each action is its own message type; replies come
// back on a per-request channel.
package host

import (
	"encoding/json"
	"fmt"

	"github.com/dtnitsch/quote-origin/models"
)

// Action names on the wire.
const (
	ActionDetectQuotes     = "detect_quotes"
	ActionFindOrigin       = "find_origin"
	ActionDisplayResults   = "display_results"
	ActionGetLatestResults = "get_latest_results"
	ActionSetLoadingState  = "set_loading_state"
	ActionStartLoading     = "start_loading"
	ActionAnalyzeAll       = "analyze_all"
)

// Message is one of the action types below. The unexported method closes
// the set.
type Message interface {
	Action() string
	isMessage()
}

// DetectQuotes starts a fresh detection pass. HTML is used when present,
// otherwise the page at URL is fetched.
type DetectQuotes struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

// FindOrigin analyzes one quote. Fields left empty are filled from the
// current detection pass.
type FindOrigin struct {
	models.OriginRequest
}

// DisplayResults replaces the latest results and clears the loading flag.
type DisplayResults struct {
	Results []models.AnalysisResult
}

type GetLatestResults struct{}

type SetLoadingState struct {
	IsLoading bool `json:"isLoading"`
}

type StartLoading struct{}

// AnalyzeAll sweeps every quote of the current pass, one request at a time.
type AnalyzeAll struct{}

func (DetectQuotes) Action() string     { return ActionDetectQuotes }
func (FindOrigin) Action() string       { return ActionFindOrigin }
func (DisplayResults) Action() string   { return ActionDisplayResults }
func (GetLatestResults) Action() string { return ActionGetLatestResults }
func (SetLoadingState) Action() string  { return ActionSetLoadingState }
func (StartLoading) Action() string     { return ActionStartLoading }
func (AnalyzeAll) Action() string       { return ActionAnalyzeAll }

func (DetectQuotes) isMessage()     {}
func (FindOrigin) isMessage()       {}
func (DisplayResults) isMessage()   {}
func (GetLatestResults) isMessage() {}
func (SetLoadingState) isMessage()  {}
func (StartLoading) isMessage()     {}
func (AnalyzeAll) isMessage()       {}

// Reply is the response to one message.
type Reply struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(data any) Reply {
	return Reply{Success: true, Data: data}
}

func fail(err error) Reply {
	return Reply{Success: false, Error: err.Error()}
}

// Envelope is the JSON wire form of a message.
type Envelope struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a wire envelope into its message type.
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return env.Message()
}

// Message converts the envelope into its typed message.
func (env Envelope) Message() (Message, error) {
	switch env.Action {
	case ActionDetectQuotes:
		var m DetectQuotes
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case ActionFindOrigin:
		var m FindOrigin
		if err := decodePayload(env, &m.OriginRequest); err != nil {
			return nil, err
		}
		if m.QuoteID == "" {
			return nil, fmt.Errorf("%s: quote_id is required", env.Action)
		}
		return m, nil
	case ActionDisplayResults:
		var m DisplayResults
		if err := decodePayload(env, &m.Results); err != nil {
			return nil, err
		}
		return m, nil
	case ActionGetLatestResults:
		return GetLatestResults{}, nil
	case ActionSetLoadingState:
		var m SetLoadingState
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case ActionStartLoading:
		return StartLoading{}, nil
	case ActionAnalyzeAll:
		return AnalyzeAll{}, nil
	case "":
		return nil, fmt.Errorf("message has no action")
	default:
		return nil, fmt.Errorf("unknown action: %s", env.Action)
	}
}

// decodePayload leaves v untouched for an absent or null payload.
func decodePayload(env Envelope, v any) error {
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", env.Action, err)
	}
	return nil
}
