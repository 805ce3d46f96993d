package api

import (
	"encoding/json"
	"maps"
	"math"

	"github.com/lamim/dialprobe/pkg/models"
)

// Params holds optional request parameters forwarded verbatim into the request body.
// Names and values are not validated; the gateway decides what it accepts.
type Params map[string]any

// Clone returns a shallow copy; a nil receiver yields an empty map
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	return maps.Clone(p)
}

// Merge returns a copy of p with every key of override applied on top
func (p Params) Merge(override Params) Params {
	out := p.Clone()
	maps.Copy(out, override)
	return out
}

// N returns the requested number of choices.
// ok is false when n is absent or not a whole number, in which case the gateway default of 1 applies.
func (p Params) N() (n int, ok bool) {
	v, present := p["n"]
	if !present {
		return 1, false
	}
	var f float64
	switch x := v.(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case float32:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 1, false
		}
		return int(i), true
	default:
		return 1, false
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 1, false
	}
	return int(f), true
}

// ChatCompletionResponse represents an OpenAI-compatible chat completion response
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a single completion choice
type Choice struct {
	Index        int            `json:"index"`
	Message      models.Message `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ModelList is the payload of the models endpoint
type ModelList struct {
	Object string      `json:"object,omitempty"`
	Data   []ModelInfo `json:"data"`
}

// ModelInfo describes one deployment exposed by the gateway
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// IDs returns the deployment identifiers in response order
func (l *ModelList) IDs() []string {
	ids := make([]string, 0, len(l.Data))
	for _, m := range l.Data {
		ids = append(ids, m.ID)
	}
	return ids
}
