// Package llm is the boundary to the underlying language model. The model
// is an external service; the runtime only needs one operation: turn a
// specialist's instructions, history, and tool set into either a spoken
// reply or tool calls.
package llm

import (
	"context"
	"encoding/json"

	"github.com/lynkup/aitas/types"
)

// ToolDef describes one callable tool offered to the model.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Request is one completion over a specialist's context.
type Request struct {
	Instructions string
	Items        []types.ChatItem
	Tools        []ToolDef
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	CallID    string
	Name      string
	Arguments json.RawMessage
}

// Response is the model's answer: assistant text, tool calls, or both.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Provider is the language-model interface.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Response, error)
}
