package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lynkup/aitas/types"
)

// OpenAICompatible talks to any chat-completions endpoint that speaks the
// OpenAI wire format.
type OpenAICompatible struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewOpenAICompatible creates a provider for the given endpoint and model.
func NewOpenAICompatible(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) *OpenAICompatible {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAICompatible{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With(zap.String("component", "llm")),
	}
}

// Name returns the provider name.
func (p *OpenAICompatible) Name() string { return "openai-compatible" }

type chatMessage struct {
	Role string `json:"role"`
	// Content is a plain string for text messages and a content-part array
	// for multimodal ones.
	Content    any            `json:"content,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters,omitempty"`
	} `json:"function"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []chatTool    `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the context and returns the model's reply.
func (p *OpenAICompatible) Complete(ctx context.Context, req *Request) (*Response, error) {
	body := chatRequest{Model: p.model}

	if req.Instructions != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.Instructions})
	}
	for _, item := range req.Items {
		body.Messages = append(body.Messages, toChatMessage(item))
	}
	for _, tool := range req.Tools {
		ct := chatTool{Type: "function"}
		ct.Function.Name = tool.Name
		ct.Function.Description = tool.Description
		ct.Function.Parameters = tool.Parameters
		body.Tools = append(body.Tools, ct)
	}

	payload, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("completion status %d: %s", resp.StatusCode, snippet)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	msg := decoded.Choices[0].Message
	text, _ := msg.Content.(string)
	out := &Response{Text: text}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			CallID:    tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

func toChatMessage(item types.ChatItem) chatMessage {
	switch item.Type {
	case types.ItemToolCall:
		m := chatMessage{Role: "assistant"}
		tc := chatToolCall{ID: item.CallID, Type: "function"}
		tc.Function.Name = item.ToolName
		tc.Function.Arguments = string(item.ToolArgs)
		m.ToolCalls = []chatToolCall{tc}
		return m
	case types.ItemToolResult:
		return chatMessage{Role: "tool", ToolCallID: item.CallID, Content: item.Content}
	default:
		m := chatMessage{Role: string(item.Role)}
		if len(item.Images) > 0 {
			m.Content = multimodalContent(item)
		} else if item.Content != "" {
			m.Content = item.Content
		}
		return m
	}
}

// multimodalContent renders a message with attached images as the
// content-part array the chat-completions format requires.
func multimodalContent(item types.ChatItem) []map[string]any {
	var parts []map[string]any
	if item.Content != "" {
		parts = append(parts, map[string]any{"type": "text", "text": item.Content})
	}
	for _, img := range item.Images {
		url := img.URL
		if img.Type == "base64" {
			url = "data:image/jpeg;base64," + img.Data
		}
		parts = append(parts, map[string]any{
			"type":      "image_url",
			"image_url": map[string]string{"url": url},
		})
	}
	return parts
}
