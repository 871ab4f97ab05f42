package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lynkup/aitas/types"
)

func TestComplete_TextReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "sounds good"}},
			},
		})
	}))
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "key-1", "gpt-4o", 5*time.Second, nil)
	resp, err := p.Complete(context.Background(), &Request{
		Instructions: "be helpful",
		Items:        []types.ChatItem{types.NewUserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "sounds good", resp.Text)
	assert.Empty(t, resp.ToolCalls)
}

func TestComplete_ToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{
						{"id": "call-1", "type": "function", "function": map[string]any{
							"name":      "remember_info",
							"arguments": `{"key":"truck number","value":"42"}`,
						}},
					},
				}},
			},
		})
	}))
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "", "gpt-4o", 5*time.Second, nil)
	resp, err := p.Complete(context.Background(), &Request{
		Items: []types.ChatItem{types.NewUserMessage("remember my truck number is 42")},
		Tools: []ToolDef{{Name: "remember_info", Description: "store a fact"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call-1", resp.ToolCalls[0].CallID)
	assert.Equal(t, "remember_info", resp.ToolCalls[0].Name)
}

func TestComplete_ToolResultRoundTrip(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "done"}},
			},
		})
	}))
	defer srv.Close()

	call := types.NewToolCall("diagnose", json.RawMessage(`{}`))
	result := types.NewToolResult(call.CallID, "diagnose", "all nominal")

	p := NewOpenAICompatible(srv.URL, "", "gpt-4o", 5*time.Second, nil)
	_, err := p.Complete(context.Background(), &Request{Items: []types.ChatItem{call, result}})
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	require.Len(t, got.Messages[0].ToolCalls, 1)
	assert.Equal(t, call.CallID, got.Messages[0].ToolCalls[0].ID)
	assert.Equal(t, "tool", got.Messages[1].Role)
	assert.Equal(t, call.CallID, got.Messages[1].ToolCallID)
}

func TestComplete_ImageContent(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		body, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "I see a condenser coil"}},
			},
		})
	}))
	defer srv.Close()

	frame := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	item := types.NewUserMessage("what do you see?").WithImages([]types.ImageContent{
		{Type: "base64", Data: frame},
	})

	p := NewOpenAICompatible(srv.URL, "", "gpt-4o", 5*time.Second, nil)
	resp, err := p.Complete(context.Background(), &Request{Items: []types.ChatItem{item}})
	require.NoError(t, err)
	assert.Equal(t, "I see a condenser coil", resp.Text)

	var got struct {
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type     string `json:"type"`
				Text     string `json:"text"`
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Content, 2)
	assert.Equal(t, "text", got.Messages[0].Content[0].Type)
	assert.Equal(t, "what do you see?", got.Messages[0].Content[0].Text)
	assert.Equal(t, "image_url", got.Messages[0].Content[1].Type)
	assert.Equal(t, "data:image/jpeg;base64,"+frame, got.Messages[0].Content[1].ImageURL.URL)
}

func TestComplete_ImageOnlyMessage(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer srv.Close()

	item := types.NewUserMessage("").WithImages([]types.ImageContent{
		{Type: "url", URL: "https://example.com/frame.jpg"},
	})

	p := NewOpenAICompatible(srv.URL, "", "gpt-4o", 5*time.Second, nil)
	_, err := p.Complete(context.Background(), &Request{Items: []types.ChatItem{item}})
	require.NoError(t, err)

	assert.Contains(t, string(body), `"image_url":{"url":"https://example.com/frame.jpg"}`)
	assert.NotContains(t, string(body), `"type":"text"`)
}

func TestComplete_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "", "gpt-4o", 5*time.Second, nil)
	_, err := p.Complete(context.Background(), &Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
