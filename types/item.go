package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of a conversation participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ItemType distinguishes the kinds of entries in a conversation history.
type ItemType string

const (
	ItemMessage    ItemType = "message"
	ItemToolCall   ItemType = "tool_call"
	ItemToolResult ItemType = "tool_result"
)

// ImageContent represents image data attached to a multimodal item.
type ImageContent struct {
	Type string `json:"type"` // "url" or "base64"
	URL  string `json:"url,omitempty"`
	Data string `json:"data,omitempty"` // base64 encoded
}

// ChatItem is one entry in a specialist's conversation history.
// Every item carries a stable unique ID; history merges across specialists
// deduplicate by this ID.
type ChatItem struct {
	ID        string          `json:"id"`
	Type      ItemType        `json:"type"`
	Role      Role            `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolArgs  json.RawMessage `json:"tool_args,omitempty"`
	CallID    string          `json:"call_id,omitempty"` // links a tool result to its call
	Images    []ImageContent  `json:"images,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// NewMessage creates a new message item with the given role and content.
func NewMessage(role Role, content string) ChatItem {
	return ChatItem{
		ID:        uuid.NewString(),
		Type:      ItemMessage,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewSystemMessage creates a new system message item.
func NewSystemMessage(content string) ChatItem {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message item.
func NewUserMessage(content string) ChatItem {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message item.
func NewAssistantMessage(content string) ChatItem {
	return NewMessage(RoleAssistant, content)
}

// NewToolCall creates a tool invocation item.
func NewToolCall(name string, args json.RawMessage) ChatItem {
	return ChatItem{
		ID:        uuid.NewString(),
		Type:      ItemToolCall,
		Role:      RoleAssistant,
		ToolName:  name,
		ToolArgs:  args,
		CallID:    uuid.NewString(),
		Timestamp: time.Now(),
	}
}

// NewToolCallWithID creates a tool invocation item carrying an externally
// assigned call id (e.g. the model provider's).
func NewToolCallWithID(callID, name string, args json.RawMessage) ChatItem {
	item := NewToolCall(name, args)
	if callID != "" {
		item.CallID = callID
	}
	return item
}

// NewToolResult creates the result item for a previously issued tool call.
func NewToolResult(callID, name, content string) ChatItem {
	return ChatItem{
		ID:        uuid.NewString(),
		Type:      ItemToolResult,
		Role:      RoleTool,
		ToolName:  name,
		Content:   content,
		CallID:    callID,
		Timestamp: time.Now(),
	}
}

// WithImages adds images to the item.
func (c ChatItem) WithImages(images []ImageContent) ChatItem {
	c.Images = images
	return c
}
