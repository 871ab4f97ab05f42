package agent

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lynkup/aitas/types"
)

const summarizeFallback = "(could not summarize session data)"

// Carryover rebuilds a specialist's context when it becomes active: the
// previous specialist's history is merged in (deduplicated by item ID, in
// original order, no truncation) and a system message carrying the
// specialist's identity and the session-state summary is appended. Without
// this the user would perceive a reset at every handoff.
type Carryover struct {
	logger *zap.Logger
}

// NewCarryover creates a carryover engine.
func NewCarryover(logger *zap.Logger) *Carryover {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Carryover{logger: logger.With(zap.String("component", "carryover"))}
}

// OnActivate runs on entry to any specialist. It never fails: a summary
// error degrades to a fixed placeholder.
func (c *Carryover) OnActivate(a *Agent, state SessionState) {
	if prev := state.Previous(); prev != nil && prev != a {
		if items := prev.History(); len(items) > 0 {
			added := a.Append(items...)
			c.logger.Debug("extended context from previous specialist",
				zap.String("agent", string(a.Kind())),
				zap.String("previous", string(prev.Kind())),
				zap.Int("added", added),
			)
		}
	}

	summary := c.summarize(state)
	a.Append(types.NewSystemMessage(fmt.Sprintf(
		"You are the %s. Current session data:\n%s", a.Kind().DisplayName(), summary,
	)))
}

func (c *Carryover) summarize(state SessionState) (out string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("summarize panicked", zap.Any("panic", r))
			out = summarizeFallback
		}
	}()
	out = state.Summarize()
	if out == "" {
		out = summarizeFallback
	}
	return out
}

// Truncate keeps the last keepLastN valid items of a history. System
// messages are dropped unless keepSystem; tool calls and results are dropped
// unless keepTools. A leading tool result left without its originating call
// is removed so the model never sees a dangling reference.
//
// Not invoked on the main carryover path; full history is preserved there.
func Truncate(items []types.ChatItem, keepLastN int, keepSystem, keepTools bool) []types.ChatItem {
	if len(items) == 0 {
		return nil
	}

	valid := func(it types.ChatItem) bool {
		if !keepSystem && it.Type == types.ItemMessage && it.Role == types.RoleSystem {
			return false
		}
		if !keepTools && (it.Type == types.ItemToolCall || it.Type == types.ItemToolResult) {
			return false
		}
		return true
	}

	var kept []types.ChatItem
	for i := len(items) - 1; i >= 0 && len(kept) < keepLastN; i-- {
		if valid(items[i]) {
			kept = append(kept, items[i])
		}
	}

	// reverse back to chronological order
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}

	for len(kept) > 0 && kept[0].Type == types.ItemToolResult {
		kept = kept[1:]
	}
	return kept
}
