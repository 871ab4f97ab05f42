package agent

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/lynkup/aitas/types"
)

// TokenCounter counts tokens with a tiktoken encoding, lazily initialized.
// Used by TruncateToBudget when a model context window, not an item count, is
// the constraint.
type TokenCounter struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
	initErr  error
}

// NewTokenCounter creates a counter for the given tiktoken encoding
// (e.g. "o200k_base" for the gpt-4o family).
func NewTokenCounter(encoding string) *TokenCounter {
	if encoding == "" {
		encoding = "o200k_base"
	}
	return &TokenCounter{encoding: encoding}
}

func (t *TokenCounter) init() error {
	t.once.Do(func() {
		t.enc, t.initErr = tiktoken.GetEncoding(t.encoding)
	})
	return t.initErr
}

// Count returns the token count of the text, falling back to a bytes/4
// estimate when the encoding cannot be loaded.
func (t *TokenCounter) Count(text string) int {
	if err := t.init(); err != nil {
		return (len(text) + 3) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}

// TruncateToBudget drops the oldest items until the history fits the token
// budget, then removes any leading orphaned tool result. The newest item is
// always kept, even when it alone exceeds the budget.
func TruncateToBudget(items []types.ChatItem, counter *TokenCounter, budget int) []types.ChatItem {
	if len(items) == 0 || budget <= 0 {
		return nil
	}

	total := 0
	start := len(items)
	for i := len(items) - 1; i >= 0; i-- {
		cost := counter.Count(items[i].Content) + counter.Count(string(items[i].ToolArgs))
		if total+cost > budget && start < len(items) {
			break
		}
		total += cost
		start = i
	}

	kept := append([]types.ChatItem(nil), items[start:]...)
	for len(kept) > 0 && kept[0].Type == types.ItemToolResult {
		kept = kept[1:]
	}
	return kept
}
