// Package agent implements the fixed specialist set of the assistant, the
// name-keyed dispatcher that hands the conversation between specialists, and
// the context-carryover that keeps a handoff invisible to the user.
package agent

import (
	"sync"

	"go.uber.org/zap"

	"github.com/lynkup/aitas/types"
)

// Kind identifies one of the fixed specialists. The set is closed: dispatch
// is a lookup over these names, not an open plugin surface.
type Kind string

const (
	KindMain      Kind = "main"
	KindVisual    Kind = "visual"
	KindDiagnosis Kind = "diagnosis"
	KindWorkflow  Kind = "workflow"
	KindNote      Kind = "note"
)

// Kinds lists every registered specialist kind.
func Kinds() []Kind {
	return []Kind{KindMain, KindVisual, KindDiagnosis, KindWorkflow, KindNote}
}

// DisplayName returns the identity used in the grounding system message.
func (k Kind) DisplayName() string {
	switch k {
	case KindMain:
		return "MainAgent"
	case KindVisual:
		return "VisualDataAgent"
	case KindDiagnosis:
		return "DiagnosisAgent"
	case KindWorkflow:
		return "WorkflowAgent"
	case KindNote:
		return "NoteAgent"
	default:
		return string(k)
	}
}

// SessionState is the slice of session state the dispatcher and carryover
// engine need. The concrete state lives in the session package; the interface
// keeps this package free of an import cycle.
type SessionState interface {
	// Summarize renders remembered facts for the grounding system message.
	Summarize() string
	// Previous returns the specialist active before the current one.
	Previous() *Agent
	// SetActive records a handoff.
	SetActive(next, from *Agent)
}

// Agent is one stateful specialist. Created once at session start, it lives
// until session teardown; entering and leaving are activation transitions,
// not construction and destruction.
type Agent struct {
	kind         Kind
	instructions string

	mu      sync.Mutex
	history []types.ChatItem

	logger *zap.Logger
}

// New creates a specialist of the given kind with its fixed instructions.
func New(kind Kind, instructions string, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		kind:         kind,
		instructions: instructions,
		logger:       logger.With(zap.String("agent", string(kind))),
	}
}

// Kind returns the specialist's kind.
func (a *Agent) Kind() Kind { return a.kind }

// Instructions returns the behavioral prompt fixed at construction.
func (a *Agent) Instructions() string { return a.instructions }

// History returns a copy of the conversation history in order.
func (a *Agent) History() []types.ChatItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.ChatItem, len(a.history))
	copy(out, a.history)
	return out
}

// Append adds items to the history, skipping any whose ID is already
// present. Item identities stay unique within one specialist's history.
func (a *Agent) Append(items ...types.ChatItem) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]struct{}, len(a.history))
	for _, it := range a.history {
		seen[it.ID] = struct{}{}
	}

	added := 0
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		a.history = append(a.history, it)
		added++
	}
	return added
}

// ReplaceHistory swaps the history wholesale. Used by the truncation helper.
func (a *Agent) ReplaceHistory(items []types.ChatItem) {
	a.mu.Lock()
	a.history = append([]types.ChatItem(nil), items...)
	a.mu.Unlock()
}

// Len reports the current history length.
func (a *Agent) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.history)
}
