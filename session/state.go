// Package session holds the cross-specialist mutable state of one
// conversation: remembered facts, notes, the active and previous specialist,
// session metadata, and the media-room reference. Nothing here is persisted;
// the state lives and dies with the session unless the transcript is
// explicitly exported.
package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lynkup/aitas/agent"
	"github.com/lynkup/aitas/room"
)

// State is the single shared state object for one conversation. It is
// mutated only from the conversation-processing path; the mutex exists so an
// implementation with concurrent utterance handlers keeps the one-active-
// specialist invariant.
type State struct {
	mu sync.Mutex

	SessionID string

	facts map[string]string
	notes []string

	active   *agent.Agent
	previous *agent.Agent

	metadata map[string]any

	// Room is the live media session. Held by reference only; the session
	// does not own its lifecycle.
	Room room.Room

	logger *zap.Logger
}

// NewState creates an empty session state.
func NewState(sessionID string, rm room.Room, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{
		SessionID: sessionID,
		facts:     make(map[string]string),
		metadata:  make(map[string]any),
		Room:      rm,
		logger:    logger.With(zap.String("component", "session_state")),
	}
}

// Remember stores a labeled fact and returns the spoken confirmation.
func (s *State) Remember(key, value string) string {
	s.mu.Lock()
	s.facts[key] = value
	s.mu.Unlock()
	s.logger.Info("stored fact", zap.String("key", key))
	return fmt.Sprintf("Okay, I've remembered that %s is %s.", key, value)
}

// Recall looks up a previously remembered fact and returns the spoken reply
// whether or not the fact exists.
func (s *State) Recall(key string) string {
	s.mu.Lock()
	value, ok := s.facts[key]
	s.mu.Unlock()
	if !ok {
		return fmt.Sprintf("I don't seem to have anything remembered for '%s'. Could you remind me?", key)
	}
	return fmt.Sprintf("You asked me to remember that %s is %s.", key, value)
}

// Fact returns a remembered value directly.
func (s *State) Fact(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.facts[key]
	return v, ok
}

// AddNote appends a free-text note and returns the spoken confirmation.
func (s *State) AddNote(content string) string {
	s.mu.Lock()
	s.notes = append(s.notes, content)
	s.mu.Unlock()
	s.logger.Info("added note", zap.Int("total", len(s.notes)))
	return fmt.Sprintf("Okay, I've added the note: '%s'", content)
}

// Notes returns a copy of the note list in insertion order.
func (s *State) Notes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.notes))
	copy(out, s.notes)
	return out
}

// Active returns the currently active specialist.
func (s *State) Active() *agent.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Previous returns the specialist active before the current one, if any.
func (s *State) Previous() *agent.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previous
}

// SetActive records a handoff: the outgoing specialist becomes Previous and
// the target becomes Active. Exactly one specialist is active at any time.
func (s *State) SetActive(next, from *agent.Agent) {
	s.mu.Lock()
	s.previous = from
	s.active = next
	s.mu.Unlock()
}

// MediaRoom returns the media-room reference, nil when the session never
// connected.
func (s *State) MediaRoom() room.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Room
}

// ReleaseRoom drops the media-room reference at teardown.
func (s *State) ReleaseRoom() {
	s.mu.Lock()
	s.Room = nil
	s.mu.Unlock()
}

// Metadata returns the parsed session metadata.
func (s *State) Metadata() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata
}

// SetMetadataRaw ingests the out-of-band metadata string per ParseMetadata.
func (s *State) SetMetadataRaw(raw string) {
	parsed := ParseMetadata(raw)
	s.mu.Lock()
	s.metadata = parsed
	s.mu.Unlock()
}

// Summarize renders the remembered facts as YAML for the system-message that
// grounds a freshly activated specialist. It never fails: a marshal error
// falls back to a plain-string rendering.
func (s *State) Summarize() string {
	s.mu.Lock()
	facts := make(map[string]string, len(s.facts))
	for k, v := range s.facts {
		facts[k] = v
	}
	notes := make([]string, len(s.notes))
	copy(notes, s.notes)
	s.mu.Unlock()

	data := map[string]any{}
	if len(facts) > 0 {
		data["remembered_facts"] = facts
	} else {
		data["remembered_facts"] = "empty"
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	// YAML reads better than JSON for the model.
	out, err := yaml.Marshal(data)
	if err != nil {
		s.logger.Error("summarize session state", zap.Error(err))
		return plainSummary(facts, notes)
	}
	return string(out)
}

func plainSummary(facts map[string]string, notes []string) string {
	keys := make([]string, 0, len(facts))
	for k := range facts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, facts[k])
	}
	for _, n := range notes {
		fmt.Fprintf(&b, "note: %s\n", n)
	}
	return b.String()
}
