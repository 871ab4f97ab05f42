// Package transcript builds and exports the session-end conversation record:
// one JSON document per session, written to disk, optionally persisted to the
// local SQLite store, and optionally posted to the backend report endpoint.
// Export is best effort; a failed sink is logged and never fails the session
// teardown.
package transcript

import (
	"time"

	"github.com/lynkup/aitas/agent"
	"github.com/lynkup/aitas/types"
)

// Document is one session's full conversation record.
type Document struct {
	SessionID string         `json:"session_id"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	// Specialists holds each specialist's history in registration order.
	// Histories overlap where carryover copied items between specialists;
	// the per-specialist view is kept because it shows what each one saw.
	Specialists []SpecialistHistory `json:"specialists"`
}

// SpecialistHistory is one specialist's view of the conversation.
type SpecialistHistory struct {
	Specialist string           `json:"specialist"`
	Items      []types.ChatItem `json:"items"`
}

// Build assembles the document from the session's specialists. Specialists
// with empty histories are skipped.
func Build(sessionID string, startedAt time.Time, metadata map[string]any, agents map[agent.Kind]*agent.Agent) *Document {
	doc := &Document{
		SessionID: sessionID,
		StartedAt: startedAt,
		EndedAt:   time.Now().UTC(),
		Metadata:  metadata,
	}
	for _, kind := range agent.Kinds() {
		a, ok := agents[kind]
		if !ok {
			continue
		}
		items := a.History()
		if len(items) == 0 {
			continue
		}
		doc.Specialists = append(doc.Specialists, SpecialistHistory{
			Specialist: string(kind),
			Items:      items,
		})
	}
	return doc
}
