// Package room is the boundary to the live media session. The transport
// itself (tracks, voice activity, turn taking) is an external service; this
// package only exposes what the conversation runtime needs: the remote
// participant roster, request/response calls to a participant, speech output,
// and frame capture.
package room

import (
	"context"
	"time"
)

// Participant describes one remote participant in the room.
type Participant struct {
	Identity string `json:"identity"`
	SID      string `json:"sid"`
	// Metadata is the participant's opaque metadata string; device clients
	// tag themselves with a fixed prefix.
	Metadata string `json:"metadata"`
}

// Room is the live media session. Held by session state as a reference only.
type Room interface {
	// Name returns the room name.
	Name() string
	// RemoteParticipants returns the current remote roster.
	RemoteParticipants() []Participant
	// PerformRPC issues a request/response call to a participant and waits
	// for the reply, bounded by timeout. The response is an opaque
	// JSON-encoded string.
	PerformRPC(ctx context.Context, destinationIdentity, method, payload string, timeout time.Duration) (string, error)
	// LatestFrame captures a single frame from the first available remote
	// video track, JPEG-encoded.
	LatestFrame(ctx context.Context) ([]byte, error)
	// Close releases the connection.
	Close() error
}

// Speaker emits synthesized speech to the room.
type Speaker interface {
	// Say speaks the text. With allowInterruptions the user can talk over it.
	Say(ctx context.Context, text string, allowInterruptions bool) error
}
