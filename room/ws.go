package room

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Frame types exchanged with the room gateway. Everything is a JSON text
// frame; binary payloads (captured images) travel base64-encoded.
const (
	frameParticipants = "participants"
	frameRPCRequest   = "rpc_request"
	frameRPCResponse  = "rpc_response"
	frameSay          = "say"
	frameCapture      = "capture"
	frameCaptureData  = "capture_data"
	frameTranscript   = "transcript"
)

type wsFrame struct {
	Type        string        `json:"type"`
	ID          string        `json:"id,omitempty"`
	Destination string        `json:"destination,omitempty"`
	Method      string        `json:"method,omitempty"`
	Payload     string        `json:"payload,omitempty"`
	Error       string        `json:"error,omitempty"`
	Text        string        `json:"text,omitempty"`
	Interrupt   bool          `json:"allow_interruptions,omitempty"`
	Roster      []Participant `json:"participants,omitempty"`
	Data        string        `json:"data,omitempty"` // base64
}

// WSRoom is a Room and Speaker over a websocket connection to the room
// gateway. Writes are serialized behind a mutex; websocket connections do
// not support concurrent writers.
type WSRoom struct {
	name   string
	conn   *websocket.Conn
	logger *zap.Logger

	mu      sync.Mutex
	closed  bool
	roster  []Participant
	pending map[string]chan wsFrame

	transcripts chan string
	readDone    chan struct{}
}

// Dial connects to the room gateway and starts the read loop. The token is
// passed as a subprotocol-free query credential by the caller-provided URL.
func Dial(ctx context.Context, url, name string, logger *zap.Logger) (*WSRoom, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("room dial: %w", err)
	}

	r := &WSRoom{
		name:        name,
		conn:        conn,
		logger:      logger.With(zap.String("component", "ws_room"), zap.String("room", name)),
		pending:     make(map[string]chan wsFrame),
		transcripts: make(chan string, 16),
		readDone:    make(chan struct{}),
	}
	go r.readLoop()
	return r, nil
}

// Name returns the room name.
func (r *WSRoom) Name() string { return r.name }

func (r *WSRoom) readLoop() {
	defer close(r.readDone)
	defer close(r.transcripts)
	for {
		_, data, err := r.conn.Read(context.Background())
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if !closed {
				r.logger.Warn("room read loop ended", zap.Error(err))
			}
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			r.logger.Warn("discarding malformed room frame", zap.Error(err))
			continue
		}

		switch frame.Type {
		case frameParticipants:
			r.mu.Lock()
			r.roster = frame.Roster
			r.mu.Unlock()
		case frameTranscript:
			select {
			case r.transcripts <- frame.Text:
			default:
				r.logger.Warn("dropping transcript, consumer too slow")
			}
		case frameRPCResponse, frameCaptureData:
			r.mu.Lock()
			ch, ok := r.pending[frame.ID]
			if ok {
				delete(r.pending, frame.ID)
			}
			r.mu.Unlock()
			if ok {
				ch <- frame
			}
		default:
			r.logger.Debug("ignoring room frame", zap.String("type", frame.Type))
		}
	}
}

func (r *WSRoom) write(ctx context.Context, frame wsFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal room frame: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("room connection closed")
	}
	return r.conn.Write(ctx, websocket.MessageText, data)
}

// RemoteParticipants returns the last roster pushed by the gateway.
func (r *WSRoom) RemoteParticipants() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Participant, len(r.roster))
	copy(out, r.roster)
	return out
}

// await registers a pending reply channel for the given correlation id.
func (r *WSRoom) await(id string) chan wsFrame {
	ch := make(chan wsFrame, 1)
	r.mu.Lock()
	r.pending[id] = ch
	r.mu.Unlock()
	return ch
}

func (r *WSRoom) abandon(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

// PerformRPC sends a request frame to the destination participant and waits
// for the correlated response, bounded by timeout.
func (r *WSRoom) PerformRPC(ctx context.Context, destinationIdentity, method, payload string, timeout time.Duration) (string, error) {
	id := uuid.NewString()
	ch := r.await(id)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := r.write(ctx, wsFrame{
		Type:        frameRPCRequest,
		ID:          id,
		Destination: destinationIdentity,
		Method:      method,
		Payload:     payload,
	})
	if err != nil {
		r.abandon(id)
		return "", err
	}

	select {
	case frame := <-ch:
		if frame.Error != "" {
			return "", fmt.Errorf("rpc %s: %s", method, frame.Error)
		}
		return frame.Payload, nil
	case <-ctx.Done():
		r.abandon(id)
		return "", fmt.Errorf("rpc %s: %w", method, ctx.Err())
	}
}

// LatestFrame asks the gateway for a single captured frame from the first
// available remote video track.
func (r *WSRoom) LatestFrame(ctx context.Context) ([]byte, error) {
	id := uuid.NewString()
	ch := r.await(id)

	if err := r.write(ctx, wsFrame{Type: frameCapture, ID: id}); err != nil {
		r.abandon(id)
		return nil, err
	}

	select {
	case frame := <-ch:
		if frame.Error != "" {
			return nil, fmt.Errorf("capture: %s", frame.Error)
		}
		data, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			return nil, fmt.Errorf("decode captured frame: %w", err)
		}
		return data, nil
	case <-ctx.Done():
		r.abandon(id)
		return nil, ctx.Err()
	}
}

// Transcripts returns the stream of transcribed user utterances pushed by
// the gateway. The channel closes when the connection ends.
func (r *WSRoom) Transcripts() <-chan string {
	return r.transcripts
}

// Say forwards text to the room's speech synthesis.
func (r *WSRoom) Say(ctx context.Context, text string, allowInterruptions bool) error {
	return r.write(ctx, wsFrame{Type: frameSay, Text: text, Interrupt: allowInterruptions})
}

// Close releases the connection. Safe to call more than once.
func (r *WSRoom) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	err := r.conn.Close(websocket.StatusNormalClosure, "session ended")
	select {
	case <-r.readDone:
	case <-time.After(time.Second):
		r.logger.Warn("room read loop did not stop promptly")
	}
	return err
}
