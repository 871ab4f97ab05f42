package room

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateway is a minimal room-gateway stub: pushes one roster frame on connect
// and answers RPC requests via the handler function.
func gateway(t *testing.T, roster []Participant, handle func(wsFrame) *wsFrame) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := r.Context()

		push := func(f wsFrame) {
			data, _ := json.Marshal(f)
			_ = conn.Write(ctx, websocket.MessageText, data)
		}
		push(wsFrame{Type: frameParticipants, Roster: roster})

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var frame wsFrame
			if json.Unmarshal(data, &frame) != nil {
				continue
			}
			if reply := handle(frame); reply != nil {
				push(*reply)
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestWSRoom_RosterAndRPC(t *testing.T) {
	roster := []Participant{{Identity: "tech-phone", SID: "PA_1", Metadata: "android fp=1"}}
	srv := gateway(t, roster, func(f wsFrame) *wsFrame {
		if f.Type == frameRPCRequest && f.Method == "getFieldpieceData" {
			return &wsFrame{Type: frameRPCResponse, ID: f.ID, Payload: `{"sp":0.4}`}
		}
		return nil
	})
	defer srv.Close()

	r, err := Dial(context.Background(), wsURL(srv), "job-1", nil)
	require.NoError(t, err)
	defer r.Close()

	require.Eventually(t, func() bool {
		return len(r.RemoteParticipants()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "tech-phone", r.RemoteParticipants()[0].Identity)

	payload, err := r.PerformRPC(context.Background(), "tech-phone", "getFieldpieceData", "{}", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"sp":0.4}`, payload)
}

func TestWSRoom_RPCTimeout(t *testing.T) {
	srv := gateway(t, nil, func(f wsFrame) *wsFrame {
		return nil // never answer
	})
	defer srv.Close()

	r, err := Dial(context.Background(), wsURL(srv), "job-1", nil)
	require.NoError(t, err)
	defer r.Close()

	start := time.Now()
	_, err = r.PerformRPC(context.Background(), "tech-phone", "getFieldpieceData", "{}", 200*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWSRoom_RPCErrorFrame(t *testing.T) {
	srv := gateway(t, nil, func(f wsFrame) *wsFrame {
		if f.Type == frameRPCRequest {
			return &wsFrame{Type: frameRPCResponse, ID: f.ID, Error: "device busy"}
		}
		return nil
	})
	defer srv.Close()

	r, err := Dial(context.Background(), wsURL(srv), "job-1", nil)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.PerformRPC(context.Background(), "x", "getFieldpieceData", "{}", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device busy")
}

func TestWSRoom_CloseIsIdempotent(t *testing.T) {
	srv := gateway(t, nil, func(wsFrame) *wsFrame { return nil })
	defer srv.Close()

	r, err := Dial(context.Background(), wsURL(srv), "job-1", nil)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}
