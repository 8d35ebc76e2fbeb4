package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	cfg := *NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	return NewHub(cfg, discardLogger())
}

// newTestChannel attaches a connection-less client so dispatch can be
// exercised without a network listener.
func newTestChannel(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := NewClient(nil, h, "127.0.0.1:0")
	h.attach(c)
	return c
}

func dispatch(t *testing.T, h *Hub, c *Client, event string, payload any) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		raw = data
	}
	h.Dispatch(c, Envelope{Event: event, Payload: raw})
}

func loginChannel(t *testing.T, h *Hub, c *Client, name, region string) {
	t.Helper()
	dispatch(t, h, c, EventLogin, LoginPayload{DisplayName: name, Region: region})
}

// drainEvents empties the client's send queue into decoded envelopes.
func drainEvents(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return out
			}
			var env Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventsNamed(envs []Envelope, name string) []Envelope {
	var out []Envelope
	for _, env := range envs {
		if env.Event == name {
			out = append(out, env)
		}
	}
	return out
}

func decodePayload[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Payload, &v))
	return v
}
