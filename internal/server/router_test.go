package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouterUnicastToUnknownChannelIsSilent(t *testing.T) {
	router := NewBroadcastRouter(discardLogger())

	// Must not panic or error; disconnect races are expected.
	router.Unicast("missing", EventError, ErrorPayload{Reason: "x"})
	require.Equal(t, 0, router.Len())
}

func TestRouterBroadcastOthersExcludesOrigin(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(t)
	a := newTestChannel(t, hub)
	b := newTestChannel(t, hub)
	c := newTestChannel(t, hub)

	hub.router.BroadcastOthers(a.ID(), EventUserTyping, TypingStatePayload{ChannelID: a.ID()})

	req.Empty(drainEvents(t, a))
	req.Len(drainEvents(t, b), 1)
	req.Len(drainEvents(t, c), 1)
}

func TestRouterBroadcastAllReachesEveryChannel(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(t)
	a := newTestChannel(t, hub)
	b := newTestChannel(t, hub)

	hub.router.BroadcastAll(EventOnlineUsers, []RosterEntry{})

	req.Len(drainEvents(t, a), 1)
	req.Len(drainEvents(t, b), 1)
}

func TestRouterDropsFramesForTerminatedChannel(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(t)
	a := newTestChannel(t, hub)
	b := newTestChannel(t, hub)

	a.closeSend()
	hub.router.BroadcastAll(EventOnlineUsers, []RosterEntry{})

	// The terminated channel is skipped silently; delivery elsewhere proceeds.
	req.Len(drainEvents(t, b), 1)
}

func TestRouterDropsFramesWhenQueueIsFull(t *testing.T) {
	req := require.New(t)
	cfg := *NewConfig()
	cfg.SendQueueSize = 1
	hub := NewHub(cfg, discardLogger())
	a := newTestChannel(t, hub)

	hub.router.BroadcastAll(EventOnlineUsers, []RosterEntry{})
	hub.router.BroadcastAll(EventOnlineUsers, []RosterEntry{})

	req.Len(drainEvents(t, a), 1)
}

func TestRouterDetach(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(t)
	a := newTestChannel(t, hub)
	req.Equal(1, hub.router.Len())

	hub.router.Detach(a.ID())
	req.Equal(0, hub.router.Len())

	hub.router.Unicast(a.ID(), EventError, ErrorPayload{Reason: "x"})
	req.Empty(drainEvents(t, a))

	hub.router.Detach(a.ID())
}
