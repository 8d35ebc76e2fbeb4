package server

import (
	"log/slog"
	"sync"
)

// BroadcastRouter is the single fan-out primitive: it delivers an event to
// one channel, to all channels, or to all channels except one. Delivery is
// fire-and-forget; a channel that has already terminated, or whose send
// queue is full, drops the frame silently because disconnect races are
// expected and harmless.
type BroadcastRouter struct {
	mu       sync.RWMutex
	channels map[string]*Client
	logger   *slog.Logger
}

// NewBroadcastRouter creates a router with no attached channels.
func NewBroadcastRouter(logger *slog.Logger) *BroadcastRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BroadcastRouter{
		channels: make(map[string]*Client),
		logger:   logger,
	}
}

// Attach makes a channel reachable for unicast and broadcast delivery.
func (rt *BroadcastRouter) Attach(c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.channels[c.id] = c
}

// Detach removes a channel from delivery. Detaching an unknown channel is a
// no-op.
func (rt *BroadcastRouter) Detach(channelID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.channels, channelID)
}

// detachAll empties the router and returns the channels it held.
func (rt *BroadcastRouter) detachAll() []*Client {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	clients := make([]*Client, 0, len(rt.channels))
	for _, c := range rt.channels {
		clients = append(clients, c)
	}
	rt.channels = make(map[string]*Client)
	return clients
}

// Len reports the number of attached channels.
func (rt *BroadcastRouter) Len() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.channels)
}

// Unicast delivers an event to a single channel.
func (rt *BroadcastRouter) Unicast(channelID, event string, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		rt.logger.Error("event encoding failed", "event", event, "error", err)
		return
	}

	rt.mu.RLock()
	c, exists := rt.channels[channelID]
	rt.mu.RUnlock()
	if !exists {
		return
	}
	rt.deliver(c, event, frame)
}

// BroadcastAll delivers an event to every attached channel.
func (rt *BroadcastRouter) BroadcastAll(event string, payload any) {
	rt.broadcast("", event, payload)
}

// BroadcastOthers delivers an event to every attached channel except the
// originating one.
func (rt *BroadcastRouter) BroadcastOthers(excludeChannelID, event string, payload any) {
	rt.broadcast(excludeChannelID, event, payload)
}

func (rt *BroadcastRouter) broadcast(excludeChannelID, event string, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		rt.logger.Error("event encoding failed", "event", event, "error", err)
		return
	}

	rt.mu.RLock()
	targets := make([]*Client, 0, len(rt.channels))
	for id, c := range rt.channels {
		if id == excludeChannelID {
			continue
		}
		targets = append(targets, c)
	}
	rt.mu.RUnlock()

	for _, c := range targets {
		rt.deliver(c, event, frame)
	}
}

func (rt *BroadcastRouter) deliver(c *Client, event string, frame []byte) {
	if !c.enqueue(frame) {
		rt.logger.Debug("dropped frame for terminated or congested channel",
			"channel_id", c.id, "event", event)
	}
}
