package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Hub owns the shared state of the relay: the session registry, the message
// log, and the broadcast router. A single mutex serializes every mutation so
// concurrent events from different channels never interleave into a corrupt
// intermediate state. Broadcast frames are enqueued to the per-channel send
// queues under the same lock, which makes log acceptance order the delivery
// order; the actual socket writes drain concurrently in the write pumps.
type Hub struct {
	cfg      Config
	logger   *slog.Logger
	registry *SessionRegistry
	log      *MessageLog
	router   *BroadcastRouter

	mu sync.Mutex
	wg sync.WaitGroup

	handlers map[string]eventHandler
}

// eventHandler pairs an inbound event with the lifecycle state it requires.
// The state guard runs once in Dispatch, never inside the handlers.
type eventHandler struct {
	requires ChannelState
	handle   func(h *Hub, c *Client, payload json.RawMessage) error
}

// NewHub assembles a hub and its dispatch table. All state lives on the hub
// instance so logs, registries, and routers are independently constructible
// in tests without a network listener.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.sanitize()

	h := &Hub{
		cfg:      cfg,
		logger:   logger,
		registry: NewSessionRegistry(),
		log:      NewMessageLog(cfg.HistoryLimit),
		router:   NewBroadcastRouter(logger),
	}
	h.handlers = map[string]eventHandler{
		EventLogin:       {requires: StateConnected, handle: (*Hub).handleLogin},
		EventChatMessage: {requires: StateActive, handle: (*Hub).handleChat},
		EventRename:      {requires: StateActive, handle: (*Hub).handleRename},
		EventTyping:      {requires: StateActive, handle: (*Hub).handleTyping},
		EventStopTyping:  {requires: StateActive, handle: (*Hub).handleStopTyping},
	}
	return h
}

// Register admits a newly upgraded connection and starts its pumps. The
// channel begins in Connected: nothing but login is accepted until a session
// exists.
func (h *Hub) Register(c *Client) {
	h.attach(c)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
}

// attach places the channel under hub ownership without starting pumps.
func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	c.state = StateConnected
	h.router.Attach(c)
	total := h.router.Len()
	h.mu.Unlock()

	h.logger.Info("channel connected",
		"channel_id", c.id, "remote_addr", c.addr, "channels", total)
}

// Dispatch validates one inbound event against the channel's lifecycle state
// and runs the matching handler. Events on terminated channels are no-ops;
// unknown events and events arriving in the wrong state are rejected with an
// error frame to the sender only.
func (h *Hub) Dispatch(c *Client, env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.state == StateTerminated {
		return
	}

	handler, known := h.handlers[env.Event]
	if !known {
		h.rejectLocked(c, env.Event, fmt.Errorf("unknown event %q", env.Event))
		return
	}
	if c.state != handler.requires {
		err := ErrNotLoggedIn
		if c.state == StateActive {
			err = fmt.Errorf("event %q not allowed for a logged-in channel", env.Event)
		}
		h.rejectLocked(c, env.Event, err)
		return
	}
	if err := handler.handle(h, c, env.Payload); err != nil {
		h.rejectLocked(c, env.Event, err)
	}
}

// Disconnect tears a channel down exactly once. An event from the same
// channel racing with disconnect either completes before removal is observed
// or is rejected as terminated; it is never partially applied.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	if c.state == StateTerminated {
		h.mu.Unlock()
		return
	}
	wasActive := c.state == StateActive
	c.state = StateTerminated

	h.router.Detach(c.id)
	c.closeSend()

	var session Session
	var hadSession bool
	if wasActive {
		session, hadSession = h.registry.Remove(c.id)
	}
	if hadSession {
		h.router.BroadcastAll(EventOnlineUsers, h.roster())
		h.router.BroadcastOthers(c.id, EventUserLeft, PresencePayload{
			DisplayName: session.DisplayName,
			Text:        session.DisplayName + " telah keluar",
		})
	}
	h.mu.Unlock()

	if hadSession {
		h.logger.Info("user disconnected",
			"channel_id", c.id, "display_name", session.DisplayName)
	} else {
		h.logger.Info("channel closed", "channel_id", c.id)
	}
}

func (h *Hub) handleLogin(c *Client, payload json.RawMessage) error {
	var p LoginPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode login payload: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return ErrEmptyName
	}
	name, err := normalizeDisplayName(p.DisplayName)
	if err != nil {
		return err
	}
	region := p.Region
	if region == "" {
		region = defaultRegion
	}

	session, err := h.registry.Register(c.id, name, region)
	if err != nil {
		h.logger.Error("session registration refused",
			"channel_id", c.id, "error", err)
		return err
	}
	c.state = StateActive

	h.router.Unicast(c.id, EventLoadMessages, h.log.Recent(h.cfg.ReplayLimit))
	h.router.BroadcastAll(EventOnlineUsers, h.roster())
	h.router.BroadcastOthers(c.id, EventUserJoined, PresencePayload{
		DisplayName: session.DisplayName,
		Text:        session.DisplayName + " telah bergabung",
	})

	h.logger.Info("user logged in",
		"channel_id", c.id, "display_name", session.DisplayName, "region", session.Region)
	return nil
}

func (h *Hub) handleChat(c *Client, payload json.RawMessage) error {
	var p ChatPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode chat payload: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return ErrEmptyMessage
	}

	session, ok := h.registry.Get(c.id)
	if !ok {
		// Dispatch gated on Active, so reaching this means the lifecycle and
		// the registry disagree.
		h.logger.Error("active channel has no session", "channel_id", c.id)
		return ErrNoSession
	}

	region := p.Region
	if region == "" {
		region = session.Region
	}

	msg := h.log.Append(c.id, session.DisplayName, region, p.Text)
	h.router.BroadcastAll(EventChatMessage, msg)
	return nil
}

func (h *Hub) handleRename(c *Client, payload json.RawMessage) error {
	var p RenamePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode rename payload: %w", err)
	}
	name, err := normalizeDisplayName(p.NewName)
	if err != nil {
		return err
	}

	previous, ok := h.registry.Get(c.id)
	if !ok {
		h.logger.Error("active channel has no session", "channel_id", c.id)
		return ErrNoSession
	}
	session, err := h.registry.Rename(c.id, name)
	if err != nil {
		return err
	}

	// The renamer is included so its local echo stays consistent.
	h.router.BroadcastAll(EventNameChanged, NameChangedPayload{
		ChannelID: c.id,
		OldName:   previous.DisplayName,
		NewName:   session.DisplayName,
	})

	h.logger.Info("user renamed",
		"channel_id", c.id, "old_name", previous.DisplayName, "new_name", session.DisplayName)
	return nil
}

func (h *Hub) handleTyping(c *Client, _ json.RawMessage) error {
	return h.broadcastTypingState(c, EventUserTyping)
}

func (h *Hub) handleStopTyping(c *Client, _ json.RawMessage) error {
	return h.broadcastTypingState(c, EventUserStopTyping)
}

// broadcastTypingState relays typing state to the other channels. The
// display name comes from the session, not the client payload, so typing
// indicators always show the server-canonical name. Nothing is persisted.
func (h *Hub) broadcastTypingState(c *Client, event string) error {
	session, ok := h.registry.Get(c.id)
	if !ok {
		h.logger.Error("active channel has no session", "channel_id", c.id)
		return ErrNoSession
	}
	h.router.BroadcastOthers(c.id, event, TypingStatePayload{
		ChannelID:   c.id,
		DisplayName: session.DisplayName,
	})
	return nil
}

// rejectLocked reports a failed event to the offending channel only. Callers
// must hold h.mu.
func (h *Hub) rejectLocked(c *Client, event string, err error) {
	h.logger.Warn("event rejected",
		"channel_id", c.id, "event", event, "state", c.state.String(), "reason", err.Error())
	h.router.Unicast(c.id, EventError, ErrorPayload{Reason: err.Error()})
}

// roster projects the registry snapshot into the wire shape.
func (h *Hub) roster() []RosterEntry {
	return lo.Map(h.registry.Snapshot(), func(s Session, _ int) RosterEntry {
		return RosterEntry{
			ChannelID:   s.ChannelID,
			DisplayName: s.DisplayName,
			Region:      s.Region,
		}
	})
}

// Stats reports the roster and history sizes for the status endpoint.
func (h *Hub) Stats() (onlineUserCount, messageCount int) {
	return h.registry.Len(), h.log.Len()
}

// Shutdown closes every client connection and waits for the pump goroutines
// to finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("shutting down hub")

	h.mu.Lock()
	clients := h.router.detachAll()
	for _, c := range clients {
		c.state = StateTerminated
		c.closeSend()
		h.registry.Remove(c.id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if c.conn == nil {
			continue
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.logger.Warn("error closing client connection",
				"channel_id", c.id, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown complete", "channels_closed", len(clients))
		return nil
	case <-time.After(timeout):
		h.logger.Warn("hub shutdown timed out, some pumps may still be running")
		return context.DeadlineExceeded
	}
}
