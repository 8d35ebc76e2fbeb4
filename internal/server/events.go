package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Inbound event names, sent by clients.
const (
	EventLogin       = "login"
	EventChatMessage = "chatMessage"
	EventRename      = "rename"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
)

// Outbound event names, sent by the server.
const (
	EventLoadMessages   = "loadMessages"
	EventOnlineUsers    = "onlineUsers"
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventNameChanged    = "nameChanged"
	EventUserTyping     = "userTyping"
	EventUserStopTyping = "userStopTyping"
	EventError          = "error"
)

// maxDisplayNameLen bounds display names after trimming, counted in runes.
const maxDisplayNameLen = 30

// defaultRegion is assigned when a login carries no region.
const defaultRegion = "Unknown"

// Envelope is the JSON frame wrapping every event in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// LoginPayload establishes a session for the channel. The display name is
// client-asserted; no uniqueness is enforced.
type LoginPayload struct {
	DisplayName string `json:"displayName" validate:"required"`
	Region      string `json:"region,omitempty"`
}

// ChatPayload carries one chat message from an active channel.
type ChatPayload struct {
	Text   string `json:"text" validate:"required"`
	Region string `json:"region,omitempty"`
}

// RenamePayload changes the session's display name.
type RenamePayload struct {
	NewName string `json:"newName" validate:"required"`
}

// RosterEntry is one live session as presented in onlineUsers snapshots.
type RosterEntry struct {
	ChannelID   string `json:"id"`
	DisplayName string `json:"displayName"`
	Region      string `json:"region"`
}

// PresencePayload announces a user joining or leaving.
type PresencePayload struct {
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
}

// NameChangedPayload announces a completed rename to every channel,
// including the renamer.
type NameChangedPayload struct {
	ChannelID string `json:"channelId"`
	OldName   string `json:"oldName"`
	NewName   string `json:"newName"`
}

// TypingStatePayload announces typing state to every channel except the
// typist.
type TypingStatePayload struct {
	ChannelID   string `json:"channelId"`
	DisplayName string `json:"displayName"`
}

// ErrorPayload is sent only to the channel that caused the failure.
type ErrorPayload struct {
	Reason string `json:"reason"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// normalizeDisplayName trims a client-asserted display name and enforces the
// 1-30 character rule. Duplicate names across sessions are allowed.
func normalizeDisplayName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrEmptyName
	}
	if len([]rune(trimmed)) > maxDisplayNameLen {
		return "", ErrNameTooLong
	}
	return trimmed, nil
}

// encodeEvent marshals an event name and payload into a wire frame.
func encodeEvent(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		env.Payload = data
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	return frame, nil
}
