package server

import "time"

// ChannelState tracks a channel's position in the connection lifecycle:
// Connected -> Active -> Terminated. Terminated is terminal.
type ChannelState int

const (
	// StateConnected: channel open, no session; only login is accepted.
	StateConnected ChannelState = iota
	// StateActive: session established; chat, rename, and typing are accepted.
	StateActive
	// StateTerminated: channel closed; every further event is a no-op.
	StateTerminated
)

func (s ChannelState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session binds a client-asserted identity to a live channel. Exactly one
// session exists per active channel and none outlives its channel.
type Session struct {
	ChannelID   string
	DisplayName string
	Region      string
	JoinedAt    time.Time
}
