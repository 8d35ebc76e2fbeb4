package server

import "errors"

// Every failure in the relay is scoped to a single event on a single
// channel; none is fatal to the process. Authorization and validation
// failures are reported back to the offending channel only. The registry
// misuse errors should be unreachable given correct lifecycle gating and
// are logged loudly when they fire.
var (
	// ErrNotLoggedIn rejects events that require an active session. The text
	// is the user-facing reason the original service sent.
	ErrNotLoggedIn = errors.New("Anda belum login")

	// ErrEmptyName rejects blank display names on login and rename.
	ErrEmptyName = errors.New("display name must not be empty")

	// ErrNameTooLong rejects display names over the 30 character limit.
	ErrNameTooLong = errors.New("display name must be at most 30 characters")

	// ErrEmptyMessage rejects chat messages without text.
	ErrEmptyMessage = errors.New("chat message must carry text")

	// ErrDuplicateSession fires when a channel attempts to register a second
	// session. The registry never overwrites an existing session.
	ErrDuplicateSession = errors.New("channel already has a session")

	// ErrNoSession fires when an operation addresses a channel whose session
	// is missing from the registry.
	ErrNoSession = errors.New("channel has no session")
)
