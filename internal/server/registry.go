package server

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// SessionRegistry maps channel ids to live sessions and is their sole owner:
// callers only ever see copies, and no session survives the removal of its
// channel.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// Register creates the session for a channel. It refuses to overwrite an
// existing session: a double login indicates a lifecycle bug upstream and
// must fail loudly.
func (r *SessionRegistry) Register(channelID, displayName, region string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[channelID]; exists {
		return Session{}, fmt.Errorf("register channel %s: %w", channelID, ErrDuplicateSession)
	}
	s := &Session{
		ChannelID:   channelID,
		DisplayName: displayName,
		Region:      region,
		JoinedAt:    time.Now(),
	}
	r.sessions[channelID] = s
	return *s, nil
}

// Rename atomically updates the session's display name and returns the
// updated session.
func (r *SessionRegistry) Rename(channelID, newName string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[channelID]
	if !exists {
		return Session{}, fmt.Errorf("rename channel %s: %w", channelID, ErrNoSession)
	}
	s.DisplayName = newName
	return *s, nil
}

// Get returns a copy of the channel's session, if any.
func (r *SessionRegistry) Get(channelID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sessions[channelID]
	if !exists {
		return Session{}, false
	}
	return *s, true
}

// Remove deletes the channel's session and returns the last known copy.
// Removing an absent channel is a no-op.
func (r *SessionRegistry) Remove(channelID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[channelID]
	if !exists {
		return Session{}, false
	}
	delete(r.sessions, channelID)
	return *s, true
}

// Snapshot returns a point-in-time roster copy ordered by join time, safe to
// hand to the broadcast router without aliasing the live map.
func (r *SessionRegistry) Snapshot() []Session {
	r.mu.RLock()
	sessions := lo.MapToSlice(r.sessions, func(_ string, s *Session) Session {
		return *s
	})
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].JoinedAt.Equal(sessions[j].JoinedAt) {
			return sessions[i].ChannelID < sessions[j].ChannelID
		}
		return sessions[i].JoinedAt.Before(sessions[j].JoinedAt)
	})
	return sessions
}

// Len reports the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
