package server

import (
	"sync"
	"time"
)

// StoredMessage is a chat message as accepted into the log. The id and
// timestamp are assigned server-side at append time, never taken from the
// client, and the message is immutable afterwards.
type StoredMessage struct {
	ID          int64     `json:"id"`
	SenderID    string    `json:"senderId"`
	DisplayName string    `json:"displayName"`
	Region      string    `json:"region,omitempty"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
}

// MessageLog is the bounded, append-only chat history and the single source
// of truth for it. Ids increase monotonically in acceptance order; once the
// capacity is exceeded the oldest entries are dropped, not archived.
type MessageLog struct {
	mu       sync.Mutex
	capacity int
	nextID   int64
	entries  []StoredMessage
}

// NewMessageLog creates an empty log holding at most capacity messages.
func NewMessageLog(capacity int) *MessageLog {
	if capacity <= 0 {
		capacity = 200
	}
	return &MessageLog{capacity: capacity, nextID: 1}
}

// Append assigns the next id and a server timestamp, stores the message at
// the tail, and evicts from the head if the capacity is exceeded. It returns
// the stored message so callers always disseminate server-canonical data.
func (l *MessageLog) Append(senderID, displayName, region, text string) StoredMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := StoredMessage{
		ID:          l.nextID,
		SenderID:    senderID,
		DisplayName: displayName,
		Region:      region,
		Text:        text,
		Timestamp:   time.Now().UTC(),
	}
	l.nextID++

	l.entries = append(l.entries, msg)
	if len(l.entries) > l.capacity {
		l.entries = append([]StoredMessage(nil), l.entries[len(l.entries)-l.capacity:]...)
	}
	return msg
}

// Recent returns a copy of the trailing n messages in original order. The
// result is never nil so an empty history serializes as an empty list.
func (l *MessageLog) Recent(n int) []StoredMessage {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]StoredMessage, 0, n)
	if n > 0 {
		out = append(out, l.entries[len(l.entries)-n:]...)
	}
	return out
}

// Len reports the number of stored messages.
func (l *MessageLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
