// internal/coord/log.go
package coord

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// MessageLog is the coordinator-owned communication log. Appends are
// serialized; reads return a bounded copy so callers never observe the log
// mid-append. Entries are never edited or deleted. Only the oldest fall off
// once the retention cap is hit; durability beyond that is an external store's
// concern.
type MessageLog struct {
	mu   sync.RWMutex
	cap  int
	msgs []model.AgentMessage
}

// NewMessageLog builds a log retaining at most capacity entries.
func NewMessageLog(capacity int) *MessageLog {
	if capacity <= 0 {
		capacity = 500
	}
	return &MessageLog{cap: capacity}
}

// Append assigns the message its ID and stores it, returning the stored copy.
func (l *MessageLog) Append(m model.AgentMessage) model.AgentMessage {
	m.ID = uuid.New().String()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, m)
	if len(l.msgs) > l.cap {
		l.msgs = l.msgs[len(l.msgs)-l.cap:]
	}
	return m
}

// Recent returns up to limit messages, most recent last. A non-positive limit
// returns the full retained window.
func (l *MessageLog) Recent(limit int) []model.AgentMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.msgs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.AgentMessage, n)
	copy(out, l.msgs[len(l.msgs)-n:])
	return out
}

// Len reports the number of retained messages.
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.msgs)
}
