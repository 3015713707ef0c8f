package ws

import (
	"sync"
	"time"
)

const (
	defaultBufferMaxLen = 2000
	defaultBufferMaxAge = 30 * time.Minute
)

// EventBuffer keeps recent events, oldest first, for replay on reconnect.
type EventBuffer struct {
	mu     sync.RWMutex
	events []Event
	maxAge time.Duration
	maxLen int
}

// NewEventBuffer creates an EventBuffer with the given limits.
func NewEventBuffer(maxLen int, maxAge time.Duration) *EventBuffer {
	return &EventBuffer{maxAge: maxAge, maxLen: maxLen}
}

// Append stores an event, evicting expired and excess entries.
func (eb *EventBuffer) Append(event *Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	cutoff := time.Now().Add(-eb.maxAge)
	start := 0

	for start < len(eb.events) && eb.events[start].Time.Before(cutoff) {
		start++
	}

	buf := append(eb.events[start:], *event)
	if len(buf) > eb.maxLen {
		buf = buf[len(buf)-eb.maxLen:]
	}

	eb.events = buf
}

// Since returns events with ID > lastEventID that match runID. An empty
// runID matches everything; store-wide events match every runID.
func (eb *EventBuffer) Since(runID string, lastEventID uint64) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	lo, hi := 0, len(eb.events)
	for lo < hi {
		mid := (lo + hi) / 2
		if eb.events[mid].ID <= lastEventID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	var out []Event

	for _, evt := range eb.events[lo:] {
		if matches(runID, evt.RunID) {
			out = append(out, evt)
		}
	}

	return out
}

// OldestID returns the oldest buffered event ID, or 0 if empty.
func (eb *EventBuffer) OldestID() uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if len(eb.events) == 0 {
		return 0
	}

	return eb.events[0].ID
}

// Len returns the number of buffered events.
func (eb *EventBuffer) Len() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	return len(eb.events)
}

func matches(filter, runID string) bool {
	return filter == "" || runID == "" || filter == runID
}
