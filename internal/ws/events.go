package ws

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Event types pushed to clients.
const (
	EventRound        = "round"
	EventRunFinished  = "run.finished"
	EventEdgesChanged = "edges.changed"
)

// Event is the structured message sent to WebSocket clients. RunID is empty
// for events that concern the whole store.
type Event struct {
	Type  string          `json:"type"`
	ID    uint64          `json:"id"`
	RunID string          `json:"run_id,omitempty"`
	Data  json.RawMessage `json:"data"`
	Time  time.Time       `json:"time"`
}

// SubscribeMsg is sent by the client to pick a run and request replay.
// An empty RunID follows every run.
type SubscribeMsg struct {
	Type        string `json:"type"`
	RunID       string `json:"run_id,omitempty"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client the requested events are gone.
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// EventSequence hands out monotonic event IDs.
type EventSequence struct {
	counter atomic.Uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{}
}

// Next returns the next sequence number.
func (es *EventSequence) Next() uint64 {
	return es.counter.Add(1)
}
