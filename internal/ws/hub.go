// Package ws streams traversal events to WebSocket clients.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/metrics"
	"github.com/persistorai/lineage/internal/models"
)

// Hub channel buffer sizes.
const (
	broadcastBuffer = 1024
	registerBuffer  = 64
	maxClients      = 500
)

type broadcast struct {
	runID string
	msg   []byte
}

// Hub manages active WebSocket clients and broadcasts events.
// All client map mutations happen exclusively in the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	shutdown   chan struct{}
	done       chan struct{}
	count      atomic.Int64
	log        *logrus.Logger
	seq        *EventSequence
	buffer     *EventBuffer
}

// NewHub creates a new Hub instance.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan broadcast, broadcastBuffer),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		log:        log,
		seq:        NewEventSequence(),
		buffer:     NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
	}
}

// drainTimeout is how long the hub waits for clients to flush after shutdown.
const drainTimeout = 3 * time.Second

// Run starts the hub event loop. It exits when Shutdown is called or the
// context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.drainClients()

			return
		case <-h.shutdown:
			h.drainClients()

			return

		case client := <-h.register:
			if len(h.clients) >= maxClients {
				h.log.Warn("connection limit reached, dropping client")
				client.closeSend()

				continue
			}

			h.clients[client] = true
			h.setCount()
			h.log.WithField("total", len(h.clients)).Info("client registered")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}

			h.setCount()
			h.log.WithField("total", len(h.clients)).Info("client unregistered")

		case b := <-h.broadcast:
			for client := range h.clients {
				if !matches(client.runID(), b.runID) {
					continue
				}

				select {
				case client.send <- b.msg:
				default:
					// Slow consumer.
					client.closeSend()
					delete(h.clients, client)
				}
			}

			h.setCount()
		}
	}
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// maxBroadcastPayload caps a single event message.
const maxBroadcastPayload = 16 << 10

func (h *Hub) send(runID string, msg []byte) {
	if len(msg) > maxBroadcastPayload {
		h.log.WithFields(logrus.Fields{
			"run_id":       runID,
			"payload_size": len(msg),
			"max_size":     maxBroadcastPayload,
		}).Warn("dropping oversized broadcast payload")

		return
	}

	select {
	case h.broadcast <- broadcast{runID: runID, msg: msg}:
	default:
		h.log.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastEvent assigns a sequence ID, buffers the event and sends it to
// every client following runID. An empty runID reaches all clients.
func (h *Hub) BroadcastEvent(eventType, runID string, data json.RawMessage) {
	evt := Event{
		Type:  eventType,
		ID:    h.seq.Next(),
		RunID: runID,
		Data:  data,
		Time:  time.Now(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")

		return
	}

	h.buffer.Append(&evt)
	h.send(runID, msg)
}

func (h *Hub) publish(eventType, runID string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).WithField("type", eventType).Error("failed to marshal event data")

		return
	}

	h.BroadcastEvent(eventType, runID, data)
}

// ObserveRound publishes a round report. Hub satisfies engine.Observer.
func (h *Hub) ObserveRound(r models.RoundReport) {
	h.publish(EventRound, r.RunID, r)
}

// PublishRun publishes a finished run record.
func (h *Hub) PublishRun(run *models.Run) {
	h.publish(EventRunFinished, run.ID, run)
}

// PublishEdgesChanged tells every client the edge relation changed.
func (h *Hub) PublishEdgesChanged(op string, count int64) {
	h.publish(EventEdgesChanged, "", map[string]any{"op": op, "count": count})
}

// Shutdown sends a shutdown frame to every client, waits for their write
// pumps to flush, then closes all connections.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

func (h *Hub) drainClients() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining WebSocket clients")

	shutdownMsg := []byte(`{"type":"shutdown","message":"server shutting down"}`)
	for client := range h.clients {
		select {
		case client.send <- shutdownMsg:
		default:
		}
	}

	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond) //nolint:mnd // poll interval
	defer ticker.Stop()

wait:
	for {
		drained := true

		for client := range h.clients {
			if len(client.send) > 0 {
				drained = false

				break
			}
		}

		if drained {
			break
		}

		select {
		case <-deadline:
			h.log.Warn("WebSocket drain timeout, closing remaining clients")

			break wait
		case <-ticker.C:
		}
	}

	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}

	h.count.Store(0)
	metrics.WSConnections.Set(0)
}

// ReplayEvents sends buffered events newer than lastEventID to the client.
// It returns false if lastEventID has already been evicted.
func (h *Hub) ReplayEvents(client *Client, lastEventID uint64) bool {
	oldest := h.buffer.OldestID()
	if oldest > 0 && lastEventID > 0 && lastEventID < oldest-1 {
		return false
	}

	for _, evt := range h.buffer.Since(client.runID(), lastEventID) {
		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}

		select {
		case client.send <- msg:
		default:
			return true
		}
	}

	return true
}
