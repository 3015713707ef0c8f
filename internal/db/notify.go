package db

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/dbpool"
)

// EventChannel is the NOTIFY channel written by the edges trigger.
const EventChannel = "lineage_events"

// TriggerRelation is the only edge relation carrying the notify trigger
// (migration 00003). Other relations need service-side publishing.
const TriggerRelation = "edges"

// Reconnect delays for a lost LISTEN session.
const (
	minRetryDelay = 1 * time.Second
	maxRetryDelay = 30 * time.Second
)

// Broadcaster sends events to connected clients.
type Broadcaster interface {
	BroadcastEvent(eventType, runID string, data json.RawMessage)
}

// NotifyBridge forwards lineage_events notifications to the WebSocket hub,
// so every server sharing a database sees edge changes made through any of
// them.
type NotifyBridge struct {
	log  *logrus.Logger
	pool *dbpool.Pool
	hub  Broadcaster
}

// NewNotifyBridge creates a NotifyBridge wired to the given pool and hub.
func NewNotifyBridge(log *logrus.Logger, pool *dbpool.Pool, hub Broadcaster) *NotifyBridge {
	return &NotifyBridge{log: log, pool: pool, hub: hub}
}

// Covers reports whether the trigger publishes changes to relation.
func (b *NotifyBridge) Covers(relation string) bool {
	return relation == TriggerRelation
}

// Start checks the database is reachable and then listens in the background
// until ctx ends, re-subscribing whenever the session drops.
func (b *NotifyBridge) Start(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}

	go b.run(ctx)

	return nil
}

func (b *NotifyBridge) run(ctx context.Context) {
	delay := minRetryDelay

	for ctx.Err() == nil {
		err := b.session(ctx)
		if ctx.Err() != nil {
			return
		}

		b.log.WithError(err).WithField("retry_in", delay).Warn("notify session ended")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		delay = retryDelay(delay)
	}
}

// session holds one pooled connection in LISTEN until it fails or ctx ends.
func (b *NotifyBridge) session(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{EventChannel}.Sanitize()); err != nil {
		return fmt.Errorf("listening on %s: %w", EventChannel, err)
	}

	b.log.WithField("channel", EventChannel).Info("notify bridge listening")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}

		b.forward(n)
	}
}

// forward relays one payload. Payloads without a type are dropped.
func (b *NotifyBridge) forward(n *pgconn.Notification) {
	var payload struct {
		Type  string `json:"type"`
		RunID string `json:"run_id,omitempty"`
	}
	if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil || payload.Type == "" {
		b.log.WithFields(logrus.Fields{"pid": n.PID, "payload": n.Payload}).Warn("dropping untyped notification")
		return
	}

	b.hub.BroadcastEvent(payload.Type, payload.RunID, json.RawMessage(n.Payload))
}

// retryDelay doubles cur up to maxRetryDelay and spreads it by ±25%.
func retryDelay(cur time.Duration) time.Duration {
	next := min(2*cur, maxRetryDelay)

	return time.Duration(float64(next) * (0.75 + rand.Float64()/2)) //nolint:gosec // jitter only.
}
