package service

import (
	"context"
	"testing"
	"time"

	"github.com/persistorai/lineage/internal/models"
)

func TestRunRecorder_ProcessesRun(t *testing.T) {
	writer := &mockRunWriter{}
	rec := NewRunRecorder(writer, testLogger(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	go rec.Run(ctx)

	rec.Enqueue(&models.Run{ID: "r1", Kind: models.RunClosure})

	deadline := time.Now().Add(time.Second)
	for len(writer.getRuns()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	runs := writer.getRuns()
	if len(runs) != 1 || runs[0].ID != "r1" {
		t.Fatalf("recorded = %+v, want one run r1", runs)
	}
}

func TestRunRecorder_DropsWhenFull(t *testing.T) {
	// Worker not started, so nothing drains.
	rec := NewRunRecorder(&mockRunWriter{}, testLogger(), 2)

	rec.Enqueue(&models.Run{ID: "a"})
	rec.Enqueue(&models.Run{ID: "b"})

	done := make(chan struct{})
	go func() {
		rec.Enqueue(&models.Run{ID: "c"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked when queue was full")
	}

	if len(rec.jobs) != 2 {
		t.Errorf("queue len = %d, want 2", len(rec.jobs))
	}
}

func TestRunRecorder_StopDrains(t *testing.T) {
	writer := &mockRunWriter{}
	rec := NewRunRecorder(writer, testLogger(), 100)

	for _, id := range []string{"a", "b", "c"} {
		rec.Enqueue(&models.Run{ID: id})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	if got := len(writer.getRuns()); got != 3 {
		t.Errorf("recorded %d runs after drain, want 3", got)
	}
}

func TestRunRecorder_WriteFailureIsLogged(t *testing.T) {
	writer := &mockRunWriter{err: errInjected}
	rec := NewRunRecorder(writer, testLogger(), 1)

	rec.Enqueue(&models.Run{ID: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	if got := len(writer.getRuns()); got != 1 {
		t.Errorf("write attempts = %d, want 1", got)
	}
}
