package service

import (
	"context"
	"errors"
	"sync"

	"github.com/persistorai/lineage/internal/models"
	"github.com/persistorai/lineage/internal/workset"
)

var errInjected = errors.New("injected failure")

// mockEdgeStore records calls and returns configured responses.
type mockEdgeStore struct {
	mu    sync.Mutex
	calls []string

	insert func(ctx context.Context, edges []models.Edge) (int64, error)
	count  func(ctx context.Context) (int64, error)
	clear  func(ctx context.Context) (int64, error)
}

func (m *mockEdgeStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockEdgeStore) Insert(ctx context.Context, edges []models.Edge) (int64, error) {
	m.record("Insert")
	return m.insert(ctx, edges)
}

func (m *mockEdgeStore) Count(ctx context.Context) (int64, error) {
	m.record("Count")
	return m.count(ctx)
}

func (m *mockEdgeStore) Clear(ctx context.Context) (int64, error) {
	m.record("Clear")
	return m.clear(ctx)
}

// mockNotifier captures edge change events.
type mockNotifier struct {
	mu     sync.Mutex
	ops    []string
	counts []int64
}

func (m *mockNotifier) PublishEdgesChanged(op string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	m.counts = append(m.counts, count)
}

// mockRunWriter captures recorded runs.
type mockRunWriter struct {
	mu   sync.Mutex
	runs []*models.Run
	err  error
}

func (m *mockRunWriter) Record(_ context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return m.err
}

func (m *mockRunWriter) getRuns() []*models.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Run(nil), m.runs...)
}

// mockSink collects runs synchronously; it serves as both sink and publisher.
type mockSink struct {
	mu   sync.Mutex
	runs []*models.Run
}

func (m *mockSink) Enqueue(run *models.Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
}

func (m *mockSink) PublishRun(run *models.Run) { m.Enqueue(run) }

func (m *mockSink) getRuns() []*models.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Run(nil), m.runs...)
}

// trackingFactory opens memory workspaces and remembers them.
type trackingFactory struct {
	mu     sync.Mutex
	graph  *workset.Graph
	failOn int // fail Expand at this round when > 0
	opened []*trackingWorkspace
}

func (f *trackingFactory) Open(namespace string) (workset.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ws := &trackingWorkspace{Workspace: workset.NewMemory(f.graph, namespace), failOn: f.failOn}
	f.opened = append(f.opened, ws)

	return ws, nil
}

func (f *trackingFactory) openedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opened)
}

type trackingWorkspace struct {
	workset.Workspace

	failOn int
	closed bool
}

func (w *trackingWorkspace) Expand(ctx context.Context, step workset.Step) error {
	if w.failOn > 0 && step.Round == w.failOn {
		return errInjected
	}

	return w.Workspace.Expand(ctx, step)
}

func (w *trackingWorkspace) Close(ctx context.Context) error {
	w.closed = true
	return w.Workspace.Close(ctx)
}
