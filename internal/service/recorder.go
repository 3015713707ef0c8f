package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/lineage/internal/models"
)

// recordTimeout bounds a single run write.
const recordTimeout = 10 * time.Second

// RunWriter persists run records.
type RunWriter interface {
	Record(ctx context.Context, run *models.Run) error
}

// RunRecorder buffers run records and writes them via a single worker goroutine.
type RunRecorder struct {
	writer RunWriter
	log    *logrus.Logger
	jobs   chan *models.Run
}

// NewRunRecorder creates a RunRecorder with the given queue capacity.
func NewRunRecorder(writer RunWriter, log *logrus.Logger, queueSize int) *RunRecorder {
	if queueSize <= 0 {
		queueSize = 1000
	}

	return &RunRecorder{
		writer: writer,
		log:    log,
		jobs:   make(chan *models.Run, queueSize),
	}
}

// Enqueue adds a run. Non-blocking; drops the record if the queue is full.
func (r *RunRecorder) Enqueue(run *models.Run) {
	select {
	case r.jobs <- run:
	default:
		r.log.WithField("run_id", run.ID).Warn("run queue full, dropping record")
	}
}

// Run processes records until the context is cancelled, then drains remaining ones.
func (r *RunRecorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drain()
			return
		case run := <-r.jobs:
			r.process(run)
		}
	}
}

func (r *RunRecorder) drain() {
	for {
		select {
		case run := <-r.jobs:
			r.process(run)
		default:
			return
		}
	}
}

func (r *RunRecorder) process(run *models.Run) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := r.writer.Record(ctx, run); err != nil {
		r.log.WithError(err).WithField("run_id", run.ID).Warn("run record failed")
	}
}
