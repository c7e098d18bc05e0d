package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Worker defines a background job that polls for work.
type Worker interface {
	Start(ctx context.Context)
	Name() string
}

// BaseWorker provides common polling infrastructure.
type BaseWorker struct {
	name     string
	interval time.Duration
	log      *slog.Logger
}

// NewBaseWorker creates a new base worker.
func NewBaseWorker(name string, interval time.Duration, log *slog.Logger) BaseWorker {
	if log == nil {
		log = slog.Default()
	}
	return BaseWorker{
		name:     name,
		interval: interval,
		log:      log.With("worker", name),
	}
}

// Poll runs the work function immediately and then at every interval until ctx is cancelled.
func (w *BaseWorker) Poll(ctx context.Context, work func(context.Context) error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("worker started", "interval", w.interval)
	w.run(ctx, work)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping")
			return
		case <-ticker.C:
			w.run(ctx, work)
		}
	}
}

func (w *BaseWorker) run(ctx context.Context, work func(context.Context) error) {
	if err := work(ctx); err != nil && ctx.Err() == nil {
		w.log.Error("worker error", "err", err)
	}
}

// StartAll runs every worker in its own goroutine and returns a wait function
// that blocks until all of them have returned.
func StartAll(ctx context.Context, workers ...Worker) (wait func()) {
	var wg sync.WaitGroup
	for _, wk := range workers {
		wk := wk
		wg.Add(1)
		go func() {
			defer wg.Done()
			wk.Start(ctx)
		}()
	}
	return wg.Wait
}
