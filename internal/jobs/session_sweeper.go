package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/manishonc/car-rental/internal/core"
)

// IdleSessions hands over sessions that have been idle too long.
type IdleSessions interface {
	EvictIdle() []*core.Orchestrator
}

// SessionSweeper evicts idle booking sessions and releases their draft orders.
type SessionSweeper struct {
	BaseWorker
	sessions IdleSessions
}

func NewSessionSweeper(sessions IdleSessions, interval time.Duration, log *slog.Logger) *SessionSweeper {
	return &SessionSweeper{
		BaseWorker: NewBaseWorker("session-sweeper", interval, log),
		sessions:   sessions,
	}
}

// Start begins the worker polling loop.
func (w *SessionSweeper) Start(ctx context.Context) {
	w.Poll(ctx, w.sweep)
}

// Name returns the worker name.
func (w *SessionSweeper) Name() string {
	return w.name
}

func (w *SessionSweeper) sweep(ctx context.Context) error {
	evicted := w.sessions.EvictIdle()
	if len(evicted) == 0 {
		return nil
	}

	w.log.Info("evicting idle sessions", "count", len(evicted))
	for _, orch := range evicted {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := orch.State()
		orch.Abandon(ctx)
		w.log.Info("session evicted",
			"session_id", orch.Session().ID,
			"order_id", st.OrderID,
			"step", int(st.CurrentStep),
		)
	}
	return nil
}
