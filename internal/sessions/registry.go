// Package sessions hosts the live booking sessions of the HTTP API.
package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/manishonc/car-rental/internal/core"
	"github.com/manishonc/car-rental/internal/platform/ids"
	"github.com/manishonc/car-rental/internal/platform/metrics"
)

// Factory builds the orchestrator that drives a new session.
type Factory func(session *core.BookingSession) *core.Orchestrator

type entry struct {
	orch     *core.Orchestrator
	lastSeen time.Time
}

// Registry maps session ids to orchestrators and tracks when each was last used.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	factory Factory
	idleTTL time.Duration
	clock   func() time.Time
	newID   func() string
	log     *slog.Logger
}

func NewRegistry(factory Factory, idleTTL time.Duration, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		entries: make(map[string]*entry),
		factory: factory,
		idleTTL: idleTTL,
		clock:   time.Now,
		newID:   ids.New,
		log:     log.With("component", "sessions"),
	}
}

func (r *Registry) Create() *core.Orchestrator {
	id := r.newID()
	orch := r.factory(core.NewBookingSession(id))

	r.mu.Lock()
	r.entries[id] = &entry{orch: orch, lastSeen: r.clock()}
	n := len(r.entries)
	r.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	r.log.Info("session created", "session_id", id)
	return orch
}

// Get returns the orchestrator for id and marks the session as active.
func (r *Registry) Get(id string) (*core.Orchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", core.ErrNotFound, id)
	}
	e.lastSeen = r.clock()
	return e.orch, nil
}

// Close abandons the session's draft order and forgets it.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	n := len(r.entries)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: session %s", core.ErrNotFound, id)
	}
	metrics.SessionsActive.Set(float64(n))
	e.orch.Abandon(ctx)
	return nil
}

// EvictIdle removes sessions unused for longer than the idle TTL and returns them.
func (r *Registry) EvictIdle() []*core.Orchestrator {
	cutoff := r.clock().Add(-r.idleTTL)

	r.mu.Lock()
	var evicted []*core.Orchestrator
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			evicted = append(evicted, e.orch)
			delete(r.entries, id)
		}
	}
	n := len(r.entries)
	r.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	metrics.SessionsEvicted.Add(float64(len(evicted)))
	return evicted
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictAll removes every session and returns them, for shutdown.
func (r *Registry) EvictAll() []*core.Orchestrator {
	r.mu.Lock()
	out := make([]*core.Orchestrator, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, e.orch)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	metrics.SessionsActive.Set(0)
	return out
}
