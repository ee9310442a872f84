// Package testkit builds isolated stores for reactor tests.
package testkit

import (
	"context"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/reactor"
	"storefront/internal/scheduler"
	"storefront/internal/state"
	"storefront/internal/store/memory"
)

// Harness is a fresh store bound to its own watcher, a manual scheduler and
// an in-memory database. It records every routed action.
type Harness struct {
	Watcher   *reactor.Watcher
	Store     *state.Store
	Scheduler *scheduler.Manual
	DB        *memory.Store

	mu         sync.Mutex
	dispatched []domain.Action
}

func NewHarness() *Harness {
	h := &Harness{
		Watcher:   reactor.NewWatcher(),
		Scheduler: scheduler.NewManual(),
		DB:        memory.NewStore(),
	}
	h.Store = state.NewStore(h, h.Scheduler)
	return h
}

// Route records action and hands it to the watcher.
func (h *Harness) Route(ctx context.Context, s *state.Store, action domain.Action) error {
	h.mu.Lock()
	h.dispatched = append(h.dispatched, action)
	h.mu.Unlock()
	return h.Watcher.Route(ctx, s, action)
}

// Dispatch returns once action and everything it triggered directly has settled.
func (h *Harness) Dispatch(ctx context.Context, payload domain.Payload) error {
	return h.Store.Dispatch(ctx, domain.NewAction(payload))
}

// DispatchAndWaitQuiescent dispatches payload, then a Tick for reactors that
// wait on the next dispatch, then yields the scheduler once so work deferred
// to the next turn has run too.
func (h *Harness) DispatchAndWaitQuiescent(ctx context.Context, payload domain.Payload) error {
	if err := h.Dispatch(ctx, payload); err != nil {
		return err
	}
	if err := h.Dispatch(ctx, domain.Tick{}); err != nil {
		return err
	}
	return h.Scheduler.YieldOnce(ctx)
}

func (h *Harness) State() state.AppState {
	return h.Store.State()
}

func (h *Harness) Dispatched() []domain.Action {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Action, len(h.dispatched))
	copy(out, h.dispatched)
	return out
}

func (h *Harness) DispatchedTypes() []domain.ActionType {
	actions := h.Dispatched()
	out := make([]domain.ActionType, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Type)
	}
	return out
}

// Reset forgets recorded actions.
func (h *Harness) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dispatched = nil
}
