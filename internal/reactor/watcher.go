// Package reactor routes dispatched actions to the asynchronous side effects
// registered for them.
//
// For one action, reactors registered for its type run first, then reactors
// registered with OnAll, each group in registration order. Reactors run one at
// a time; the first error stops routing for that action.
package reactor

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/state"
)

// Reactor reacts to a dispatched action. It may read the store state, call
// collaborators, and dispatch further actions through s.
type Reactor func(ctx context.Context, s *state.Store, action domain.Action) error

type Watcher struct {
	mu       sync.RWMutex
	reactors map[domain.ActionType][]Reactor
	all      []Reactor
}

func NewWatcher() *Watcher {
	return &Watcher{reactors: make(map[domain.ActionType][]Reactor)}
}

func (w *Watcher) On(actionType domain.ActionType, r Reactor) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reactors[actionType] = append(w.reactors[actionType], r)
}

// OnAll registers r for every action.
func (w *Watcher) OnAll(r Reactor) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.all = append(w.all, r)
}

// Handle registers fn for the action type of P and hands it the typed payload.
func Handle[P domain.Payload](w *Watcher, fn func(ctx context.Context, s *state.Store, payload P) error) {
	var zero P
	actionType := zero.ActionType()
	w.On(actionType, func(ctx context.Context, s *state.Store, action domain.Action) error {
		payload, ok := action.Payload.(P)
		if !ok {
			return fmt.Errorf("%s: unexpected payload %T", actionType, action.Payload)
		}
		return fn(ctx, s, payload)
	})
}

// Reactors returns the reactors an action of actionType is routed to, in order.
func (w *Watcher) Reactors(actionType domain.ActionType) []Reactor {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Reactor, 0, len(w.reactors[actionType])+len(w.all))
	out = append(out, w.reactors[actionType]...)
	out = append(out, w.all...)
	return out
}

func (w *Watcher) Count(actionType domain.ActionType) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.reactors[actionType]) + len(w.all)
}

// Types lists the action types with at least one specific reactor.
func (w *Watcher) Types() []domain.ActionType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]domain.ActionType, 0, len(w.reactors))
	for t := range w.reactors {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Route runs the reactors for action sequentially, waiting for each one.
func (w *Watcher) Route(ctx context.Context, s *state.Store, action domain.Action) error {
	for i, r := range w.Reactors(action.Type) {
		if err := r(ctx, s, action); err != nil {
			return &Error{ActionType: action.Type, ActionID: action.ID, Index: i, Err: err}
		}
	}
	return nil
}

// Error is a reactor failure. Index is the reactor's position in routing order.
type Error struct {
	ActionType domain.ActionType
	ActionID   string
	Index      int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reactor %d for %s: %v", e.Index, e.ActionType, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
