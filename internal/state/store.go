package state

import (
	"context"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/scheduler"
)

// Router runs the side effects of an action once it has been reduced.
type Router interface {
	Route(ctx context.Context, s *Store, action domain.Action) error
}

type dispatchKey struct{}

// Store owns the application state. Every dispatch reduces synchronously,
// then routes the action; Dispatch returns once routing has settled.
//
// A top-level dispatch holds the store exclusively until it settles. Dispatches
// made from inside a reactor carry that ownership in their context and run
// inline, so the outer dispatch only returns after the nested one has.
type Store struct {
	mu    sync.RWMutex
	state AppState

	cycle     sync.Mutex
	router    Router
	scheduler scheduler.Scheduler
}

func NewStore(router Router, sched scheduler.Scheduler) *Store {
	return &Store{
		state:     Initial(),
		router:    router,
		scheduler: sched,
	}
}

func (s *Store) State() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch is the settlement point of action: when it returns, every reactor
// for action and every dispatch they made has finished. The first reactor
// error is returned.
func (s *Store) Dispatch(ctx context.Context, action domain.Action) error {
	if owner, _ := ctx.Value(dispatchKey{}).(*Store); owner != s {
		s.cycle.Lock()
		defer s.cycle.Unlock()
		ctx = context.WithValue(ctx, dispatchKey{}, s)
	}

	s.mu.Lock()
	s.state = Reduce(s.state, action)
	s.mu.Unlock()

	if s.router == nil {
		return nil
	}
	return s.router.Route(ctx, s, action)
}

// DispatchSettled dispatches action and returns the state as it stood at
// settlement, before any other caller's dispatch could run.
func (s *Store) DispatchSettled(ctx context.Context, action domain.Action) (AppState, error) {
	if owner, _ := ctx.Value(dispatchKey{}).(*Store); owner != s {
		s.cycle.Lock()
		defer s.cycle.Unlock()
		ctx = context.WithValue(ctx, dispatchKey{}, s)
	}
	err := s.Dispatch(ctx, action)
	return s.State(), err
}

// Defer hands task to the scheduler. Tasks run outside the current dispatch
// cycle and must dispatch with their own context.
func (s *Store) Defer(task scheduler.Task) {
	s.scheduler.Defer(task)
}

// DispatchLater defers a dispatch of action to the next scheduler turn.
func (s *Store) DispatchLater(action domain.Action) {
	s.Defer(func(ctx context.Context) error {
		return s.Dispatch(ctx, action)
	})
}
