package reactors

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/domain"
	"storefront/internal/reactor"
	"storefront/internal/state"
	"storefront/internal/store"
)

func registerSessions(w *reactor.Watcher, deps Deps) {
	sessions := deps.Sessions

	reactor.Handle(w, func(ctx context.Context, s *state.Store, p domain.Boot) error {
		loaded, err := sessions.ListRememberedSessions(ctx)
		if err != nil {
			return fmt.Errorf("load remembered sessions: %w", err)
		}
		return dispatch(ctx, s, domain.RememberedSessionsLoaded{Sessions: loaded})
	})

	reactor.Handle(w, func(ctx context.Context, s *state.Store, p domain.LoginSucceeded) error {
		err := sessions.SaveRememberedSession(ctx, domain.RememberedSession{
			Key:           p.Credentials.Key,
			Me:            p.Credentials.Me,
			LastConnected: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("remember session %d: %w", p.Credentials.Me.ID, err)
		}
		return nil
	})

	reactor.Handle(w, func(ctx context.Context, s *state.Store, p domain.UseSavedLogin) error {
		remembered, ok := s.State().RememberedSessions[p.ProfileID]
		if !ok || remembered.Key == "" {
			return fmt.Errorf("remembered session %d: %w", p.ProfileID, store.ErrNotFound)
		}
		return dispatch(ctx, s, domain.LoginSucceeded{Credentials: remembered.Credentials()})
	})

	reactor.Handle(w, func(ctx context.Context, s *state.Store, p domain.ForgetRememberedSession) error {
		if err := sessions.ForgetRememberedSession(ctx, p.ProfileID); err != nil {
			return fmt.Errorf("forget session %d: %w", p.ProfileID, err)
		}
		return nil
	})
}
