// Package reactors holds the side effects of the storefront client, wired to
// a reactor.Watcher by Register.
package reactors

import (
	"context"
	"log"

	"storefront/internal/domain"
	"storefront/internal/reactor"
	"storefront/internal/service/credentials"
	"storefront/internal/service/fetch"
	"storefront/internal/state"
	"storefront/internal/store"
)

type Deps struct {
	Sessions store.SessionStore
	Games    store.GameStore
	Caves    store.CaveStore
	Resolver *credentials.Resolver
	Fetcher  *fetch.GameFetcher

	// MaxFetchAttempts bounds how many times a tab fetch is tried when it
	// keeps asking for a retry. Zero means 3.
	MaxFetchAttempts int
	LogActions       bool
}

func Register(w *reactor.Watcher, deps Deps) {
	registerSessions(w, deps)
	registerProfile(w)
	registerDownloads(w, deps)
	registerDialogs(w, deps)
	registerFetch(w, deps)
	if deps.LogActions {
		w.OnAll(logAction)
	}
}

func logAction(ctx context.Context, s *state.Store, action domain.Action) error {
	if action.Type == domain.ActionTick {
		return nil
	}
	log.Printf("action %s id=%s", action.Type, action.ID)
	return nil
}

func dispatch(ctx context.Context, s *state.Store, payload domain.Payload) error {
	return s.Dispatch(ctx, domain.NewAction(payload))
}
