package reactors

import (
	"context"
	"log"

	"storefront/internal/domain"
	"storefront/internal/reactor"
	"storefront/internal/service/fetch"
	"storefront/internal/state"
)

func registerFetch(w *reactor.Watcher, deps Deps) {
	if deps.Fetcher == nil {
		return
	}
	maxAttempts := deps.MaxFetchAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	run := func(ctx context.Context, s *state.Store, tabID string, attempt int) error {
		tab, ok := s.State().Tabs[tabID]
		if !ok {
			return nil
		}
		if _, ok := fetch.GameIDFromPath(tab.Path); !ok {
			return nil
		}

		out := deps.Fetcher.Fetch(ctx, s, tabID)
		switch out.State {
		case fetch.OutcomeRetry:
			if attempt+1 < maxAttempts {
				log.Printf("fetch %s: attempt %d failed, retrying: %v", tabID, attempt+1, out.Err)
				s.DispatchLater(domain.NewAction(domain.TabReloaded{TabID: tabID, Attempt: attempt + 1}))
				return nil
			}
			return dispatch(ctx, s, domain.TabFetchFailed{TabID: tabID, Reason: out.Err.Error()})
		case fetch.OutcomeFailure:
			return dispatch(ctx, s, domain.TabFetchFailed{TabID: tabID, Reason: out.Err.Error()})
		}
		return nil
	}

	reactor.Handle(w, func(ctx context.Context, s *state.Store, p domain.NavigateTab) error {
		return run(ctx, s, p.TabID, 0)
	})
	reactor.Handle(w, func(ctx context.Context, s *state.Store, p domain.TabReloaded) error {
		return run(ctx, s, p.TabID, p.Attempt)
	})
}
