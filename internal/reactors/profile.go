package reactors

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/reactor"
	"storefront/internal/state"
)

func registerProfile(w *reactor.Watcher) {
	reactor.Handle(w, func(ctx context.Context, s *state.Store, p domain.LoginSucceeded) error {
		creds := s.State().Session.Credentials
		if creds != nil && creds.Me.Developer {
			if err := dispatch(ctx, s, domain.UnlockTab{URL: domain.URLDashboard}); err != nil {
				return err
			}
		}
		if err := dispatch(ctx, s, domain.SwitchPage{Page: domain.PageHub}); err != nil {
			return err
		}
		if err := dispatch(ctx, s, domain.SetDownloadsPaused{Paused: false}); err != nil {
			return err
		}
		if _, ok := s.State().ActiveDownload(); ok {
			return dispatch(ctx, s, domain.Navigate{URL: domain.URLDownloads, Background: true})
		}
		return nil
	})

	reactor.Handle(w, func(ctx context.Context, s *state.Store, p domain.Logout) error {
		if err := dispatch(ctx, s, domain.SwitchPage{Page: domain.PageGate}); err != nil {
			return err
		}
		return dispatch(ctx, s, domain.SetDownloadsPaused{Paused: true})
	})
}
