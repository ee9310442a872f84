package reactors

import (
	"context"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/reactor"
	"storefront/internal/state"
)

const BlockedLoggedOut = "logged_out"

func registerDownloads(w *reactor.Watcher, deps Deps) {
	reactor.Handle(w, func(ctx context.Context, s *state.Store, p domain.QueueGameDownload) error {
		creds, err := deps.Resolver.ResolveByID(ctx, s.State().Identity(), p.GameID)
		if err != nil {
			return err
		}
		if creds == nil {
			return dispatch(ctx, s, domain.DownloadBlocked{GameID: p.GameID, Reason: BlockedLoggedOut})
		}
		dl := domain.Download{
			ID:       uuid.NewString(),
			GameID:   p.GameID,
			APIKey:   creds.APIKey,
			Reason:   "install",
			QueuedAt: time.Now().UTC(),
		}
		if creds.DownloadKey != nil {
			dl.DownloadKeyID = creds.DownloadKey.ID
		}
		return dispatch(ctx, s, domain.DownloadQueued{Download: dl})
	})
}
