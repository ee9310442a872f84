package credentials

import (
	"context"
	"fmt"
	"slices"

	"storefront/internal/domain"
	"storefront/internal/state"
	"storefront/internal/store"
)

// Resolver decides which api key, and optionally which download key, grants
// access to a game. Download keys are looked up on every call.
type Resolver struct {
	downloadKeys store.DownloadKeyStore
	games        store.GameStore
}

func NewResolver(downloadKeys store.DownloadKeyStore, games store.GameStore) *Resolver {
	return &Resolver{downloadKeys: downloadKeys, games: games}
}

// Resolve returns nil when there is no active login.
//
// Precedence: press users get press-enabled games with their own api key and
// no download key. Otherwise a download key owned by the active profile wins,
// then one owned by a remembered profile (lowest profile id first), paired
// with that profile's api key. Failing both, the active api key alone.
func (r *Resolver) Resolve(ctx context.Context, id state.Identity, game domain.Game) (*domain.GameCredentials, error) {
	creds := id.Credentials
	if creds == nil {
		return nil, nil
	}
	apiKey := creds.Key
	me := creds.Me

	if me.PressUser && game.InPressSystem {
		return &domain.GameCredentials{APIKey: apiKey}, nil
	}

	keys, err := r.downloadKeys.FindDownloadKeysByGame(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("find download keys for game %d: %w", game.ID, err)
	}

	byOwner := make(map[int64]domain.DownloadKey, len(keys))
	for _, dk := range keys {
		if prev, ok := byOwner[dk.OwnerID]; ok && prev.ID < dk.ID {
			continue
		}
		byOwner[dk.OwnerID] = dk
	}

	if dk, ok := byOwner[me.ID]; ok {
		return &domain.GameCredentials{APIKey: apiKey, DownloadKey: &dk}, nil
	}

	profileIDs := make([]int64, 0, len(id.RememberedSessions))
	for profileID := range id.RememberedSessions {
		if profileID != me.ID {
			profileIDs = append(profileIDs, profileID)
		}
	}
	slices.Sort(profileIDs)
	for _, profileID := range profileIDs {
		remembered := id.RememberedSessions[profileID]
		if remembered.Key == "" {
			continue
		}
		if dk, ok := byOwner[profileID]; ok {
			return &domain.GameCredentials{APIKey: remembered.Key, DownloadKey: &dk}, nil
		}
	}

	return &domain.GameCredentials{APIKey: apiKey}, nil
}

// ResolveByID loads the game first. A missing game wraps store.ErrNotFound.
func (r *Resolver) ResolveByID(ctx context.Context, id state.Identity, gameID int64) (*domain.GameCredentials, error) {
	game, err := r.games.FindGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("find game %d: %w", gameID, err)
	}
	return r.Resolve(ctx, id, game)
}
