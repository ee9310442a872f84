package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/state"
	"storefront/internal/store"
	"storefront/internal/store/memory"
)

func remember(creds domain.Credentials) domain.RememberedSession {
	return domain.RememberedSession{Key: creds.Key, Me: creds.Me, LastConnected: time.Now()}
}

func TestResolveWalkthrough(t *testing.T) {
	ctx := context.Background()
	db := memory.NewStore()
	r := NewResolver(db, db)

	game := domain.Game{ID: 728}
	require.NoError(t, db.SaveGame(ctx, game))

	id := state.Identity{}
	got, err := r.Resolve(ctx, id, game)
	require.NoError(t, err)
	assert.Nil(t, got, "no credentials when logged out")

	creds19 := domain.Credentials{Key: "api-key-19", Me: domain.Profile{ID: 19, PressUser: true}}
	creds75 := domain.Credentials{Key: "api-key-75", Me: domain.Profile{ID: 75}}
	id = state.Identity{
		Credentials: &creds19,
		RememberedSessions: map[int64]domain.RememberedSession{
			19: remember(creds19),
			75: remember(creds75),
		},
	}

	game.InPressSystem = true
	got, err = r.Resolve(ctx, id, game)
	require.NoError(t, err)
	assert.Equal(t, &domain.GameCredentials{APIKey: "api-key-19"}, got, "api key only when press access is allowed")

	creds19.Me.PressUser = false
	got, err = r.Resolve(ctx, id, game)
	require.NoError(t, err)
	assert.Equal(t, &domain.GameCredentials{APIKey: "api-key-19"}, got, "api key only when not a press user")

	creds19.Me.PressUser = true
	game.InPressSystem = false
	got, err = r.Resolve(ctx, id, game)
	require.NoError(t, err)
	assert.Equal(t, &domain.GameCredentials{APIKey: "api-key-19"}, got, "api key only when game not in press system")

	dk190, err := db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 190, GameID: game.ID, OwnerID: 19})
	require.NoError(t, err)
	dk750, err := db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 750, GameID: game.ID, OwnerID: 75})
	require.NoError(t, err)

	got, err = r.Resolve(ctx, id, game)
	require.NoError(t, err)
	assert.Equal(t, &domain.GameCredentials{APIKey: "api-key-19", DownloadKey: &dk190}, got, "prefer current user download key")

	id.Credentials = &creds75
	got, err = r.Resolve(ctx, id, game)
	require.NoError(t, err)
	assert.Equal(t, &domain.GameCredentials{APIKey: "api-key-75", DownloadKey: &dk750}, got, "prefer current user download key (bis)")

	require.NoError(t, db.RemoveDownloadKey(ctx, 750))
	got, err = r.Resolve(ctx, id, game)
	require.NoError(t, err)
	assert.Equal(t, &domain.GameCredentials{APIKey: "api-key-19", DownloadKey: &dk190}, got, "will take other user's download key")

	delete(id.RememberedSessions, 19)
	got, err = r.Resolve(ctx, id, game)
	require.NoError(t, err)
	assert.Equal(t, &domain.GameCredentials{APIKey: "api-key-75"}, got, "won't take other user's download key without its api key")

	byID, err := r.ResolveByID(ctx, id, game.ID)
	require.NoError(t, err)
	assert.Equal(t, got, byID, "looks up properly by id alone too")
}

func TestResolveLoggedOutIgnoresDownloadKeys(t *testing.T) {
	ctx := context.Background()
	db := memory.NewStore()
	_, _ = db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 1, GameID: 5, OwnerID: 19})
	r := NewResolver(db, db)

	got, err := r.Resolve(ctx, state.Identity{
		RememberedSessions: map[int64]domain.RememberedSession{19: {Key: "k", Me: domain.Profile{ID: 19}}},
	}, domain.Game{ID: 5, InPressSystem: true})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolvePressShortcutSkipsOwnDownloadKey(t *testing.T) {
	ctx := context.Background()
	db := memory.NewStore()
	_, _ = db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 1, GameID: 5, OwnerID: 19})
	r := NewResolver(db, db)
	creds := domain.Credentials{Key: "press-key", Me: domain.Profile{ID: 19, PressUser: true}}

	got, err := r.Resolve(ctx, state.Identity{Credentials: &creds}, domain.Game{ID: 5, InPressSystem: true})
	require.NoError(t, err)
	assert.Equal(t, &domain.GameCredentials{APIKey: "press-key"}, got)
}

func TestResolveOwnKeyBeatsRememberedProfiles(t *testing.T) {
	ctx := context.Background()
	db := memory.NewStore()
	// remembered profiles with lower ids own keys too
	_, _ = db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 1, GameID: 9, OwnerID: 2})
	_, _ = db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 2, GameID: 9, OwnerID: 3})
	own, _ := db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 3, GameID: 9, OwnerID: 50})
	r := NewResolver(db, db)

	creds := domain.Credentials{Key: "k50", Me: domain.Profile{ID: 50}}
	id := state.Identity{
		Credentials: &creds,
		RememberedSessions: map[int64]domain.RememberedSession{
			2:  {Key: "k2", Me: domain.Profile{ID: 2}},
			3:  {Key: "k3", Me: domain.Profile{ID: 3}},
			50: {Key: "k50", Me: domain.Profile{ID: 50}},
		},
	}
	for i := 0; i < 20; i++ {
		got, err := r.Resolve(ctx, id, domain.Game{ID: 9})
		require.NoError(t, err)
		assert.Equal(t, &domain.GameCredentials{APIKey: "k50", DownloadKey: &own}, got)
	}
}

func TestResolveRememberedFallbackIsDeterministic(t *testing.T) {
	ctx := context.Background()
	db := memory.NewStore()
	dk8, _ := db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 80, GameID: 9, OwnerID: 8})
	_, _ = db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 30, GameID: 9, OwnerID: 30})
	_, _ = db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 4, GameID: 9, OwnerID: 4})
	r := NewResolver(db, db)

	creds := domain.Credentials{Key: "k1", Me: domain.Profile{ID: 1}}
	id := state.Identity{
		Credentials: &creds,
		RememberedSessions: map[int64]domain.RememberedSession{
			30: {Key: "k30", Me: domain.Profile{ID: 30}},
			8:  {Key: "k8", Me: domain.Profile{ID: 8}},
			// no api key remembered: unusable
			4: {Me: domain.Profile{ID: 4}},
		},
	}
	for i := 0; i < 20; i++ {
		got, err := r.Resolve(ctx, id, domain.Game{ID: 9})
		require.NoError(t, err)
		assert.Equal(t, &domain.GameCredentials{APIKey: "k8", DownloadKey: &dk8}, got)
	}
}

func TestResolveActiveProfileMissingFromRememberedSessions(t *testing.T) {
	ctx := context.Background()
	db := memory.NewStore()
	dk, _ := db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 1, GameID: 9, OwnerID: 7})
	r := NewResolver(db, db)

	creds := domain.Credentials{Key: "k7", Me: domain.Profile{ID: 7}}
	got, err := r.Resolve(ctx, state.Identity{Credentials: &creds}, domain.Game{ID: 9})
	require.NoError(t, err)
	assert.Equal(t, &domain.GameCredentials{APIKey: "k7", DownloadKey: &dk}, got)
}

func TestResolveByIDMissingGame(t *testing.T) {
	db := memory.NewStore()
	r := NewResolver(db, db)
	creds := domain.Credentials{Key: "k", Me: domain.Profile{ID: 1}}

	_, err := r.ResolveByID(context.Background(), state.Identity{Credentials: &creds}, 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

type failingKeys struct{ *memory.Store }

func (*failingKeys) FindDownloadKeysByGame(ctx context.Context, gameID int64) ([]domain.DownloadKey, error) {
	return nil, errors.New("database is locked")
}

func TestResolvePropagatesRepositoryErrors(t *testing.T) {
	db := memory.NewStore()
	r := NewResolver(&failingKeys{Store: db}, db)
	creds := domain.Credentials{Key: "k", Me: domain.Profile{ID: 1}}
	_, err := r.Resolve(context.Background(), state.Identity{Credentials: &creds}, domain.Game{ID: 1})
	require.Error(t, err)
}

func TestResolveNonPressUserOnPressGameUsesOwnDownloadKey(t *testing.T) {
	ctx := context.Background()
	db := memory.NewStore()
	dk, err := db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 11, GameID: 5, OwnerID: 19})
	require.NoError(t, err)
	r := NewResolver(db, db)
	creds := domain.Credentials{Key: "k", Me: domain.Profile{ID: 19}}

	got, err := r.Resolve(ctx, state.Identity{Credentials: &creds}, domain.Game{ID: 5, InPressSystem: true})
	require.NoError(t, err)
	assert.Equal(t, &domain.GameCredentials{APIKey: "k", DownloadKey: &dk}, got)
}

func TestResolvePressUserOnRegularGameUsesOwnDownloadKey(t *testing.T) {
	ctx := context.Background()
	db := memory.NewStore()
	dk, err := db.SaveDownloadKey(ctx, domain.DownloadKey{ID: 12, GameID: 5, OwnerID: 19})
	require.NoError(t, err)
	r := NewResolver(db, db)
	creds := domain.Credentials{Key: "k", Me: domain.Profile{ID: 19, PressUser: true}}

	got, err := r.Resolve(ctx, state.Identity{Credentials: &creds}, domain.Game{ID: 5})
	require.NoError(t, err)
	assert.Equal(t, &domain.GameCredentials{APIKey: "k", DownloadKey: &dk}, got)
}
