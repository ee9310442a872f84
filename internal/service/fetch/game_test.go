package fetch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/integrations/itchapi"
	"storefront/internal/service/fetch"
	"storefront/internal/testkit"
)

type fakeAPI struct {
	game  domain.Game
	err   error
	calls int
	keys  []string
}

func (f *fakeAPI) Game(ctx context.Context, apiKey string, gameID int64) (domain.Game, error) {
	f.calls++
	f.keys = append(f.keys, apiKey)
	if f.err != nil {
		return domain.Game{}, f.err
	}
	return f.game, nil
}

func openTab(t *testing.T, h *testkit.Harness, path string) {
	t.Helper()
	require.NoError(t, h.Dispatch(context.Background(), domain.NavigateTab{TabID: "tab-1", Path: path}))
	h.Reset()
}

func login(t *testing.T, h *testkit.Harness) {
	t.Helper()
	require.NoError(t, h.Dispatch(context.Background(), domain.LoginSucceeded{Credentials: domain.Credentials{
		Key: "api-key-19", Me: domain.Profile{ID: 19},
	}}))
}

func TestGameIDFromPath(t *testing.T) {
	id, ok := fetch.GameIDFromPath("games/728")
	assert.True(t, ok)
	assert.Equal(t, int64(728), id)

	for _, p := range []string{"games/", "games/abc", "users/3", "games/-1", "itch://dashboard"} {
		_, ok := fetch.GameIDFromPath(p)
		assert.False(t, ok, p)
	}
}

func TestFetchPushesLocalThenRemote(t *testing.T) {
	ctx := context.Background()
	h := testkit.NewHarness()
	require.NoError(t, h.DB.SaveGame(ctx, domain.Game{ID: 728, Title: "Old title"}))
	login(t, h)
	openTab(t, h, "games/728")

	api := &fakeAPI{game: domain.Game{ID: 728, Title: "New title", InPressSystem: true}}
	out := fetch.NewGameFetcher(h.DB, api).Fetch(ctx, h.Store, "tab-1")

	require.Equal(t, fetch.OutcomeSuccess, out.State, "%v", out.Err)
	actions := h.Dispatched()
	require.Len(t, actions, 2)
	first := actions[0].Payload.(domain.TabDataFetched)
	second := actions[1].Payload.(domain.TabDataFetched)
	assert.Equal(t, "Old title", first.Data.Game.Title)
	assert.Equal(t, "New title", second.Data.Game.Title)
	assert.Equal(t, []string{"api-key-19"}, api.keys)

	saved, err := h.DB.FindGame(ctx, 728)
	require.NoError(t, err)
	assert.True(t, saved.InPressSystem)
	assert.Equal(t, "New title", h.State().Tabs["tab-1"].Label)
	assert.Equal(t, "games/728", h.State().Tabs["tab-1"].Path)
}

func TestFetchWithoutLocalGameOnlyPushesRemote(t *testing.T) {
	h := testkit.NewHarness()
	login(t, h)
	openTab(t, h, "games/3")

	api := &fakeAPI{game: domain.Game{ID: 3, Title: "Remote"}}
	out := fetch.NewGameFetcher(h.DB, api).Fetch(context.Background(), h.Store, "tab-1")

	require.Equal(t, fetch.OutcomeSuccess, out.State)
	assert.Len(t, h.Dispatched(), 1)
}

func TestFetchWithoutCredentialsFails(t *testing.T) {
	h := testkit.NewHarness()
	openTab(t, h, "games/3")

	api := &fakeAPI{}
	out := fetch.NewGameFetcher(h.DB, api).Fetch(context.Background(), h.Store, "tab-1")

	assert.Equal(t, fetch.OutcomeFailure, out.State)
	assert.ErrorIs(t, out.Err, fetch.ErrNoCredentials)
	assert.Zero(t, api.calls)
}

func TestFetchNetworkErrorRetries(t *testing.T) {
	h := testkit.NewHarness()
	login(t, h)
	openTab(t, h, "games/3")

	api := &fakeAPI{err: &itchapi.NetworkError{Err: errors.New("connection refused")}}
	out := fetch.NewGameFetcher(h.DB, api).Fetch(context.Background(), h.Store, "tab-1")

	assert.Equal(t, fetch.OutcomeRetry, out.State)
	assert.Equal(t, "retry", out.State.String())
}

func TestFetchOtherErrorFails(t *testing.T) {
	h := testkit.NewHarness()
	login(t, h)
	openTab(t, h, "games/3")

	api := &fakeAPI{err: &itchapi.StatusError{Status: 404}}
	out := fetch.NewGameFetcher(h.DB, api).Fetch(context.Background(), h.Store, "tab-1")

	assert.Equal(t, fetch.OutcomeFailure, out.State)
	var serr *itchapi.StatusError
	assert.ErrorAs(t, out.Err, &serr)
}

func TestFetchUnknownTabIsNoop(t *testing.T) {
	h := testkit.NewHarness()
	api := &fakeAPI{}
	out := fetch.NewGameFetcher(h.DB, api).Fetch(context.Background(), h.Store, "missing")

	assert.Equal(t, fetch.OutcomeSuccess, out.State)
	assert.Empty(t, h.Dispatched())
	assert.Zero(t, api.calls)
}
