// Package fetch loads the data shown in a tab, pushing what is known locally
// before asking the remote API.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/integrations/itchapi"
	"storefront/internal/state"
	"storefront/internal/store"
)

type OutcomeState int

const (
	OutcomeSuccess OutcomeState = iota
	// OutcomeRetry means the fetch may succeed if attempted again later.
	OutcomeRetry
	OutcomeFailure
)

func (o OutcomeState) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomeFailure:
		return "failure"
	}
	return "unknown"
}

type Outcome struct {
	State OutcomeState
	Err   error
}

var ErrNoCredentials = errors.New("no user credentials yet")

type GameAPI interface {
	Game(ctx context.Context, apiKey string, gameID int64) (domain.Game, error)
}

type GameFetcher struct {
	games store.GameStore
	api   GameAPI
}

func NewGameFetcher(games store.GameStore, api GameAPI) *GameFetcher {
	return &GameFetcher{games: games, api: api}
}

// GameIDFromPath parses tab paths of the form games/<id>.
func GameIDFromPath(path string) (int64, bool) {
	rest, ok := strings.CutPrefix(path, "games/")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Fetch pushes TabDataFetched for tabID once with the local game, if any, and
// once more with the game returned by the API.
func (f *GameFetcher) Fetch(ctx context.Context, s *state.Store, tabID string) Outcome {
	snapshot := s.State()
	tab, ok := snapshot.Tabs[tabID]
	if !ok {
		return Outcome{State: OutcomeSuccess}
	}
	gameID, ok := GameIDFromPath(tab.Path)
	if !ok {
		return Outcome{State: OutcomeFailure, Err: fmt.Errorf("tab %s: not a game path: %q", tabID, tab.Path)}
	}

	local, err := f.games.FindGame(ctx, gameID)
	switch {
	case err == nil:
		if err := push(ctx, s, tabID, tab.Path, local); err != nil {
			return Outcome{State: OutcomeFailure, Err: err}
		}
	case !errors.Is(err, store.ErrNotFound):
		return Outcome{State: OutcomeFailure, Err: fmt.Errorf("find game %d: %w", gameID, err)}
	}

	creds := s.State().Session.Credentials
	if creds == nil {
		return Outcome{State: OutcomeFailure, Err: ErrNoCredentials}
	}

	remote, err := f.api.Game(ctx, creds.Key, gameID)
	if err != nil {
		if itchapi.IsNetworkError(err) {
			return Outcome{State: OutcomeRetry, Err: err}
		}
		return Outcome{State: OutcomeFailure, Err: err}
	}
	if err := f.games.SaveGame(ctx, remote); err != nil {
		return Outcome{State: OutcomeFailure, Err: fmt.Errorf("save game %d: %w", gameID, err)}
	}
	if err := push(ctx, s, tabID, tab.Path, remote); err != nil {
		return Outcome{State: OutcomeFailure, Err: err}
	}
	return Outcome{State: OutcomeSuccess}
}

func push(ctx context.Context, s *state.Store, tabID, path string, game domain.Game) error {
	return s.Dispatch(ctx, domain.NewAction(domain.TabDataFetched{
		TabID: tabID,
		Data:  domain.TabData{Path: path, Label: game.Title, Game: &game},
	}))
}
