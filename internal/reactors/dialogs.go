package reactors

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/reactor"
	"storefront/internal/state"
	"storefront/internal/store"
)

func registerDialogs(w *reactor.Watcher, deps Deps) {
	reactor.Handle(w, func(ctx context.Context, s *state.Store, p domain.RequestCaveUninstall) error {
		cave, err := deps.Caves.FindCave(ctx, p.CaveID)
		if err != nil {
			return fmt.Errorf("find cave %s: %w", p.CaveID, err)
		}

		title := "this"
		game, err := deps.Games.FindGame(ctx, cave.GameID)
		switch {
		case err == nil:
			if game.Title != "" {
				title = game.Title
			}
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("find game %d: %w", cave.GameID, err)
		}

		uninstall := domain.NewAction(domain.QueueCaveUninstall{CaveID: p.CaveID})
		reinstall := domain.NewAction(domain.QueueCaveReinstall{CaveID: p.CaveID})
		return dispatch(ctx, s, domain.OpenModal{Modal: domain.Modal{
			ID:      uuid.NewString(),
			Message: domain.LocalizedString{Key: "prompt.uninstall.message", Variables: map[string]string{"title": title}},
			Buttons: []domain.ModalButton{
				{
					ID:     "modal-uninstall",
					Label:  domain.LocalizedString{Key: "prompt.uninstall.uninstall"},
					Icon:   "uninstall",
					Action: &uninstall,
				},
				{
					ID:     "modal-reinstall",
					Label:  domain.LocalizedString{Key: "prompt.uninstall.reinstall"},
					Icon:   "repeat",
					Action: &reinstall,
				},
				CancelButton(),
			},
		}})
	})
}

// CancelButton closes the modal without dispatching anything else.
func CancelButton() domain.ModalButton {
	return domain.ModalButton{
		ID:    "modal-cancel",
		Label: domain.LocalizedString{Key: "prompt.action.cancel"},
		Icon:  "cross",
	}
}
