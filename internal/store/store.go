package store

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

var ErrNotFound = errors.New("not found")

// DownloadKeyStore is the source of truth for download keys. Lookups are
// never cached by callers: a removed key must be unusable immediately.
type DownloadKeyStore interface {
	FindDownloadKeysByGame(ctx context.Context, gameID int64) ([]domain.DownloadKey, error)
	FindDownloadKey(ctx context.Context, id int64) (domain.DownloadKey, error)
	SaveDownloadKey(ctx context.Context, key domain.DownloadKey) (domain.DownloadKey, error)
	RemoveDownloadKey(ctx context.Context, id int64) error
}

type GameStore interface {
	FindGame(ctx context.Context, id int64) (domain.Game, error)
	SaveGame(ctx context.Context, game domain.Game) error
}

type CaveStore interface {
	FindCave(ctx context.Context, id string) (domain.Cave, error)
	SaveCave(ctx context.Context, cave domain.Cave) (domain.Cave, error)
}

// SessionStore persists remembered sessions across restarts.
type SessionStore interface {
	ListRememberedSessions(ctx context.Context) (map[int64]domain.RememberedSession, error)
	SaveRememberedSession(ctx context.Context, session domain.RememberedSession) error
	ForgetRememberedSession(ctx context.Context, profileID int64) error
}

// Store defines the local database contract used by reactors and the HTTP layer.
type Store interface {
	DownloadKeyStore
	GameStore
	CaveStore
	SessionStore
}

type withSessions struct {
	Store
	sessions SessionStore
}

// WithSessions returns base with its remembered sessions served by sessions.
func WithSessions(base Store, sessions SessionStore) Store {
	return withSessions{Store: base, sessions: sessions}
}

func (w withSessions) ListRememberedSessions(ctx context.Context) (map[int64]domain.RememberedSession, error) {
	return w.sessions.ListRememberedSessions(ctx)
}

func (w withSessions) SaveRememberedSession(ctx context.Context, session domain.RememberedSession) error {
	return w.sessions.SaveRememberedSession(ctx, session)
}

func (w withSessions) ForgetRememberedSession(ctx context.Context, profileID int64) error {
	return w.sessions.ForgetRememberedSession(ctx, profileID)
}
