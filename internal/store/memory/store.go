package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/store"
)

type Store struct {
	mu sync.RWMutex

	games        map[int64]domain.Game
	downloadKeys map[int64]domain.DownloadKey
	caves        map[string]domain.Cave
	sessions     map[int64]domain.RememberedSession

	nextKeyID int64
}

func NewStore() *Store {
	return &Store{
		games:        make(map[int64]domain.Game),
		downloadKeys: make(map[int64]domain.DownloadKey),
		caves:        make(map[string]domain.Cave),
		sessions:     make(map[int64]domain.RememberedSession),
		nextKeyID:    1,
	}
}

func (s *Store) FindDownloadKeysByGame(ctx context.Context, gameID int64) ([]domain.DownloadKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DownloadKey, 0, 2)
	for _, dk := range s.downloadKeys {
		if dk.GameID == gameID {
			out = append(out, dk)
		}
	}
	slices.SortFunc(out, func(a, b domain.DownloadKey) int {
		return compareInt64(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) FindDownloadKey(ctx context.Context, id int64) (domain.DownloadKey, error) {
	if err := ctx.Err(); err != nil {
		return domain.DownloadKey{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	dk, ok := s.downloadKeys[id]
	if !ok {
		return domain.DownloadKey{}, store.ErrNotFound
	}
	return dk, nil
}

func (s *Store) SaveDownloadKey(ctx context.Context, key domain.DownloadKey) (domain.DownloadKey, error) {
	if err := ctx.Err(); err != nil {
		return domain.DownloadKey{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if key.ID == 0 {
		key.ID = s.nextKeyID
	}
	if key.ID >= s.nextKeyID {
		s.nextKeyID = key.ID + 1
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	s.downloadKeys[key.ID] = key
	return key, nil
}

func (s *Store) RemoveDownloadKey(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.downloadKeys[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.downloadKeys, id)
	return nil
}

func (s *Store) FindGame(ctx context.Context, id int64) (domain.Game, error) {
	if err := ctx.Err(); err != nil {
		return domain.Game{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return domain.Game{}, store.ErrNotFound
	}
	return g, nil
}

func (s *Store) SaveGame(ctx context.Context, game domain.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game
	return nil
}

func (s *Store) FindCave(ctx context.Context, id string) (domain.Cave, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cave{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.caves[id]
	if !ok {
		return domain.Cave{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) SaveCave(ctx context.Context, cave domain.Cave) (domain.Cave, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cave{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cave.ID == "" {
		cave.ID = uuid.NewString()
	}
	if cave.InstalledAt.IsZero() {
		cave.InstalledAt = time.Now().UTC()
	}
	s.caves[cave.ID] = cave
	return cave, nil
}

func (s *Store) ListRememberedSessions(ctx context.Context) (map[int64]domain.RememberedSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.sessions), nil
}

func (s *Store) SaveRememberedSession(ctx context.Context, session domain.RememberedSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Me.ID] = session
	return nil
}

func (s *Store) ForgetRememberedSession(ctx context.Context, profileID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, profileID)
	return nil
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
