package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"storefront/internal/domain"
	"storefront/internal/security/secretbox"
	"storefront/internal/store"
)

// Store is the local desktop database.
type Store struct {
	db  *sql.DB
	box *secretbox.Box
}

// Open opens the database at path and applies migrations. box seals
// remembered api keys at rest; nil stores them as-is.
func Open(path string, box *secretbox.Box) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer; keeps :memory:-style test databases coherent too
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, box: box}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) FindDownloadKeysByGame(ctx context.Context, gameID int64) ([]domain.DownloadKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, game_id, owner_id, created_at FROM download_keys WHERE game_id = ? ORDER BY id`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("query download keys: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DownloadKey, 0, 2)
	for rows.Next() {
		dk, err := scanDownloadKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dk)
	}
	return out, rows.Err()
}

func (s *Store) FindDownloadKey(ctx context.Context, id int64) (domain.DownloadKey, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, game_id, owner_id, created_at FROM download_keys WHERE id = ?`,
		id,
	)
	dk, err := scanDownloadKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DownloadKey{}, store.ErrNotFound
	}
	return dk, err
}

func (s *Store) SaveDownloadKey(ctx context.Context, key domain.DownloadKey) (domain.DownloadKey, error) {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	if key.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO download_keys (game_id, owner_id, created_at) VALUES (?, ?, ?)`,
			key.GameID, key.OwnerID, key.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return domain.DownloadKey{}, fmt.Errorf("insert download key: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return domain.DownloadKey{}, err
		}
		key.ID = id
		return key, nil
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO download_keys (id, game_id, owner_id, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    game_id = excluded.game_id,
    owner_id = excluded.owner_id`,
		key.ID, key.GameID, key.OwnerID, key.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return domain.DownloadKey{}, fmt.Errorf("upsert download key: %w", err)
	}
	return key, nil
}

func (s *Store) RemoveDownloadKey(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM download_keys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete download key: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) FindGame(ctx context.Context, id int64) (domain.Game, error) {
	var g domain.Game
	var inPress int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, url, classification, in_press_system, min_price FROM games WHERE id = ?`,
		id,
	).Scan(&g.ID, &g.Title, &g.URL, &g.Classification, &inPress, &g.MinPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Game{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("query game: %w", err)
	}
	g.InPressSystem = inPress != 0
	return g, nil
}

func (s *Store) SaveGame(ctx context.Context, game domain.Game) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO games (id, title, url, classification, in_press_system, min_price) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    title = excluded.title,
    url = excluded.url,
    classification = excluded.classification,
    in_press_system = excluded.in_press_system,
    min_price = excluded.min_price`,
		game.ID, game.Title, game.URL, game.Classification, boolInt(game.InPressSystem), game.MinPrice,
	)
	if err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}
	return nil
}

func (s *Store) FindCave(ctx context.Context, id string) (domain.Cave, error) {
	var c domain.Cave
	var installedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, game_id, install_path, installed_at FROM caves WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.GameID, &c.InstallPath, &installedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cave{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Cave{}, fmt.Errorf("query cave: %w", err)
	}
	c.InstalledAt = time.UnixMilli(installedAt).UTC()
	return c, nil
}

func (s *Store) SaveCave(ctx context.Context, cave domain.Cave) (domain.Cave, error) {
	if cave.ID == "" {
		cave.ID = uuid.NewString()
	}
	if cave.InstalledAt.IsZero() {
		cave.InstalledAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO caves (id, game_id, install_path, installed_at) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    game_id = excluded.game_id,
    install_path = excluded.install_path`,
		cave.ID, cave.GameID, cave.InstallPath, cave.InstalledAt.UnixMilli(),
	)
	if err != nil {
		return domain.Cave{}, fmt.Errorf("upsert cave: %w", err)
	}
	return cave, nil
}

func (s *Store) ListRememberedSessions(ctx context.Context) (map[int64]domain.RememberedSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT profile_id, api_key_sealed, profile_json, last_connected FROM remembered_sessions`,
	)
	if err != nil {
		return nil, fmt.Errorf("query remembered sessions: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]domain.RememberedSession)
	for rows.Next() {
		var profileID, lastConnected int64
		var sealed, profileJSON string
		if err := rows.Scan(&profileID, &sealed, &profileJSON, &lastConnected); err != nil {
			return nil, err
		}
		key, err := s.box.Open(sealed)
		if err != nil {
			return nil, fmt.Errorf("open api key for profile %d: %w", profileID, err)
		}
		var me domain.Profile
		if err := json.Unmarshal([]byte(profileJSON), &me); err != nil {
			return nil, fmt.Errorf("decode profile %d: %w", profileID, err)
		}
		me.ID = profileID
		out[profileID] = domain.RememberedSession{
			Key:           key,
			Me:            me,
			LastConnected: time.UnixMilli(lastConnected).UTC(),
		}
	}
	return out, rows.Err()
}

func (s *Store) SaveRememberedSession(ctx context.Context, session domain.RememberedSession) error {
	sealed, err := s.box.Seal(session.Key)
	if err != nil {
		return fmt.Errorf("seal api key: %w", err)
	}
	profileJSON, err := json.Marshal(session.Me)
	if err != nil {
		return err
	}
	if session.LastConnected.IsZero() {
		session.LastConnected = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO remembered_sessions (profile_id, api_key_sealed, profile_json, last_connected) VALUES (?, ?, ?, ?)
ON CONFLICT (profile_id) DO UPDATE SET
    api_key_sealed = excluded.api_key_sealed,
    profile_json = excluded.profile_json,
    last_connected = excluded.last_connected`,
		session.Me.ID, sealed, string(profileJSON), session.LastConnected.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert remembered session: %w", err)
	}
	return nil
}

func (s *Store) ForgetRememberedSession(ctx context.Context, profileID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM remembered_sessions WHERE profile_id = ?`, profileID); err != nil {
		return fmt.Errorf("delete remembered session: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDownloadKey(row scanner) (domain.DownloadKey, error) {
	var dk domain.DownloadKey
	var createdAt int64
	if err := row.Scan(&dk.ID, &dk.GameID, &dk.OwnerID, &createdAt); err != nil {
		return domain.DownloadKey{}, err
	}
	dk.CreatedAt = time.UnixMilli(createdAt).UTC()
	return dk, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
