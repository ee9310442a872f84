package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"storefront/internal/domain"
	"storefront/internal/security/secretbox"
	"storefront/internal/store"
)

//go:embed migrations/schema.sql
var schemaSQL string

const (
	flagDeveloper = "developer"
	flagPressUser = "press_user"
)

type Store struct {
	db  *sql.DB
	box *secretbox.Box
}

func NewStore(databaseURL string, box *secretbox.Box) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, box: box}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FindDownloadKeysByGame(ctx context.Context, gameID int64) ([]domain.DownloadKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, game_id, owner_id, created_at
		 from download_keys
		 where game_id = $1
		 order by id asc`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.DownloadKey, 0, 2)
	for rows.Next() {
		var dk domain.DownloadKey
		if err := rows.Scan(&dk.ID, &dk.GameID, &dk.OwnerID, &dk.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, dk)
	}
	return out, rows.Err()
}

func (s *Store) FindDownloadKey(ctx context.Context, id int64) (domain.DownloadKey, error) {
	var dk domain.DownloadKey
	err := s.db.QueryRowContext(ctx,
		`select id, game_id, owner_id, created_at from download_keys where id = $1`,
		id,
	).Scan(&dk.ID, &dk.GameID, &dk.OwnerID, &dk.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DownloadKey{}, store.ErrNotFound
		}
		return domain.DownloadKey{}, err
	}
	return dk, nil
}

func (s *Store) SaveDownloadKey(ctx context.Context, key domain.DownloadKey) (domain.DownloadKey, error) {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	if key.ID == 0 {
		err := s.db.QueryRowContext(ctx,
			`insert into download_keys(game_id, owner_id, created_at)
			 values ($1, $2, $3)
			 returning id`,
			key.GameID, key.OwnerID, key.CreatedAt,
		).Scan(&key.ID)
		return key, err
	}
	_, err := s.db.ExecContext(ctx,
		`insert into download_keys(id, game_id, owner_id, created_at)
		 values ($1, $2, $3, $4)
		 on conflict (id) do update
		 set game_id = excluded.game_id,
		     owner_id = excluded.owner_id`,
		key.ID, key.GameID, key.OwnerID, key.CreatedAt,
	)
	return key, err
}

func (s *Store) RemoveDownloadKey(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from download_keys where id = $1`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) FindGame(ctx context.Context, id int64) (domain.Game, error) {
	var g domain.Game
	err := s.db.QueryRowContext(ctx,
		`select id, title, url, classification, in_press_system, min_price
		 from games where id = $1`,
		id,
	).Scan(&g.ID, &g.Title, &g.URL, &g.Classification, &g.InPressSystem, &g.MinPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Game{}, store.ErrNotFound
		}
		return domain.Game{}, err
	}
	return g, nil
}

func (s *Store) SaveGame(ctx context.Context, game domain.Game) error {
	_, err := s.db.ExecContext(ctx,
		`insert into games(id, title, url, classification, in_press_system, min_price)
		 values ($1, $2, $3, $4, $5, $6)
		 on conflict (id) do update
		 set title = excluded.title,
		     url = excluded.url,
		     classification = excluded.classification,
		     in_press_system = excluded.in_press_system,
		     min_price = excluded.min_price`,
		game.ID, game.Title, game.URL, game.Classification, game.InPressSystem, game.MinPrice,
	)
	return err
}

func (s *Store) FindCave(ctx context.Context, id string) (domain.Cave, error) {
	var c domain.Cave
	err := s.db.QueryRowContext(ctx,
		`select id, game_id, install_path, installed_at from caves where id = $1`,
		id,
	).Scan(&c.ID, &c.GameID, &c.InstallPath, &c.InstalledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cave{}, store.ErrNotFound
		}
		return domain.Cave{}, err
	}
	return c, nil
}

func (s *Store) SaveCave(ctx context.Context, cave domain.Cave) (domain.Cave, error) {
	if cave.ID == "" {
		cave.ID = uuid.NewString()
	}
	if cave.InstalledAt.IsZero() {
		cave.InstalledAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into caves(id, game_id, install_path, installed_at)
		 values ($1, $2, $3, $4)
		 on conflict (id) do update
		 set game_id = excluded.game_id,
		     install_path = excluded.install_path`,
		cave.ID, cave.GameID, cave.InstallPath, cave.InstalledAt,
	)
	return cave, err
}

func (s *Store) ListRememberedSessions(ctx context.Context) (map[int64]domain.RememberedSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`select profile_id, api_key_enc, username, display_name, flags, last_connected
		 from remembered_sessions`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]domain.RememberedSession)
	for rows.Next() {
		var session domain.RememberedSession
		var enc string
		var flags []string
		if err := rows.Scan(
			&session.Me.ID,
			&enc,
			&session.Me.Username,
			&session.Me.DisplayName,
			pq.Array(&flags),
			&session.LastConnected,
		); err != nil {
			return nil, err
		}
		key, err := s.box.Open(enc)
		if err != nil {
			return nil, fmt.Errorf("open api key for profile %d: %w", session.Me.ID, err)
		}
		session.Key = key
		session.Me.Developer = slices.Contains(flags, flagDeveloper)
		session.Me.PressUser = slices.Contains(flags, flagPressUser)
		out[session.Me.ID] = session
	}
	return out, rows.Err()
}

func (s *Store) SaveRememberedSession(ctx context.Context, session domain.RememberedSession) error {
	enc, err := s.box.Seal(session.Key)
	if err != nil {
		return fmt.Errorf("seal api key: %w", err)
	}
	if session.LastConnected.IsZero() {
		session.LastConnected = time.Now().UTC()
	}
	flags := make([]string, 0, 2)
	if session.Me.Developer {
		flags = append(flags, flagDeveloper)
	}
	if session.Me.PressUser {
		flags = append(flags, flagPressUser)
	}
	_, err = s.db.ExecContext(ctx,
		`insert into remembered_sessions(profile_id, api_key_enc, username, display_name, flags, last_connected)
		 values ($1, $2, $3, $4, $5, $6)
		 on conflict (profile_id) do update
		 set api_key_enc = excluded.api_key_enc,
		     username = excluded.username,
		     display_name = excluded.display_name,
		     flags = excluded.flags,
		     last_connected = excluded.last_connected`,
		session.Me.ID,
		enc,
		session.Me.Username,
		session.Me.DisplayName,
		pq.Array(flags),
		session.LastConnected,
	)
	return err
}

func (s *Store) ForgetRememberedSession(ctx context.Context, profileID int64) error {
	_, err := s.db.ExecContext(ctx, `delete from remembered_sessions where profile_id = $1`, profileID)
	return err
}
