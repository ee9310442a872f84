package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/domain"
	"storefront/internal/security/secretbox"
)

// SessionStore keeps remembered sessions in a single Redis hash keyed by
// profile id, so several client instances can share remembered logins.
type SessionStore struct {
	rdb    *goredis.Client
	prefix string
	box    *secretbox.Box
}

type sessionRecord struct {
	KeySealed     string         `json:"key_sealed"`
	Me            domain.Profile `json:"me"`
	LastConnected time.Time      `json:"last_connected"`
}

func NewSessionStore(rdb *goredis.Client, prefix string, box *secretbox.Box) *SessionStore {
	if prefix == "" {
		prefix = "storefront:"
	}
	return &SessionStore{rdb: rdb, prefix: prefix, box: box}
}

func (s *SessionStore) key() string { return s.prefix + "remembered_sessions" }

func (s *SessionStore) ListRememberedSessions(ctx context.Context) (map[int64]domain.RememberedSession, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[int64]domain.RememberedSession, len(raw))
	for field, value := range raw {
		profileID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		var rec sessionRecord
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			return nil, fmt.Errorf("decode session %d: %w", profileID, err)
		}
		key, err := s.box.Open(rec.KeySealed)
		if err != nil {
			return nil, fmt.Errorf("open api key for profile %d: %w", profileID, err)
		}
		rec.Me.ID = profileID
		out[profileID] = domain.RememberedSession{
			Key:           key,
			Me:            rec.Me,
			LastConnected: rec.LastConnected,
		}
	}
	return out, nil
}

func (s *SessionStore) SaveRememberedSession(ctx context.Context, session domain.RememberedSession) error {
	sealed, err := s.box.Seal(session.Key)
	if err != nil {
		return fmt.Errorf("seal api key: %w", err)
	}
	if session.LastConnected.IsZero() {
		session.LastConnected = time.Now().UTC()
	}
	data, err := json.Marshal(sessionRecord{
		KeySealed:     sealed,
		Me:            session.Me,
		LastConnected: session.LastConnected,
	})
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.key(), strconv.FormatInt(session.Me.ID, 10), data).Err()
}

func (s *SessionStore) ForgetRememberedSession(ctx context.Context, profileID int64) error {
	return s.rdb.HDel(ctx, s.key(), strconv.FormatInt(profileID, 10)).Err()
}
