package sqlite

import (
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/security/secretbox"
	"storefront/internal/store"
)

func openTestStore(t *testing.T, box *secretbox.Box) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "storefront.db"), box)
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  ", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.db")
	first, err := Open(path, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	_ = first.Close()
	second, err := Open(path, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	_ = second.Close()
}

func TestDownloadKeys(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, nil)

	if _, err := st.SaveDownloadKey(ctx, domain.DownloadKey{ID: 750, GameID: 728, OwnerID: 75}); err != nil {
		t.Fatalf("save dk750: %v", err)
	}
	if _, err := st.SaveDownloadKey(ctx, domain.DownloadKey{ID: 190, GameID: 728, OwnerID: 19}); err != nil {
		t.Fatalf("save dk190: %v", err)
	}
	generated, err := st.SaveDownloadKey(ctx, domain.DownloadKey{GameID: 3, OwnerID: 19})
	if err != nil {
		t.Fatalf("save generated: %v", err)
	}
	if generated.ID == 0 {
		t.Fatal("expected generated id")
	}

	keys, err := st.FindDownloadKeysByGame(ctx, 728)
	if err != nil {
		t.Fatalf("find by game: %v", err)
	}
	if len(keys) != 2 || keys[0].ID != 190 || keys[1].ID != 750 {
		t.Fatalf("unexpected keys: %+v", keys)
	}

	if err := st.RemoveDownloadKey(ctx, 750); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := st.FindDownloadKey(ctx, 750); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.RemoveDownloadKey(ctx, 750); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestGamesAndCaves(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, nil)

	if _, err := st.FindGame(ctx, 728); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.SaveGame(ctx, domain.Game{ID: 728, Title: "Overland", InPressSystem: true}); err != nil {
		t.Fatalf("save game: %v", err)
	}
	if err := st.SaveGame(ctx, domain.Game{ID: 728, Title: "Overland (beta)", InPressSystem: true}); err != nil {
		t.Fatalf("update game: %v", err)
	}
	g, err := st.FindGame(ctx, 728)
	if err != nil {
		t.Fatalf("find game: %v", err)
	}
	if g.Title != "Overland (beta)" || !g.InPressSystem {
		t.Fatalf("unexpected game: %+v", g)
	}

	cave, err := st.SaveCave(ctx, domain.Cave{GameID: 728, InstallPath: "/games/overland"})
	if err != nil {
		t.Fatalf("save cave: %v", err)
	}
	got, err := st.FindCave(ctx, cave.ID)
	if err != nil {
		t.Fatalf("find cave: %v", err)
	}
	if got.GameID != 728 || got.InstallPath != "/games/overland" {
		t.Fatalf("unexpected cave: %+v", got)
	}
}

func TestRememberedSessionsAreSealedAtRest(t *testing.T) {
	ctx := context.Background()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}
	box, err := secretbox.New(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	st := openTestStore(t, box)

	connected := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err = st.SaveRememberedSession(ctx, domain.RememberedSession{
		Key:           "api-key-19",
		Me:            domain.Profile{ID: 19, Username: "nineteen", PressUser: true},
		LastConnected: connected,
	})
	if err != nil {
		t.Fatalf("save session: %v", err)
	}

	var sealed string
	if err := st.db.QueryRowContext(ctx, `SELECT api_key_sealed FROM remembered_sessions WHERE profile_id = 19`).Scan(&sealed); err != nil {
		t.Fatalf("read raw row: %v", err)
	}
	if sealed == "api-key-19" {
		t.Fatal("expected api key to be sealed at rest")
	}

	sessions, err := st.ListRememberedSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	s := sessions[19]
	if s.Key != "api-key-19" || !s.Me.PressUser || s.Me.Username != "nineteen" {
		t.Fatalf("unexpected session: %+v", s)
	}
	if !s.LastConnected.Equal(connected) {
		t.Fatalf("last connected = %v, want %v", s.LastConnected, connected)
	}

	if err := st.ForgetRememberedSession(ctx, 19); err != nil {
		t.Fatalf("forget: %v", err)
	}
	sessions, _ = st.ListRememberedSessions(ctx)
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions, got %+v", sessions)
	}
}

func TestUpSection(t *testing.T) {
	got := upSection("-- +migrate Up\nCREATE TABLE a (id INTEGER);\n-- +migrate Down\nDROP TABLE a;\n")
	if got != "\nCREATE TABLE a (id INTEGER);\n" {
		t.Fatalf("unexpected up section %q", got)
	}
	if upSection("SELECT 1;") != "SELECT 1;" {
		t.Fatal("expected marker-less file to be applied whole")
	}
}
