package redis

import (
	"context"
	"os"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("STOREFRONT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STOREFRONT_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	st := NewSessionStore(rdb, "storefront-test:", nil)
	t.Cleanup(func() { _ = rdb.Del(ctx, st.key()).Err() })

	require.NoError(t, st.SaveRememberedSession(ctx, domain.RememberedSession{
		Key: "api-key-75",
		Me:  domain.Profile{ID: 75, Username: "seventyfive"},
	}))

	sessions, err := st.ListRememberedSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, "api-key-75", sessions[75].Key)
	require.Equal(t, "seventyfive", sessions[75].Me.Username)
	require.False(t, sessions[75].LastConnected.IsZero())

	require.NoError(t, st.ForgetRememberedSession(ctx, 75))
	sessions, err = st.ListRememberedSessions(ctx)
	require.NoError(t, err)
	require.Empty(t, sessions)
}
