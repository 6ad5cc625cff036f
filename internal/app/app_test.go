package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-french/internal/config"
	"github.com/mind-engage/mindengage-french/internal/events"
	"github.com/mind-engage/mindengage-french/internal/store/cache"
)

func sqliteConfig() config.Config {
	return config.Config{
		StoreDriver: config.StoreSQLite,
		DBDSN:       "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, sqliteConfig())
	require.NoError(t, err)
	defer b.Close(ctx)

	require.NotNil(t, b.DB)
	require.NoError(t, b.Ping(ctx))
	_, isLog := b.Events.(*events.SQLLog)
	require.True(t, isLog)
}

func TestOpenWrapsQuizCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := sqliteConfig()
	cfg.RedisAddr = mr.Addr()

	b, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer b.Close(ctx)

	_, cached := b.Store.(*cache.QuizCache)
	require.True(t, cached)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.Config{StoreDriver: "cassandra"})
	require.Error(t, err)
}
