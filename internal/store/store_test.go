package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/movers/internal/movers"
	"github.com/wonny/movers/pkg/logger"
	"github.com/wonny/movers/pkg/redis"
)

func sampleSnapshot() *movers.MarketSnapshot {
	return &movers.MarketSnapshot{
		UpdateTime: "2024-01-15 14:35:00",
		IsClosed:   true,
		Gainers: []movers.MoverRecord{
			{Code: "2330", Name: "台積電", Open: "580.00", Close: "590.00", ChangePercent: "1.72", ChangeAmount: "10.00"},
		},
		Losers: []movers.MoverRecord{
			{Code: "2317", Name: "鴻海", Open: "105.50", Close: "104.00", ChangePercent: "-1.42", ChangeAmount: "-1.50"},
		},
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "data.json")
	s := NewFileStore(path)

	last, err := s.LoadLast(ctx)
	require.NoError(t, err)
	assert.Nil(t, last, "missing artifact is not an error")

	require.NoError(t, s.Save(ctx, sampleSnapshot()))

	got, err := s.LoadLast(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is renamed away")
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).LoadLast(context.Background())
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	data, err := Encode(sampleSnapshot())
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "台積電", "non-ASCII text is not escaped")
	assert.Contains(t, text, "\n  \"update_time\": \"2024-01-15 14:35:00\"")
	assert.True(t, strings.HasPrefix(text, "{\n"))
	assert.NotContains(t, text, "prev_close", "omitted fields stay omitted")
}

func TestKind(t *testing.T) {
	live := sampleSnapshot()
	stale := sampleSnapshot()
	stale.UpdateTime += movers.StaleMarker
	stale.ErrorMessage = "fetch failed"
	placeholder := &movers.MarketSnapshot{UpdateTime: "2024-01-15 09:00:00" + movers.PlaceholderMarker}

	assert.Equal(t, KindLive, Kind(live))
	assert.Equal(t, KindStale, Kind(stale))
	assert.Equal(t, KindPlaceholder, Kind(placeholder))
}

type fakeStore struct {
	last    *movers.MarketSnapshot
	loadErr error
	saveErr error
	saved   []*movers.MarketSnapshot
}

func (f *fakeStore) LoadLast(context.Context) (*movers.MarketSnapshot, error) {
	return f.last, f.loadErr
}

func (f *fakeStore) Save(_ context.Context, s *movers.MarketSnapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, s)
	return nil
}

func TestChain_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("mirror failure is tolerated", func(t *testing.T) {
		primary := &fakeStore{}
		broken := &fakeStore{saveErr: errors.New("redis down")}
		mirror := &fakeStore{}

		c := NewChain(logger.Nop(), primary, broken, mirror)
		require.NoError(t, c.Save(ctx, sampleSnapshot()))
		assert.Len(t, primary.saved, 1)
		assert.Len(t, mirror.saved, 1)
	})

	t.Run("primary failure fails", func(t *testing.T) {
		mirror := &fakeStore{}
		c := NewChain(logger.Nop(), &fakeStore{saveErr: errors.New("disk full")}, mirror)
		assert.Error(t, c.Save(ctx, sampleSnapshot()))
		assert.Empty(t, mirror.saved)
	})
}

func TestChain_LoadLast(t *testing.T) {
	ctx := context.Background()
	snap := sampleSnapshot()

	t.Run("falls back to mirror", func(t *testing.T) {
		c := NewChain(logger.Nop(), &fakeStore{loadErr: errors.New("corrupt")}, &fakeStore{last: snap})
		got, err := c.LoadLast(ctx)
		require.NoError(t, err)
		assert.Equal(t, snap, got)
	})

	t.Run("nothing stored", func(t *testing.T) {
		c := NewChain(logger.Nop(), &fakeStore{}, &fakeStore{})
		got, err := c.LoadLast(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("all failing", func(t *testing.T) {
		c := NewChain(logger.Nop(), &fakeStore{loadErr: errors.New("a")}, &fakeStore{loadErr: errors.New("b")})
		_, err := c.LoadLast(ctx)
		assert.Error(t, err)
	})
}

func TestRedisStore_Disabled(t *testing.T) {
	ctx := context.Background()
	s := NewRedisStore(redis.Wrap(nil))

	require.NoError(t, s.Save(ctx, sampleSnapshot()))
	got, err := s.LoadLast(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping integration test")
	}

	ctx := context.Background()
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: addr}))
	defer client.Close()

	s := NewRedisStore(client)
	require.NoError(t, s.Save(ctx, sampleSnapshot()))

	got, err := s.LoadLast(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	s := NewPostgresStore(pool)
	require.NoError(t, s.EnsureSchema(ctx))

	runCtx := movers.WithRunID(ctx, "6f1c1f5e-8d8b-4a4c-9a53-2b1f2f0c0d11")
	require.NoError(t, s.Save(runCtx, sampleSnapshot()))

	got, err := s.LoadLast(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)

	history, err := s.History(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, KindLive, history[0].Kind)
}
