package session

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petvision-server-go/internal/domain/image"
	"petvision-server-go/internal/platform/config"
	"petvision-server-go/internal/platform/storage"
)

func newSQLiteStore(t *testing.T, ttl time.Duration) Store {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })

	s, err := New(Config{Driver: DriverSQLite, TTL: ttl}, Dependencies{SQLiteDB: db})
	require.NoError(t, err)
	return s
}

func newRedisStore(t *testing.T, ttl time.Duration) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s, err := New(Config{Driver: DriverRedis, TTL: ttl, Redis: &RedisConfig{Addr: mr.Addr()}}, Dependencies{})
	require.NoError(t, err)
	return s, mr
}

func drivers(t *testing.T) map[string]Store {
	t.Helper()
	mem := NewMemory(Config{TTL: time.Hour})
	redisStore, _ := newRedisStore(t, time.Hour)
	stores := map[string]Store{
		DriverMemory: mem,
		DriverSQLite: newSQLiteStore(t, time.Hour),
		DriverRedis:  redisStore,
	}
	for _, s := range stores {
		s := s
		t.Cleanup(func() { _ = s.Close(context.Background()) })
	}
	return stores
}

func sampleRecord(sessionID, flow string) Record {
	return Record{
		SessionID: sessionID,
		Flow:      flow,
		State:     StateImageSelected,
		Upload: &image.Upload{
			Bytes:    []byte{0xFF, 0xD8, 0xFF, 0x01, 0x02},
			Format:   image.FormatJPEG,
			Filename: "rex.jpg",
		},
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			rec := sampleRecord("s1", "veterinary")
			require.NoError(t, s.Put(ctx, rec))

			got, err := s.Get(ctx, "s1", "veterinary")
			require.NoError(t, err)
			assert.Equal(t, StateImageSelected, got.State)
			require.True(t, got.HasImage())
			assert.Equal(t, rec.Upload.Bytes, got.Upload.Bytes)
			assert.Equal(t, image.FormatJPEG, got.Upload.Format)
			assert.Equal(t, "rex.jpg", got.Upload.Filename)
			assert.False(t, got.CreatedAt.IsZero())
			require.NotNil(t, got.ExpiresAt)

			got.State = StateCompleted
			got.ResultText = "Detailed Analysis: fine"
			require.NoError(t, s.Put(ctx, got))

			again, err := s.Get(ctx, "s1", "veterinary")
			require.NoError(t, err)
			assert.Equal(t, StateCompleted, again.State)
			assert.Equal(t, "Detailed Analysis: fine", again.ResultText)

			keys, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"s1:veterinary"}, keys)

			stats, err := s.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, name, stats["type"])

			require.NoError(t, s.Remove(ctx, "s1", "veterinary"))
			_, err = s.Get(ctx, "s1", "veterinary")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreIsolation(t *testing.T) {
	ctx := context.Background()
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, sampleRecord("alice", "veterinary")))
			bob := sampleRecord("bob", "veterinary")
			bob.Upload.Bytes = []byte{0x89, 'P', 'N', 'G'}
			bob.Upload.Format = image.FormatPNG
			require.NoError(t, s.Put(ctx, bob))

			_, err := s.Get(ctx, "alice", "dog-food")
			assert.ErrorIs(t, err, ErrNotFound)

			a, err := s.Get(ctx, "alice", "veterinary")
			require.NoError(t, err)
			b, err := s.Get(ctx, "bob", "veterinary")
			require.NoError(t, err)
			assert.NotEqual(t, a.Upload.Bytes, b.Upload.Bytes)

			keys, err := s.List(ctx)
			require.NoError(t, err)
			sort.Strings(keys)
			assert.Equal(t, []string{"alice:veterinary", "bob:veterinary"}, keys)
		})
	}
}

func TestStorePutRequiresKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.Put(ctx, Record{Flow: "veterinary"}))
			assert.Error(t, s.Put(ctx, Record{SessionID: "s"}))
		})
	}
}

func TestMemoryStore_ExpiryAndCleanup(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(Config{TTL: 20 * time.Millisecond, Memory: &MemoryConfig{GCInterval: time.Hour}})
	defer s.Close(ctx)

	require.NoError(t, s.Put(ctx, sampleRecord("s", "veterinary")))
	time.Sleep(40 * time.Millisecond)

	_, err := s.Get(ctx, "s", "veterinary")
	assert.ErrorIs(t, err, ErrNotFound)

	stats, _ := s.Stats(ctx)
	assert.Equal(t, 1, stats["total"])
	assert.Equal(t, 0, stats["active"])

	require.NoError(t, s.CleanupExpired(ctx))
	stats, _ = s.Stats(ctx)
	assert.Equal(t, 0, stats["total"])
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(Config{})
	defer s.Close(ctx)

	rec := sampleRecord("s", "veterinary")
	require.NoError(t, s.Put(ctx, rec))
	rec.Upload.Filename = "changed.jpg"

	got, err := s.Get(ctx, "s", "veterinary")
	require.NoError(t, err)
	assert.Equal(t, "rex.jpg", got.Upload.Filename)

	got.State = StateFaulted
	again, _ := s.Get(ctx, "s", "veterinary")
	assert.Equal(t, StateImageSelected, again.State)
}

func TestSQLiteStore_ExpiryAndCleanup(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t, 20*time.Millisecond)

	require.NoError(t, s.Put(ctx, sampleRecord("s", "dog-food")))
	time.Sleep(40 * time.Millisecond)

	_, err := s.Get(ctx, "s", "dog-food")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CleanupExpired(ctx))
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats["total"])
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)
	defer s.Close(ctx)

	require.NoError(t, s.Put(ctx, sampleRecord("s", "veterinary")))
	assert.True(t, mr.Exists("petvision:session:s:veterinary"))

	mr.FastForward(2 * time.Minute)
	_, err := s.Get(ctx, "s", "veterinary")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Driver: DriverSQLite}, Dependencies{})
	assert.Error(t, err)

	_, err = New(Config{Driver: DriverRedis}, Dependencies{})
	assert.Error(t, err)

	_, err = New(Config{Driver: "etcd"}, Dependencies{})
	assert.Error(t, err)
}

func TestConfigFrom(t *testing.T) {
	cfg := config.DefaultConfig().Session
	got := ConfigFrom(cfg)
	assert.Equal(t, "memory", got.Driver)
	assert.Equal(t, time.Hour, got.TTL)
	assert.Nil(t, got.Redis)

	cfg.Store.Type = "redis"
	cfg.Store.Redis.Addr = "localhost:6379"
	got = ConfigFrom(cfg)
	require.NotNil(t, got.Redis)
	assert.Equal(t, "localhost:6379", got.Redis.Addr)
	assert.Equal(t, "petvision:session:", got.Redis.Prefix)
}
