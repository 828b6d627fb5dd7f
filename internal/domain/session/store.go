package session

import (
	"context"
	stderrors "errors"
	"time"
)

// ErrNotFound 记录不存在或已过期
var ErrNotFound = stderrors.New("session record not found")

// Store defines the behaviour required by the analysis service.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, sessionID, flow string) (Record, error)
	Remove(ctx context.Context, sessionID, flow string) error
	List(ctx context.Context) ([]string, error)
	CleanupExpired(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  *RedisConfig
	Memory *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

const defaultTTL = time.Hour
