package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis constructs a redis-backed session store. Expiry is delegated
// to redis key TTLs.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "petvision:session:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisStore{client: client, ttl: ttl, prefix: prefix}, nil
}

func (s *redisStore) key(sessionID, flow string) string {
	return s.prefix + Key(sessionID, flow)
}

func (s *redisStore) Put(ctx context.Context, rec Record) error {
	if rec.SessionID == "" || rec.Flow == "" {
		return fmt.Errorf("session id and flow required")
	}
	rec.stamp(time.Now(), s.ttl)
	data, err := sonic.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(rec.SessionID, rec.Flow), data, s.ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, sessionID, flow string) (Record, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID, flow)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := sonic.Unmarshal(raw, &rec); err != nil {
		return Record{}, err
	}
	if rec.Expired(time.Now()) {
		_ = s.Remove(ctx, sessionID, flow)
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *redisStore) Remove(ctx context.Context, sessionID, flow string) error {
	return s.client.Del(ctx, s.key(sessionID, flow)).Err()
}

func (s *redisStore) List(ctx context.Context) ([]string, error) {
	var cursor uint64
	keys := make([]string, 0)
	for {
		res, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range res {
			keys = append(keys, strings.TrimPrefix(key, s.prefix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return keys, nil
}

func (s *redisStore) CleanupExpired(context.Context) error {
	// Redis handles expiration via TTL.
	return nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	keys, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":        DriverRedis,
		"total":       len(keys),
		"ttl_seconds": int(s.ttl.Seconds()),
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
