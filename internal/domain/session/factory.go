package session

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"petvision-server-go/internal/platform/config"
)

// Driver identifiers supported by the session domain.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	SQLiteDB *gorm.DB
}

// New creates a session store based on the provided configuration.
func New(cfg Config, deps Dependencies) (Store, error) {
	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(cfg), nil
	case DriverSQLite:
		if deps.SQLiteDB == nil {
			return nil, fmt.Errorf("sqlite driver requires database handle")
		}
		return NewSQLite(deps.SQLiteDB, cfg)
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported session store driver: %s", driver)
	}
}

// ConfigFrom maps the yaml session section onto a store config.
func ConfigFrom(c config.SessionConfig) Config {
	cfg := Config{
		Driver: c.Store.Type,
		TTL:    c.TTL,
		Memory: &MemoryConfig{GCInterval: c.Store.Cleanup},
	}
	if strings.EqualFold(c.Store.Type, DriverRedis) {
		cfg.Redis = &RedisConfig{
			Addr:     c.Store.Redis.Addr,
			Username: c.Store.Redis.Username,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
			Prefix:   c.Store.Redis.Prefix,
		}
	}
	return cfg
}
