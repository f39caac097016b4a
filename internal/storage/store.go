// Package storage is the durable key-value store behind the session:
// token, user record and the cached dashboard lists.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lumofit/companion/internal/config"
	"github.com/lumofit/companion/internal/database"
)

// Slot keys
const (
	TokenKey    = "userToken"
	UserDataKey = "userData"
	PatientsKey = "patients"
	DevicesKey  = "connectedDevices"
)

// SessionKeys are the slots wiped on logout or a rejected token
var SessionKeys = []string{TokenKey, UserDataKey}

// Store holds string values under string keys. A missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
	Close() error
}

// GetJSON decodes the value at key into dest. found is false on a miss.
func GetJSON(ctx context.Context, s Store, key string, dest interface{}) (bool, error) {
	val, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it at key
func SetJSON(ctx context.Context, s Store, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// Open builds the backend selected by STORE_BACKEND
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case "", "file":
		return OpenFileStore(cfg.StorePath, cfg.StorePassphrase)
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		client, err := database.ConnectRedis(ctx, cfg.RedisURI)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisStore(client), nil
	case "postgres":
		db, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return NewPostgresStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
