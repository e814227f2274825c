// Package kv provides the durable key-value backends the store persists
// its snapshot into.
package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/fairyhunter13/gng-store/internal/config"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("kv: key not found")

// Backend is a minimal durable key-value store. Put overwrites any prior
// value for the key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open builds the backend selected by cfg.StoreBackend.
func Open(cfg config.Config) (Backend, error) {
	switch cfg.StoreBackend {
	case "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.StoreDir)
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "redis":
		return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	default:
		return nil, fmt.Errorf("kv: unknown backend %q", cfg.StoreBackend)
	}
}
