// Package db persists named blobs ("slots") for the rest of quill.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrSlotNotFound is returned by Get when nothing was ever written to the slot
var ErrSlotNotFound = errors.New("slot not found")

// SlotStore reads and writes whole blobs under fixed names
type SlotStore interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
	Close() error
}

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Options selects and configures a slot backend
type Options struct {
	Backend string

	SQLitePath string

	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open connects to the configured backend. SQL backends are migrated before use.
func Open(ctx context.Context, opts Options) (SlotStore, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendSQLite:
		if err := Migrate(opts); err != nil {
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return NewSQLiteSlots(opts.SQLitePath)
	case BackendPostgres:
		if err := Migrate(opts); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return NewPostgresSlots(ctx, opts.PostgresDSN)
	case BackendRedis:
		return NewRedisSlots(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix)
	case BackendMemory:
		return NewMemorySlots(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
