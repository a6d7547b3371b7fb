package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"quill/auth"
	"quill/config"
	"quill/db"
	"quill/store"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   "quill.toml",
			Usage:   "Path to the TOML configuration file",
			EnvVars: []string{"QUILL_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			EnvVars: []string{"QUILL_LOG_LEVEL"},
		},
		&cli.BoolFlag{
			Name:    "log-json",
			Usage:   "Log as JSON",
			EnvVars: []string{"QUILL_LOG_JSON"},
		},
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "Storage backend: sqlite, postgres, redis or memory",
			EnvVars: []string{"QUILL_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "database",
			Aliases: []string{"d"},
			Usage:   "SQLite database file location",
			EnvVars: []string{"QUILL_DATABASE"},
		},
		&cli.StringFlag{
			Name:    "postgres-dsn",
			Usage:   "PostgreSQL connection URL",
			EnvVars: []string{"QUILL_POSTGRES_DSN"},
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address",
			EnvVars: []string{"QUILL_REDIS_ADDR"},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			EnvVars: []string{"QUILL_REDIS_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "admin-token",
			Usage:   "The shared token that unlocks admin operations",
			EnvVars: []string{"QUILL_ADMIN_TOKEN"},
		},
	}
}

// loadConfig reads the config file and lets flags and environment win
func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := []struct {
		flag   string
		target *string
	}{
		{"backend", &cfg.Storage.Backend},
		{"database", &cfg.Storage.SQLitePath},
		{"postgres-dsn", &cfg.Storage.PostgresDSN},
		{"redis-addr", &cfg.Storage.RedisAddr},
		{"redis-password", &cfg.Storage.RedisPass},
		{"admin-token", &cfg.Admin.Token},
	}
	for _, o := range overrides {
		if ctx.IsSet(o.flag) {
			*o.target = ctx.String(o.flag)
		}
	}

	return cfg, nil
}

func storageOptions(cfg *config.TomlConfig) db.Options {
	return db.Options{
		Backend:       cfg.Storage.Backend,
		SQLitePath:    cfg.Storage.SQLitePath,
		PostgresDSN:   cfg.Storage.PostgresDSN,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPass,
		RedisDB:       cfg.Storage.RedisDB,
		RedisPrefix:   cfg.Storage.RedisPrefix,
	}
}

// env bundles everything a command needs to work with posts
type env struct {
	cfg   *config.TomlConfig
	slots db.SlotStore
	store *store.Store
	gate  *auth.Gate
}

func (e *env) Close() error { return e.slots.Close() }

func openEnv(ctx context.Context, cfg *config.TomlConfig, opts ...store.Option) (*env, error) {
	slots, err := db.Open(ctx, storageOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if cfg.Storage.Key != "" {
		opts = append([]store.Option{store.WithKey(cfg.Storage.Key)}, opts...)
	}
	return &env{
		cfg:   cfg,
		slots: slots,
		store: store.New(slots, opts...),
		gate:  auth.NewGate(cfg.Admin.Token),
	}, nil
}

func setup(ctx *cli.Context, opts ...store.Option) (*env, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	return openEnv(ctx.Context, cfg, opts...)
}
