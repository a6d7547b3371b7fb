package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/config"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quill.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[site]
title = "Field notes"

[admin]
token = "s3cret"

[storage]
backend = "redis"
redis_addr = "cache:6379"

[server]
port = 8080
cors_origins = ["http://localhost:3001"]
`), 0o600))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Field notes", cfg.Site.Title)
	assert.Equal(t, "s3cret", cfg.Admin.Token)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "cache:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, "blogPosts", cfg.Storage.Key, "untouched keys keep their default")
	assert.Equal(t, "quill.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3001"}, cfg.Server.CorsOrigins)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[site\ntitle ="), 0o600))

	_, err := config.LoadConfig(path)
	assert.Error(t, err)
}
