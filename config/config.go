package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

// TomlSite holds presentation settings for the reading page
type TomlSite struct {
	Title       string `toml:"title" json:"title"`
	Description string `toml:"description" json:"description"`
}

// TomlAdmin holds the shared admin token
type TomlAdmin struct {
	Token string `toml:"token"`
}

// TomlStorage selects where the posts blob is kept
type TomlStorage struct {
	Backend     string `toml:"backend"`
	Key         string `toml:"key"`
	SQLitePath  string `toml:"sqlite_path"`
	PostgresDSN string `toml:"postgres_dsn"`
	RedisAddr   string `toml:"redis_addr"`
	RedisPass   string `toml:"redis_password"`
	RedisDB     int    `toml:"redis_db"`
	RedisPrefix string `toml:"redis_prefix"`
}

// TomlServer configures the HTTP listener
type TomlServer struct {
	Port        int      `toml:"port"`
	CorsOrigins []string `toml:"cors_origins"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Site    TomlSite    `toml:"site"`
	Admin   TomlAdmin   `toml:"admin"`
	Storage TomlStorage `toml:"storage"`
	Server  TomlServer  `toml:"server"`
}

// Default returns the configuration used when no file is present
func Default() *TomlConfig {
	return &TomlConfig{
		Site: TomlSite{
			Title: "quill",
		},
		Storage: TomlStorage{
			Backend:     "sqlite",
			Key:         "blogPosts",
			SQLitePath:  "quill.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "quill:",
		},
		Server: TomlServer{
			Port: 3000,
		},
	}
}

// LoadConfig reads path on top of the defaults. A missing file is not an error.
func LoadConfig(path string) (*TomlConfig, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}
