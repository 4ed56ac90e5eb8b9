// Package config loads store settings from YAML and turns them into a
// keyvmongo.Source.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Backend      string `yaml:"backend"`
	URL          string `yaml:"url"` // mongo connection string
	Collection   string `yaml:"collection"`
	Namespace    string `yaml:"namespace"`
	AwaitIndexes bool   `yaml:"await_indexes"`

	// ValueCodec encodes values before storage: string | json | msgpack | cbor | protobuf.
	// Empty stores them natively (BSON for mongo).
	ValueCodec    string `yaml:"codec"`
	MaxValueBytes int    `yaml:"max_value_bytes"` // 0 => MongoDB document limit

	// ConnectTimeout bounds the mongo handshake. The store itself never times out.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	Redis  RedisConfig  `yaml:"redis"`
	Memory MemoryConfig `yaml:"memory"`
	Log    LogConfig    `yaml:"log"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MemoryConfig struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
}

type LogConfig struct {
	Format string `yaml:"format"` // zap | logrus | slog
	Level  string `yaml:"level"`  // debug | info | warn | error
}

// Default returns a config pointing at a local MongoDB.
func Default() *Config {
	return &Config{
		Backend:        BackendMongo,
		URL:            "mongodb://127.0.0.1:27017/keyv",
		Collection:     "keyv",
		ConnectTimeout: 10 * time.Second,
		Redis:          RedisConfig{Addr: "127.0.0.1:6379"},
		Memory:         MemoryConfig{NumCounters: 1e5, MaxCost: 64 << 20, BufferItems: 64},
		Log:            LogConfig{Format: "zap", Level: "info"},
	}
}

// Load reads path over Default(). An empty path or a missing file yields the
// defaults; unreadable or malformed files are errors.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMongo:
		if c.URL == "" {
			return errors.New("config: url is required for the mongo backend")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("config: redis.addr is required for the redis backend")
		}
	case BackendMemory:
		m := c.Memory
		if m.NumCounters <= 0 || m.MaxCost <= 0 || m.BufferItems <= 0 {
			return errors.New("config: memory sizes must be positive")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.ConnectTimeout < 0 {
		return errors.New("config: connect_timeout must not be negative")
	}
	if c.MaxValueBytes < 0 {
		return errors.New("config: max_value_bytes must not be negative")
	}
	if _, err := c.Codec(); err != nil {
		return err
	}
	return nil
}
