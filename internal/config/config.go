// Package config loads the server configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// ATSIM_* environment variables (ATSIM_REDIS_ADDR for redis.addr and so on).
// Command-line flags are applied on top by the CLI.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/atsim/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ATSIM_"

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBolt   = "bolt"
)

// Config is the complete server configuration.
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string        `mapstructure:"log_format" yaml:"log_format"`
	ModelsDir       string        `mapstructure:"models_dir" yaml:"models_dir"`
	TokensFile      string        `mapstructure:"tokens_file" yaml:"tokens_file"`
	Store           string        `mapstructure:"store" yaml:"store"`
	Redis           RedisConfig   `mapstructure:"redis" yaml:"redis"`
	Bolt            BoltConfig    `mapstructure:"bolt" yaml:"bolt"`
	MaxRunning      int           `mapstructure:"max_running" yaml:"max_running"`
	StreamBuffer    int           `mapstructure:"stream_buffer" yaml:"stream_buffer"`
	ScriptTimeout   time.Duration `mapstructure:"script_timeout" yaml:"script_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// RedisConfig configures the Redis process store and locker.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// BoltConfig configures the embedded process store.
type BoltConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// keys lists every setting that can be overridden from the environment.
var keys = []string{
	"addr", "log_level", "log_format", "models_dir", "tokens_file", "store",
	"redis.addr", "redis.password", "redis.db", "redis.prefix", "redis.ttl",
	"bolt.path",
	"max_running", "stream_buffer", "script_timeout", "shutdown_timeout",
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		ModelsDir:       "models",
		Store:           StoreMemory,
		Redis:           RedisConfig{Addr: "localhost:6379", Prefix: "atsim:process:"},
		Bolt:            BoltConfig{Path: "atsim.db"},
		StreamBuffer:    16,
		ScriptTimeout:   2 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// not empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		if err := decode(raw, &cfg, false); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if env := fromEnv(os.LookupEnv); len(env) > 0 {
		if err := decode(env, &cfg, true); err != nil {
			return cfg, fmt.Errorf("environment: %w", err)
		}
	}

	return cfg, cfg.Validate()
}

// fromEnv collects ATSIM_* variables into the same nested shape as the file.
func fromEnv(lookup func(string) (string, bool)) map[string]any {
	out := make(map[string]any)
	for _, key := range keys {
		name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		val, ok := lookup(name)
		if !ok {
			continue
		}
		section, field, nested := strings.Cut(key, ".")
		if !nested {
			out[key] = val
			continue
		}
		sub, _ := out[section].(map[string]any)
		if sub == nil {
			sub = make(map[string]any)
			out[section] = sub
		}
		sub[field] = val
	}
	return out
}

func decode(raw map[string]any, cfg *Config, weak bool) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: weak,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis, StoreBolt:
	default:
		return fmt.Errorf("%w: unknown store %q", domain.ErrInvalidArgument, c.Store)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", domain.ErrInvalidArgument, c.LogFormat)
	}
	if c.Store == StoreBolt && c.Bolt.Path == "" {
		return fmt.Errorf("%w: bolt.path is required for the bolt store", domain.ErrInvalidArgument)
	}
	if c.Store == StoreRedis && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required for the redis store", domain.ErrInvalidArgument)
	}
	if c.MaxRunning < 0 || c.StreamBuffer < 0 {
		return fmt.Errorf("%w: max_running and stream_buffer must not be negative", domain.ErrInvalidArgument)
	}
	return nil
}
