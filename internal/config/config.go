// Package config loads CLI configuration from defaults, an optional
// config file, and OPENSWARM_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the CLI needs to assemble a memory manager.
type Config struct {
	DBPath    string      `mapstructure:"db_path"`
	Namespace string      `mapstructure:"namespace"`
	Debug     bool        `mapstructure:"debug"`
	Cache     CacheConfig `mapstructure:"cache"`
}

// CacheConfig mirrors the cache layer's construction options.
type CacheConfig struct {
	MaxSizeBytes int64         `mapstructure:"max_size_bytes"`
	TTL          time.Duration `mapstructure:"ttl"`
	Strategy     string        `mapstructure:"strategy"`
}

// Default returns the built-in defaults, the single source of truth for
// viper registration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DBPath:    filepath.Join(home, ".openswarm", "memory.db"),
		Namespace: "default",
		Cache: CacheConfig{
			MaxSizeBytes: 16 << 20,
			TTL:          0,
			Strategy:     "lru",
		},
	}
}

// Load reads configuration with precedence: env (OPENSWARM_*), then the
// config file (config.yaml in configDir, optional), then defaults.
func Load(configDir string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".openswarm"))
	}

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("OPENSWARM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("namespace", d.Namespace)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("cache.max_size_bytes", d.Cache.MaxSizeBytes)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.strategy", d.Cache.Strategy)
}
