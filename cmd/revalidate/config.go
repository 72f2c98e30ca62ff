package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	providerMemory = "memory"
	providerSQLite = "sqlite"
	providerRedis  = "redis"
)

type Config struct {
	Port       int              `yaml:"port"`
	Cache      CacheConfig      `yaml:"cache"`
	Edge       EdgeConfig       `yaml:"edge"`
	Revalidate RevalidateConfig `yaml:"revalidate"`
	Wiki       WikiConfig       `yaml:"wiki"`
}

type CacheConfig struct {
	Provider string `yaml:"provider"`
	SQLite   string `yaml:"sqlite"`
	Redis    string `yaml:"redis"`
	Size     int    `yaml:"size"`
}

type EdgeConfig struct {
	GeoHeader string `yaml:"geoHeader"`
}

type RevalidateConfig struct {
	Secret string `yaml:"secret"`
}

type WikiConfig struct {
	URL string `yaml:"url"`
}

func defaultConfig() Config {
	return Config{
		Port: 8080,
		Cache: CacheConfig{
			Provider: providerMemory,
			SQLite:   "cache.db",
			Redis:    "redis://localhost:6379/0",
		},
	}
}

func getConfig(filename string) (Config, error) {
	config := defaultConfig()
	if filename == "" {
		return config, nil
	}
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(configBytes, &config); err != nil {
		return config, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return config, config.validate()
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Cache.Provider {
	case providerMemory, providerSQLite, providerRedis:
	default:
		return fmt.Errorf("unknown cache provider %q", c.Cache.Provider)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("invalid cache size %d", c.Cache.Size)
	}
	return nil
}

// applyFlags overrides the config with the flags set on the command line.
func (c *Config) applyFlags(fs *flag.FlagSet) error {
	var err error
	fs.Visit(func(f *flag.Flag) {
		value := f.Value.String()
		switch f.Name {
		case "port":
			_, err = fmt.Sscan(value, &c.Port)
		case "provider":
			c.Cache.Provider = value
		case "db":
			c.Cache.SQLite = value
		case "redis":
			c.Cache.Redis = value
		case "geo-header":
			c.Edge.GeoHeader = value
		case "secret":
			c.Revalidate.Secret = value
		}
	})
	if err != nil {
		return err
	}
	return c.validate()
}
