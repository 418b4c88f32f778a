package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/tablemap/adapter"
	"github.com/satishbabariya/tablemap/orm"
)

var AppFs = afero.NewOsFs()

// Config holds the application configuration
type Config struct {
	Adapter      string
	DSN          string
	Debug        bool
	MaxOpenConns int
	Options      map[string]string
}

// Load reads configuration from .tablemap.yaml, TABLEMAP_* environment
// variables and .env files, in increasing order of priority.
func Load() (*Config, error) {
	return LoadWith(viper.GetViper())
}

// LoadWith loads configuration into v.
func LoadWith(v *viper.Viper) (*Config, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v.SetConfigName(".tablemap")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "tablemap"))
	v.SetFs(AppFs)

	v.SetEnvPrefix("TABLEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("adapter", "sqlite")
	v.SetDefault("debug", false)
	v.SetDefault("max_open_conns", 0)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// .env.local overrides .env
	if _, err := AppFs.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
	if _, err := AppFs.Stat(".env.local"); err == nil {
		_ = godotenv.Overload(".env.local")
	}

	cfg := &Config{
		Adapter:      v.GetString("adapter"),
		DSN:          v.GetString("dsn"),
		Debug:        v.GetBool("debug"),
		MaxOpenConns: v.GetInt("max_open_conns"),
		Options:      v.GetStringMapString("options"),
	}
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
	}

	return cfg, nil
}

// Validate reports missing or unknown settings.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("no dsn configured: pass --dsn, set TABLEMAP_DSN or DATABASE_URL")
	}
	if !adapter.IsRegistered(c.Adapter) {
		return fmt.Errorf("unknown adapter %q (available: %s)", c.Adapter, strings.Join(adapter.List(), ", "))
	}
	return nil
}

// ORM returns the configuration the orm package opens a database with.
func (c *Config) ORM() orm.Config {
	return orm.Config{
		Adapter: c.Adapter,
		DSN:     c.DSN,
		Options: adapter.Options{
			MaxOpenConns: c.MaxOpenConns,
			Params:       c.Options,
		},
	}
}

// Save writes the configuration to $HOME/.config/tablemap/.tablemap.yaml.
func Save(cfg *Config) (string, error) {
	v := viper.New()
	v.SetFs(AppFs)
	v.Set("adapter", cfg.Adapter)
	v.Set("dsn", cfg.DSN)
	v.Set("debug", cfg.Debug)
	v.Set("max_open_conns", cfg.MaxOpenConns)
	if len(cfg.Options) > 0 {
		v.Set("options", cfg.Options)
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(home, ".config", "tablemap")
	if err := AppFs.MkdirAll(configPath, 0o755); err != nil {
		return "", err
	}

	configFile := filepath.Join(configPath, ".tablemap.yaml")
	return configFile, v.WriteConfigAs(configFile)
}
