package config

import (
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/satishbabariya/tablemap/adapter/sqladapter"
)

func setup(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TABLEMAP_DSN", "")

	homedir.DisableCache = true
	prev := AppFs
	AppFs = afero.NewMemMapFs()
	t.Cleanup(func() {
		AppFs = prev
		homedir.DisableCache = false
	})
	return home
}

func TestLoadFromFile(t *testing.T) {
	home := setup(t)
	yaml := "adapter: postgres\ndsn: postgres://localhost/music\nmax_open_conns: 4\noptions:\n  schema: app\n"
	require.NoError(t, afero.WriteFile(AppFs, filepath.Join(home, ".tablemap.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Adapter)
	assert.Equal(t, "postgres://localhost/music", cfg.DSN)
	assert.Equal(t, 4, cfg.MaxOpenConns)
	assert.Equal(t, map[string]string{"schema": "app"}, cfg.Options)
	require.NoError(t, cfg.Validate())

	orm := cfg.ORM()
	assert.Equal(t, "postgres", orm.Adapter)
	assert.Equal(t, 4, orm.Options.MaxOpenConns)
	assert.Equal(t, "app", orm.Options.Param("schema", "public"))
}

func TestEnvironmentOverrides(t *testing.T) {
	home := setup(t)
	require.NoError(t, afero.WriteFile(AppFs, filepath.Join(home, ".tablemap.yaml"), []byte("dsn: file.db\n"), 0o644))
	t.Setenv("TABLEMAP_DSN", "env.db")

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DSN)
	assert.Equal(t, "sqlite", cfg.Adapter)
}

func TestDatabaseURLFallback(t *testing.T) {
	setup(t)
	t.Setenv("DATABASE_URL", "fallback.db")

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "fallback.db", cfg.DSN)
}

func TestValidate(t *testing.T) {
	assert.ErrorContains(t, (&Config{Adapter: "sqlite"}).Validate(), "no dsn")
	assert.ErrorContains(t, (&Config{Adapter: "oracle", DSN: "x"}).Validate(), "unknown adapter")
	assert.NoError(t, (&Config{Adapter: "sqlite", DSN: "x.db"}).Validate())
}

func TestSave(t *testing.T) {
	home := setup(t)

	path, err := Save(&Config{Adapter: "rest", DSN: "http://localhost:8080"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "tablemap", ".tablemap.yaml"), path)

	data, err := afero.ReadFile(AppFs, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dsn: http://localhost:8080")
}
