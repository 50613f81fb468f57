package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "auto", cfg.StoreMode)
	assert.Equal(t, time.Minute, cfg.ReminderInterval)
	assert.Equal(t, "primary", cfg.CalendarID)
	assert.Equal(t, 24, cfg.JWTExpirationHours)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORE_MODE", "Mirror")
	t.Setenv("REMINDER_INTERVAL", "30s")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("FORCE_MOCK", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, "mirror", cfg.StoreMode)
	assert.Equal(t, 30*time.Second, cfg.ReminderInterval)
	assert.Equal(t, 7, cfg.DBMaxOpenConns)
	assert.True(t, cfg.ForceMock)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DB_MAX_IDLE_CONNS", "lots")
	t.Setenv("REMINDER_INTERVAL", "-5s")

	cfg := Load()

	assert.Equal(t, 10, cfg.DBMaxIdleConns)
	assert.Equal(t, time.Minute, cfg.ReminderInterval)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zentask.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app_port: \"7070\"\nlocale: de\n"), 0o600))
	t.Setenv("ZENTASK_CONFIG", path)
	t.Setenv("LOCALE", "fr")

	cfg := Load()

	assert.Equal(t, "7070", cfg.AppPort)
	assert.Equal(t, "fr", cfg.Locale, "environment wins over the file")
}

func TestDatabaseConfigured(t *testing.T) {
	assert.False(t, Config{DBDriver: "postgres"}.DatabaseConfigured())
	assert.True(t, Config{DBDriver: "postgres", DBHost: "db"}.DatabaseConfigured())
	assert.False(t, Config{DBDriver: "sqlite"}.DatabaseConfigured())
	assert.True(t, Config{DBDriver: "sqlite", DBPath: "zentask.db"}.DatabaseConfigured())
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.Local, Config{}.Location())
	assert.Equal(t, time.Local, Config{TimeZone: "Nowhere/Never"}.Location())
	assert.Equal(t, "UTC", Config{TimeZone: "UTC"}.Location().String())
}
