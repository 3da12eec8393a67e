package config_test

import (
	"database/sql"
	"os"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retainhq/retain/internal/config"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	require.NoError(t, err)
	return db
}

func TestLoadConfig_DefaultHostIsLocalhost(t *testing.T) {
	_ = os.Unsetenv("RETAIN_HOST")
	cfg, err := config.LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host,
		"Default host must be 127.0.0.1 for security")
}

func TestLoadConfig_CanOverrideHost(t *testing.T) {
	t.Setenv("RETAIN_HOST", "0.0.0.0")
	cfg, err := config.LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"RETAIN_PORT", "RETAIN_STORAGE_ENGINE", "RETAIN_LLM_PROVIDER",
		"RETAIN_DESIRED_RETENTION", "RETAIN_MAX_INTERVAL_DAYS",
	} {
		_ = os.Unsetenv(key)
	}

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7373, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.StorageEngine)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.GeminiModel)
	assert.Equal(t, 0.9, cfg.Scheduler.DesiredRetention)
	assert.Equal(t, 36500, cfg.Scheduler.MaximumInterval)
	assert.False(t, cfg.Scheduler.DisableFuzzing)
}

func TestLoadConfig_SchedulerOverrides(t *testing.T) {
	t.Setenv("RETAIN_DESIRED_RETENTION", "0.85")
	t.Setenv("RETAIN_MAX_INTERVAL_DAYS", "365")
	t.Setenv("RETAIN_DISABLE_FUZZING", "true")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 0.85, cfg.Scheduler.DesiredRetention)
	assert.Equal(t, 365, cfg.Scheduler.MaximumInterval)
	assert.True(t, cfg.Scheduler.DisableFuzzing)
}

func TestLoadConfig_BadNumbersFallBack(t *testing.T) {
	t.Setenv("RETAIN_PORT", "not-a-port")
	t.Setenv("RETAIN_DESIRED_RETENTION", "ninety percent")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7373, cfg.Server.Port)
	assert.Equal(t, 0.9, cfg.Scheduler.DesiredRetention)
}

func TestUserConfig_EnvVarFallback(t *testing.T) {
	t.Setenv("RETAIN_USER_NAME", "alice")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "alice", cfg.User.UserName)
}

func TestSaveConfig_PersistsUserName(t *testing.T) {
	db := openTestDB(t)
	defer func() { _ = db.Close() }()

	cfg := &config.Config{}
	cfg.User.UserName = "bob"

	require.NoError(t, cfg.SaveConfig(db))

	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = 'user_name'").Scan(&value)
	require.NoError(t, err, "user_name must be stored in settings table")
	assert.Equal(t, "bob", value)
}

func TestSaveConfig_Upserts(t *testing.T) {
	db := openTestDB(t)
	defer func() { _ = db.Close() }()

	cfg := &config.Config{}
	cfg.User.UserName = "bob"
	require.NoError(t, cfg.SaveConfig(db))

	cfg.User.UserName = "carol"
	require.NoError(t, cfg.SaveConfig(db))

	var value string
	require.NoError(t, db.QueryRow("SELECT value FROM settings WHERE key = 'user_name'").Scan(&value))
	assert.Equal(t, "carol", value)
}

func TestLoadConfigFromDB_DBTakesPrecedence(t *testing.T) {
	db := openTestDB(t)
	defer func() { _ = db.Close() }()

	t.Setenv("RETAIN_USER_NAME", "env-name")
	_, err := db.Exec("INSERT INTO settings (key, value) VALUES ('user_name', 'db-name')")
	require.NoError(t, err)

	cfg, err := config.LoadConfigFromDB(db)
	require.NoError(t, err)
	assert.Equal(t, "db-name", cfg.User.UserName)
}

func TestLoadConfigFromDB_FallsBackToEnv(t *testing.T) {
	db := openTestDB(t)
	defer func() { _ = db.Close() }()

	t.Setenv("RETAIN_USER_NAME", "env-name")

	cfg, err := config.LoadConfigFromDB(db)
	require.NoError(t, err)
	assert.Equal(t, "env-name", cfg.User.UserName)
}

func TestLoadConfigFromDB_RequiresDB(t *testing.T) {
	_, err := config.LoadConfigFromDB(nil)
	assert.Error(t, err)
}
