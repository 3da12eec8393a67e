// Package config provides configuration management for Retain.
// It loads settings from environment variables with the RETAIN_ prefix
// and provides sensible defaults for all configuration options.
//
// User settings (e.g., user_name) are persisted to the settings table in
// the database. LoadConfigFromDB reads from the database first and falls
// back to environment variables. SaveConfig writes user settings back.
package config

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration settings for the Retain application.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	LLM       LLMConfig
	Scheduler SchedulerConfig
	Security  SecurityConfig
	User      UserConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 7373)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for SQLite (default: ./data)
	PostgresDSN   string // PostgreSQL connection string when engine is postgres
}

// LLMConfig contains AI provider configuration.
type LLMConfig struct {
	Provider           string // Text provider: gemini, openai (default: gemini)
	GeminiAPIKey       string // Gemini API key
	GeminiModel        string // Gemini model name (default: gemini-2.0-flash)
	OpenAIAPIKey       string // OpenAI API key (embeddings, transcription, optional text)
	OpenAIModel        string // OpenAI chat model name (default: gpt-4o-mini)
	EmbeddingModel     string // Embedding model name (default: text-embedding-3-small)
	TranscriptionModel string // Transcription model name (default: whisper-1)
}

// SchedulerConfig contains scheduling parameters.
type SchedulerConfig struct {
	DesiredRetention float64 // Target recall probability (default: 0.9)
	MaximumInterval  int     // Longest interval in days (default: 36500)
	DisableFuzzing   bool    // Disable interval fuzzing (default: false)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// UserConfig contains user-specific settings that persist across restarts.
// These settings are stored in the settings table in the database.
type UserConfig struct {
	// UserName is the display name for the learner.
	// Env var: RETAIN_USER_NAME. Database key: user_name.
	UserName string
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the RETAIN_ prefix.
func LoadConfig() (*Config, error) {
	return buildBaseConfig(), nil
}

// LoadConfigFromDB loads configuration from both environment variables and
// the database. The database value takes precedence over the environment
// variable for user settings.
func LoadConfigFromDB(db *sql.DB) (*Config, error) {
	if db == nil {
		return nil, errors.New("config: database connection is required")
	}

	cfg := buildBaseConfig()

	userName, err := getSetting(db, "user_name")
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config: failed to load user_name from database: %w", err)
	}
	if userName != "" {
		cfg.User.UserName = userName
	}

	return cfg, nil
}

// SaveConfig persists user configuration settings to the settings table
// with upsert semantics, so they survive application restarts.
func (c *Config) SaveConfig(db *sql.DB) error {
	if db == nil {
		return errors.New("config: database connection is required")
	}

	if err := setSetting(db, "user_name", c.User.UserName); err != nil {
		return fmt.Errorf("config: failed to save user_name: %w", err)
	}

	return nil
}

// getSetting retrieves a single setting value by key from the settings
// table. Returns sql.ErrNoRows when the key does not exist.
func getSetting(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// setSetting writes a key-value pair to the settings table with upsert
// semantics.
func setSetting(db *sql.DB, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// buildBaseConfig constructs a Config from environment variables and
// defaults.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("RETAIN_PORT", 7373),
			Host: getEnv("RETAIN_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("RETAIN_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("RETAIN_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("RETAIN_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			Provider:           getEnv("RETAIN_LLM_PROVIDER", "gemini"),
			GeminiAPIKey:       getEnv("RETAIN_GEMINI_API_KEY", ""),
			GeminiModel:        getEnv("RETAIN_GEMINI_MODEL", "gemini-2.0-flash"),
			OpenAIAPIKey:       getEnv("RETAIN_OPENAI_API_KEY", ""),
			OpenAIModel:        getEnv("RETAIN_OPENAI_MODEL", "gpt-4o-mini"),
			EmbeddingModel:     getEnv("RETAIN_EMBEDDING_MODEL", "text-embedding-3-small"),
			TranscriptionModel: getEnv("RETAIN_TRANSCRIPTION_MODEL", "whisper-1"),
		},
		Scheduler: SchedulerConfig{
			DesiredRetention: getEnvFloat("RETAIN_DESIRED_RETENTION", 0.9),
			MaximumInterval:  getEnvInt("RETAIN_MAX_INTERVAL_DAYS", 36500),
			DisableFuzzing:   getEnvBool("RETAIN_DISABLE_FUZZING", false),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("RETAIN_SECURITY_MODE", "development"),
			APIToken:     getEnv("RETAIN_API_TOKEN", ""),
		},
		User: UserConfig{
			UserName: getEnv("RETAIN_USER_NAME", ""),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value, also when the variable cannot be parsed.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value, also when the variable cannot be parsed.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" and "false", "0", "no".
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
