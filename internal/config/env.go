package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",       // Main environment file
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	// Also try loading from home directory
	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".gitintel", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config.
// Env vars take precedence over config file values.
func applyEnvOverrides(cfg *Config) {
	if dsn := GetString("GITINTEL_POSTGRES_DSN", ""); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
		cfg.Storage.Type = "postgres"
	}
	cfg.Storage.LocalPath = GetString("GITINTEL_DB_PATH", cfg.Storage.LocalPath)
	if key := GetString("OPENAI_API_KEY", ""); key != "" {
		cfg.Embedding.OpenAIKey = key
		if cfg.Embedding.Provider == "" {
			cfg.Embedding.Provider = "openai"
		}
	}
	if n := GetInt("GITINTEL_MAX_COMMITS", cfg.History.MaxCommits); n > 0 {
		cfg.History.MaxCommits = n
	}
}

// GetString returns string value or default
func GetString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// GetInt returns int value or default
func GetInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
