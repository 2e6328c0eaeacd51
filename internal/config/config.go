package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	// DatabaseURL enables the postgres audit archive when set.
	DatabaseURL string
	// WALPath enables write-ahead durability for the ledger when set.
	WALPath string
	Env     string
}

// Load reads the optional .env file and assembles the configuration from the
// environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using system environment")
	}

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		WALPath:     getEnv("LEDGER_WAL_PATH", ""),
		Env:         getEnv("ENV", "development"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
