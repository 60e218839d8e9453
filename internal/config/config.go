package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultCORSOrigins mirrors the local frontend dev servers.
const defaultCORSOrigins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173,http://127.0.0.1:3000"

// Config holds runtime configuration for the API service. It is loaded
// once at startup and passed explicitly; nothing below the entrypoint
// reads the environment.
type Config struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	SecretKey          string
	Algorithm          string
	AccessTokenExpiry  time.Duration
	AllowedCORSOrigins []string
}

// Load constructs a Config from the environment. A .env file in the
// working directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":8000"),
		DatabaseURL:        GetString("DATABASE_URL", "postgres://userd:userd@db:5432/userd?sslmode=disable"),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		SecretKey:          GetString("SECRET_KEY", "supersecuresecret"),
		Algorithm:          GetString("ALGORITHM", "HS256"),
		AccessTokenExpiry:  time.Duration(GetInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		AllowedCORSOrigins: splitOrigins(GetString("ALLOWED_CORS_ORIGINS", defaultCORSOrigins)),
	}
}

// GetString retrieves an environment variable or returns a fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
