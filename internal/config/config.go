package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Port             string
	DBURL            string
	UseInMemoryStore bool
	Environment      string
	SessionKey       string
	FinnhubAPIKey    string
	FinnhubBaseURL   string
	QuoteMaxAge      time.Duration
	QuoteTimeout     time.Duration
	RefreshInterval  time.Duration
	FetchConcurrency int64
}

// Load reads configuration from environment variables. A .env file is loaded
// if present to simplify local development. We look in bin/.env so the file
// can live alongside a built binary, and fall back to .env in the project
// root for compatibility.
func Load() Config {
	loadDotEnv()

	cfg := Config{
		Port:             getString("PORT", "8080"),
		DBURL:            getString("DATABASE_URL", ""),
		Environment:      getString("ENVIRONMENT", "local"),
		SessionKey:       getString("SESSION_KEY", "default"),
		FinnhubAPIKey:    getString("FINNHUB_API_KEY", ""),
		FinnhubBaseURL:   getString("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		QuoteMaxAge:      getDurationSeconds("QUOTE_MAX_AGE_SECONDS", 60),
		QuoteTimeout:     getDurationSeconds("QUOTE_TIMEOUT_SECONDS", 10),
		RefreshInterval:  getDurationSeconds("REFRESH_INTERVAL_SECONDS", 60),
		FetchConcurrency: int64(getInt("FETCH_CONCURRENCY", 4)),
	}

	cfg.UseInMemoryStore = cfg.DBURL == ""
	return cfg
}

func loadDotEnv() {
	candidates := []string{
		filepath.Join("bin", ".env"),
		".env",
	}

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		candidates = append([]string{
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "bin", ".env"),
		}, candidates...)
	}

	for _, path := range candidates {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			log.Printf("invalid value for %s, using fallback %d", key, fallback)
			return fallback
		}
		return n
	}
	return fallback
}

func getDurationSeconds(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * time.Second
}
