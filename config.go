package main

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime policy loaded from environment variables.
// Anti-cheat thresholds are deliberately configuration, not constants:
// they are tuning knobs, and have already changed once in production.
type Config struct {
	Addr           string
	ClientDir      string
	DBPath         string
	PublicURL      string
	AdminTokenHash string // bcrypt hash of the moderation token; empty disables moderation

	SessionTTL      time.Duration // validity window of an issued game session
	MinGameDuration time.Duration // shortest plausible run
	MaxGameDuration time.Duration // longest plausible run
	MaxPointsPerSec float64       // throughput ceiling for the plausibility check
	MaxScore        int           // hard score cap
	MinPlausible    int           // scores at or below this skip the throughput check
}

const (
	defaultAddr      = ":8080"
	defaultClientDir = "../client"
	defaultDBPath    = "skydodge.db"
	defaultPublicURL = "http://localhost:8080/"

	defaultSessionTTLMS = 15 * 60 * 1000
	defaultMinGameMS    = 1000
	defaultMaxGameMS    = 10 * 60 * 1000
	defaultMaxPPS       = 15.0
	defaultMaxScore     = 2000
	defaultMinPlausible = 10
)

// LoadConfig builds a Config from environment variables, falling back to defaults.
func LoadConfig() Config {
	return Config{
		Addr:           getEnv("ADDR", defaultAddr),
		ClientDir:      getEnv("CLIENT_DIR", defaultClientDir),
		DBPath:         getEnv("DB_PATH", defaultDBPath),
		PublicURL:      getEnv("PUBLIC_URL", defaultPublicURL),
		AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),

		SessionTTL:      msEnv("SESSION_TTL_MS", defaultSessionTTLMS),
		MinGameDuration: msEnv("MIN_GAME_MS", defaultMinGameMS),
		MaxGameDuration: msEnv("MAX_GAME_MS", defaultMaxGameMS),
		MaxPointsPerSec: floatEnv("MAX_PPS", defaultMaxPPS),
		MaxScore:        intEnv("MAX_SCORE", defaultMaxScore),
		MinPlausible:    intEnv("MIN_PLAUSIBLE_SCORE", defaultMinPlausible),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func floatEnv(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func msEnv(key string, fallbackMS int) time.Duration {
	return time.Duration(intEnv(key, fallbackMS)) * time.Millisecond
}
