package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting the service needs, loaded
// once at startup instead of read ad hoc through package-level globals.
type Config struct {
	ServerPort  int
	DatabaseURL string
	JWTSecretKey string
	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	WalletBaseURL    string
	WalletAPIKey     string
	WalletTimeout    time.Duration
	WalletEscrowID   string

	LeaderboardCacheTTLActive    time.Duration
	LeaderboardCacheTTLCompleted time.Duration
	MaxPrizeRetries              int
}

// Load reads configuration from the environment, falling back to a local
// .env file when present (a missing .env is not an error, since production
// deployments set real environment variables instead).
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		ServerPort:   envInt("SERVER_PORT", 8080),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecretKey: os.Getenv("JWT_SECRET"),
		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),

		WalletBaseURL:  os.Getenv("WALLET_BASE_URL"),
		WalletAPIKey:   os.Getenv("WALLET_API_KEY"),
		WalletTimeout:  envDuration("WALLET_TIMEOUT", 30*time.Second),
		WalletEscrowID: envOr("WALLET_ESCROW_ID", "tournament-escrow"),

		LeaderboardCacheTTLActive:    envDuration("LEADERBOARD_CACHE_TTL_ACTIVE", 60*time.Second),
		LeaderboardCacheTTLCompleted: envDuration("LEADERBOARD_CACHE_TTL_COMPLETED", 3600*time.Second),
		MaxPrizeRetries:              envInt("MAX_PRIZE_RETRIES", 3),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
