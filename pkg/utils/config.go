package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file if one is present. Missing files are fine;
// real environment variables always win.
func LoadEnv() {
	_ = godotenv.Load()
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
}

func LoadAuthConfig() AuthConfig {
	secret := os.Getenv("CARDHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("CARDHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "cardhub"
	}

	return AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: envDuration("CARDHUB_JWT_TTL", 24*time.Hour),
	}
}

type ServerConfig struct {
	HTTPAddr string
	FeedAddr string
}

func LoadServerConfig() ServerConfig {
	httpAddr := os.Getenv("CARDHUB_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	feedAddr := os.Getenv("CARDHUB_FEED_ADDR")
	if feedAddr == "" {
		feedAddr = ":7070"
	}
	return ServerConfig{HTTPAddr: httpAddr, FeedAddr: feedAddr}
}

// ScrapeConfig is threaded explicitly through orchestrator, extractors and
// the fetch client; nothing reads it from ambient process state mid-run.
type ScrapeConfig struct {
	BaseURL        string
	UserAgent      string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	Workers        int
	RunTimeout     time.Duration
}

func LoadScrapeConfig() ScrapeConfig {
	base := os.Getenv("CARDHUB_WIKI_BASE_URL")
	if base == "" {
		base = "https://smashup.fandom.com/wiki/"
	}

	ua := os.Getenv("CARDHUB_USER_AGENT")
	if ua == "" {
		ua = "cardhub-scraper/1.0 (reference data tool)"
	}

	return ScrapeConfig{
		BaseURL:        base,
		UserAgent:      ua,
		ConnectTimeout: envDuration("CARDHUB_CONNECT_TIMEOUT", 10*time.Second),
		ReadTimeout:    envDuration("CARDHUB_READ_TIMEOUT", 30*time.Second),
		MaxRetries:     envInt("CARDHUB_MAX_RETRIES", 3),
		BackoffBase:    envDuration("CARDHUB_BACKOFF_BASE", 500*time.Millisecond),
		BackoffCap:     envDuration("CARDHUB_BACKOFF_CAP", 10*time.Second),
		Workers:        envInt("CARDHUB_WORKERS", 4),
		RunTimeout:     envDuration("CARDHUB_RUN_TIMEOUT", 10*time.Minute),
	}
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
