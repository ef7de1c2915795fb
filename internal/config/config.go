package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DBDSN        string
	LogFile      string
	JWTSecret    string
	JWTTTL       time.Duration
	SeedDemo     bool
	CookieSecure bool
	BcryptCost   int

	// Requests per minute per client IP.
	RateLimit     int
	LoginLimit    int
	CheckoutLimit int
}

// DefaultDSN enables foreign keys, waits on locked writers and opens every
// transaction with an immediate write lock so checkouts serialize on stock rows.
const DefaultDSN = "file:bazingamart.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

func Load() Config {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			log.Printf("[warn] could not load .env: %v", err)
		}
	}

	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		DBDSN:        getEnv("DB_DSN", DefaultDSN),
		LogFile:      getEnv("LOG_FILE", "./bazingamart.log"),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTL:       getEnvDuration("JWT_TTL", 24*time.Hour),
		SeedDemo:     getEnvBool("SEED_DEMO", true),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),
		BcryptCost:   getEnvInt("BCRYPT_COST", 12),

		RateLimit:     getEnvInt("RATE_LIMIT", 120),
		LoginLimit:    getEnvInt("LOGIN_RATE_LIMIT", 5),
		CheckoutLimit: getEnvInt("CHECKOUT_RATE_LIMIT", 10),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s JWT_TTL=%s SEED_DEMO=%t COOKIE_SECURE=%t",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.JWTTTL, cfg.SeedDemo, cfg.CookieSecure)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
