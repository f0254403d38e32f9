// internal/config/config.go
//
// Process configuration from the environment.
//
// A .env file in the working directory is loaded first (if present); real
// environment variables win over it. Every setting has a development default
// so the server starts with nothing configured but the embeddings file.

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds every tunable of the server and the terminal client.
type Config struct {
	Port     string
	LogLevel zerolog.Level

	EmbeddingsFile  string
	CMUDictFile     string // empty disables rhyme_time
	DefinitionsFile string // offline definitions, tried before the API
	CacheSnapshot   string
	CacheSize       int

	MerriamWebsterKey string
	DictionaryRPS     float64

	DBPath         string
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	SecureCookies  bool
	ClientOrigin   string
	DailySalt      string

	ScrambleLevel int
	SessionTTL    time.Duration // finished sessions are pruned after this
}

// Load reads .env (if present) and the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment without touching .env.
func FromEnv() Config {
	lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return Config{
		Port:     getEnv("PORT", "5175"),
		LogLevel: lvl,

		EmbeddingsFile:  getEnv("EMBEDDINGS_FILE", "word2vec.txt"),
		CMUDictFile:     os.Getenv("CMUDICT_FILE"),
		DefinitionsFile: os.Getenv("DEFINITIONS_FILE"),
		CacheSnapshot:   getEnv("CACHE_SNAPSHOT", "./data/cache.bin"),
		CacheSize:       envInt("CACHE_SIZE", 10_000),

		MerriamWebsterKey: os.Getenv("MERRIAM_WEBSTER_API_KEY"),
		DictionaryRPS:     envFloat("DICTIONARY_RPS", 5),

		DBPath:         getEnv("DB_PATH", "./data/app.db"),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: envInt("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "wordlink_token"),
		SecureCookies:  os.Getenv("NODE_ENV") == "production",
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		DailySalt:      getEnv("DAILY_SALT", "local_dev_salt"),

		ScrambleLevel: envInt("SCRAMBLE_LEVEL", 3),
		SessionTTL:    time.Duration(envInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
