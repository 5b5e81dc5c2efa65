// Package config loads application configuration from environment
// variables, with an optional .env file via godotenv.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string
	StorageDir    string

	// Trading defaults
	StartingBalance float64
	FeeRate         float64
	Leverage        float64

	// WarmupCandles is the number of route-timeframe candles preloaded
	// before the backtest window.
	WarmupCandles int
}

// Load reads configuration with sensible defaults. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env not loaded: %v", err)
	}

	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "storage/candles.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ""),
		StorageDir:    getEnv("STORAGE_DIR", "storage"),

		StartingBalance: getEnvFloat("STARTING_BALANCE", 10_000),
		FeeRate:         getEnvFloat("FEE_RATE", 0.001),
		Leverage:        getEnvFloat("LEVERAGE", 1),

		WarmupCandles: getEnvInt("WARMUP_CANDLES", 240),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}
