package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	MySQLDSN        string
	RedisAddr       string
	WorkerCount     int
	QueueSize       int
	RateCacheTTL    time.Duration
	RelabelInterval time.Duration
	RelabelBatch    int
	LogLevel        string
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:  getEnv("GRPC_ADDR", ":50051"),
		MySQLDSN:  getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/stockcanon?parseTime=true"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.WorkerCount, err = getEnvInt("WORKER_COUNT", 10); err != nil {
		return Config{}, err
	}
	if cfg.QueueSize, err = getEnvInt("QUEUE_SIZE", 10000); err != nil {
		return Config{}, err
	}
	if cfg.RelabelBatch, err = getEnvInt("RELABEL_BATCH", 500); err != nil {
		return Config{}, err
	}
	if cfg.RateCacheTTL, err = getEnvDuration("RATE_CACHE_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RelabelInterval, err = getEnvDuration("RELABEL_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}

	if cfg.WorkerCount <= 0 {
		return Config{}, fmt.Errorf("WORKER_COUNT must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.QueueSize <= 0 {
		return Config{}, fmt.Errorf("QUEUE_SIZE must be positive, got %d", cfg.QueueSize)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
