// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds configuration knobs for the HTTP server and the store.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	StoreBackend   string
	StoreKey       string
	StoreDir       string
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	PersistTimeout time.Duration

	CORSOrigins []string
	FeedBuffer  int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	ms := atoienv(key, defMs)
	return time.Duration(ms) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

func listenv(key, def string) []string {
	var out []string
	for _, part := range strings.Split(getenv(key, def), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),
		StoreBackend:    strings.ToLower(getenv("STORE_BACKEND", "file")),
		StoreKey:        getenv("STORE_KEY", "gng-store-v1"),
		StoreDir:        getenv("STORE_DIR", "data"),
		SQLitePath:      getenv("SQLITE_PATH", "gng.db"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		RedisDB:         atoienv("REDIS_DB", 0),
		PersistTimeout:  durenvms("PERSIST_TIMEOUT_MS", 2000),
		CORSOrigins:     listenv("CORS_ORIGINS", "*"),
		FeedBuffer:      atoienv("FEED_BUFFER", 16),
	}
}
