// Package config reads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	LogLevel   string
	LogConsole bool

	// StoreDriver selects the document store backend: "memory" or
	// "firestore".
	StoreDriver      string
	FirestoreProject string

	// IdentityDriver selects the personnel account backend: "memory" or
	// "firebase".
	IdentityDriver string

	// BlobDriver selects image storage: "memory" or "gcs".
	BlobDriver string
	GCSBucket  string

	// CacheDriver selects the report cache backend: "memory" or "redis".
	CacheDriver     string
	RedisAddr       string
	CacheTTLDefault time.Duration
	CacheTTLToday   time.Duration
	CacheOpTimeout  time.Duration
	CacheSweepEvery time.Duration

	// FanoutLimit bounds concurrent per-customer reads during aggregate
	// computation so the store is not overwhelmed.
	FanoutLimit int

	DeliveryEmailDomain string
	SalesEmailDomain    string

	CORSOrigins []string
}

// Load reads .env (if present) and then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		Addr:       getenv("ADDR", ":8080"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),

		StoreDriver:      getenv("STORE_DRIVER", "firestore"),
		FirestoreProject: getenv("FIRESTORE_PROJECT", ""),

		IdentityDriver: getenv("IDENTITY_DRIVER", "firebase"),

		BlobDriver: getenv("BLOB_DRIVER", "gcs"),
		GCSBucket:  getenv("GCS_BUCKET", ""),

		CacheDriver:     getenv("CACHE_DRIVER", "memory"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		CacheTTLDefault: getduration("CACHE_TTL_DEFAULT", 300*time.Second),
		CacheTTLToday:   getduration("CACHE_TTL_TODAY", 60*time.Second),
		CacheOpTimeout:  getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheSweepEvery: getduration("CACHE_SWEEP_EVERY", 320*time.Second),

		FanoutLimit: getint("FANOUT_LIMIT", 8),

		DeliveryEmailDomain: getenv("DELIVERY_EMAIL_DOMAIN", "eggbucketdelivery.in"),
		SalesEmailDomain:    getenv("SALES_EMAIL_DOMAIN", "eggbucketsales.in"),

		CORSOrigins: getlist("CORS_ORIGINS", nil),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getlist(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
