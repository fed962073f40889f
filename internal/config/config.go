// Package config loads the process configuration from the environment. A
// .env file in the working directory is honored for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Cache     CacheConfig
	Watermark WatermarkConfig
	Trace     TraceConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Addr           string
	VerboseLogging bool
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	SourceBucket  string
	DerivedBucket string
}

type CacheConfig struct {
	// IncludeFit puts the fit mode in the derived key, so different fit
	// modes for the same dimensions get their own cache slots.
	IncludeFit bool
}

type WatermarkConfig struct {
	Enabled   bool
	ObjectKey string
}

type TraceConfig struct {
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		Server: ServerConfig{
			Addr:           env("PIXELCACHE_ADDR", ":8080"),
			VerboseLogging: envBool("VERBOSE_LOGGING", false),
		},
		Storage: StorageConfig{
			Endpoint:      env("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:     env("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey:     env("MINIO_SECRET_KEY", "minioadmin"),
			UseSSL:        envBool("MINIO_USE_SSL", false),
			SourceBucket:  env("SOURCE_BUCKET", "images"),
			DerivedBucket: env("DERIVED_BUCKET", "images-derived"),
		},
		Cache: CacheConfig{
			IncludeFit: envBool("CACHE_KEY_INCLUDES_FIT", true),
		},
		Watermark: WatermarkConfig{
			Enabled:   envBool("WATERMARK_ENABLED", true),
			ObjectKey: env("WATERMARK_OBJECT_KEY", "assets/watermark.png"),
		},
		Trace: TraceConfig{
			Exporter:     env("TRACE_EXPORTER", "none"),
			OTLPEndpoint: env("TRACE_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("TRACE_OTLP_INSECURE", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:           envBool("RATE_LIMIT_ENABLED", false),
			RequestsPerMinute: envInt("RATE_LIMIT_RPM", 120),
			RedisAddr:         env("REDIS_ADDR", "localhost:6379"),
			RedisPassword:     env("REDIS_PASSWORD", ""),
			RedisDB:           envInt("REDIS_DB", 0),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
