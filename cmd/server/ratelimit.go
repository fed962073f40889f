package main

import (
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dunamismax/pixelcache/internal/api"
	"github.com/dunamismax/pixelcache/internal/config"
	"github.com/dunamismax/pixelcache/internal/ratelimit"
)

func buildRateLimiter(cfg config.RateLimitConfig, logger *log.Logger) api.RateLimiter {
	if !cfg.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	limiter, err := ratelimit.NewTokenBucket(client, cfg.RequestsPerMinute, time.Minute, "")
	if err != nil {
		logger.Fatalf("rate limiter init failed: %v", err)
	}

	logger.Printf("rate limiting enabled rpm=%d redis=%s", cfg.RequestsPerMinute, cfg.RedisAddr)
	return limiter
}
