package config

// This file defines the Redis settings and client constructor.  Redis backs
// the idle-timeout session store and the login attempt guard.  When Redis is
// disabled or unreachable the constructor returns nil and callers fall back
// to in-process implementations.

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection parameters read from the environment.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// loadRedis reads REDIS_* variables.  REDIS_HOST and REDIS_PORT take
// precedence over REDIS_ADDR when both are set.
func loadRedis(p *parser) RedisConfig {
	addr := getenv("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	return RedisConfig{
		Enabled:  p.envBool("REDIS_ENABLED", false),
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       p.envInt("REDIS_DB", 0),
		TLS:      p.envBool("REDIS_TLS", false),
	}
}

// NewRedisClient instantiates a Redis client from cfg and pings it with a
// short timeout.  It returns nil when Redis is disabled or the ping fails.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
