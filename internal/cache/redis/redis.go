// Package redis abre el cliente Redis compartido por el rate limiter y el
// store de refresh tokens.
package redis

import (
	"context"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/mcgate/internal/config"
)

// Open crea el cliente y verifica la conexión. El caller es dueño del Close.
func Open(ctx context.Context, cfg config.RedisConfig) (*rdb.Client, error) {
	c := rdb.NewClient(&rdb.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout(cfg))
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("cache: redis ping %s: %w", cfg.Addr, err)
	}
	return c, nil
}

func pingTimeout(cfg config.RedisConfig) time.Duration {
	if cfg.DialTimeout > 0 {
		return 2 * cfg.DialTimeout
	}
	return 5 * time.Second
}
