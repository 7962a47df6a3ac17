package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/dropDatabas3/mcgate/internal/config"
)

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := Open(context.Background(), config.RedisConfig{Addr: mr.Addr(), DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}

	mr.Close()
	if err := c.Ping(context.Background()).Err(); err == nil {
		t.Fatalf("expected ping error after server shutdown")
	}
}

func TestOpen_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := Open(context.Background(), config.RedisConfig{Addr: addr, DialTimeout: 100 * time.Millisecond}); err == nil {
		t.Fatalf("expected error for unreachable redis")
	}
}
