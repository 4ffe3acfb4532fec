package redis

import (
	"testing"

	"github.com/SohamFirke/pharma-backend/pkg/config"
)

func TestBuildKeyNamespacesAndSkipsEmptyParts(t *testing.T) {
	c := &Client{}
	if got := c.IdempotencyKey("U1|POST|/api/order", "abc"); got != "pharma:idempotency:U1|POST|/api/order:abc" {
		t.Fatalf("unexpected idempotency key %q", got)
	}
	if got := c.AccessSessionKey("jti-1"); got != "pharma:session:access:jti-1" {
		t.Fatalf("unexpected session key %q", got)
	}
	if got := c.buildKey("", "x"); got != "pharma:x" {
		t.Fatalf("empty parts should be skipped, got %q", got)
	}
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address set")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 5})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 5 {
		t.Fatalf("pool size not applied, got %d", opts.PoolSize)
	}
}
