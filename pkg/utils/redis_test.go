package utils

import (
	"context"
	"testing"
	"time"
)

func TestAttemptScriptInitialized(t *testing.T) {
	if attemptWindowScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestAllowAttempt_RejectsInvalidArgs(t *testing.T) {
	ctx := context.Background()
	if _, err := AllowAttempt(ctx, nil, "k", 1, time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestOpenRedis_RequiresAddr(t *testing.T) {
	if _, err := OpenRedis(context.Background(), RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}
