//go:build integration

package redisx_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/8adimka/Go_Weather_Assistant/internal/redisx"
	"github.com/8adimka/Go_Weather_Assistant/internal/testutil"
)

type forecastEntry struct {
	City  string `json:"city"`
	Steps int    `json:"steps"`
}

func TestCache_SetAndGet(t *testing.T) {
	client := testutil.Redis(t)
	ctx := context.Background()
	cache := redisx.NewCache(client, "forecast", time.Minute)

	key := cache.Key("116.4074,39.9042:3")
	want := forecastEntry{City: "北京", Steps: 3}

	if err := cache.Set(ctx, key, want); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	var got forecastEntry
	if err := cache.Get(ctx, key, &got); err != nil {
		t.Fatalf("Failed to get from cache: %v", err)
	}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	ttl, err := client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("Expected TTL within a minute, got %v (err %v)", ttl, err)
	}
}

func TestCache_GetMiss(t *testing.T) {
	client := testutil.Redis(t)
	cache := redisx.NewCache(client, "forecast", time.Minute)

	var got forecastEntry
	err := cache.Get(context.Background(), cache.Key("missing"), &got)
	if !errors.Is(err, redisx.ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestCache_SetIfAbsentIsWriteOnce(t *testing.T) {
	client := testutil.Redis(t)
	ctx := context.Background()
	cache := redisx.NewCache(client, "geo", 0)
	key := cache.Key("三亚")

	wrote, err := cache.SetIfAbsent(ctx, key, forecastEntry{City: "first"})
	if err != nil || !wrote {
		t.Fatalf("Expected first write to succeed, got wrote=%v err=%v", wrote, err)
	}
	wrote, err = cache.SetIfAbsent(ctx, key, forecastEntry{City: "second"})
	if err != nil || wrote {
		t.Fatalf("Expected second write to be rejected, got wrote=%v err=%v", wrote, err)
	}

	var got forecastEntry
	if err := cache.Get(ctx, key, &got); err != nil {
		t.Fatal(err)
	}
	if got.City != "first" {
		t.Errorf("Expected first value to win, got %q", got.City)
	}

	ttl, _ := client.TTL(ctx, key).Result()
	if ttl != -1 {
		t.Errorf("Expected no expiry, got %v", ttl)
	}
}

func TestCache_KeyHidesContent(t *testing.T) {
	cache := redisx.NewCache(nil, "geo", 0)
	key := cache.Key("乌鲁木齐")

	if !strings.HasPrefix(key, "geo:") {
		t.Errorf("Expected geo: prefix, got %q", key)
	}
	if strings.Contains(key, "乌鲁木齐") {
		t.Errorf("Expected hashed key, got %q", key)
	}
	if key != cache.Key("乌鲁木齐") {
		t.Error("Expected deterministic keys")
	}
}
