package cacheinfra

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 50000 {
		t.Errorf("expected Capacity to be 50000, got %d", cfg.Capacity)
	}
	if cfg.NumShards != 64 {
		t.Errorf("expected NumShards to be 64, got %d", cfg.NumShards)
	}
	if cfg.TTL != 365*24*time.Hour {
		t.Errorf("expected TTL to be one year, got %v", cfg.TTL)
	}
	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "valid default config"},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, wantField: "Capacity"},
		{name: "negative shards", mutate: func(c *Config) { c.NumShards = -1 }, wantField: "NumShards"},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL = 0 }, wantField: "TTL"},
		{name: "eviction too high", mutate: func(c *Config) { c.EvictionPercentage = 101 }, wantField: "EvictionPercentage"},
		{name: "negative eviction interval", mutate: func(c *Config) { c.EvictionInterval = -time.Second }, wantField: "EvictionInterval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("expected no validation error but got: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatal("expected validation error but got none")
			}
			if !goerrors.IsValidation(err) {
				t.Errorf("expected validation category, got %v", err)
			}

			var verr *goerrors.Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *errors.Error, got %T", err)
			}
			if _, ok := verr.ValidationMap()[tt.wantField]; !ok {
				t.Errorf("expected validation error for %s, got %v", tt.wantField, verr.ValidationMap())
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := DefaultConfig()
	if got := len(cfg.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no options for default config, got %d", got)
	}

	cfg.EvictionInterval = time.Minute
	if got := len(cfg.ToSturdycOptions()); got != 1 {
		t.Errorf("expected eviction interval option, got %d options", got)
	}
}

func newTestService(t *testing.T) *sturdycService {
	t.Helper()

	svc, err := NewSturdycService(DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestSturdycService_GetOrFetchCachesValue(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return &struct{ ID int }{ID: 1}, nil
	}

	first, err := svc.GetOrFetch(ctx, "property::1", fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.GetOrFetch(ctx, "property::1", fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected one fetch, got %d", calls)
	}
	if first != second {
		t.Error("expected the same instance on repeated lookups")
	}
	if svc.Size() != 1 {
		t.Errorf("expected one resident entry, got %d", svc.Size())
	}
}

func TestSturdycService_GetOrFetchError(t *testing.T) {
	svc := newTestService(t)
	boom := errors.New("transport down")

	_, err := svc.GetOrFetch(context.Background(), "property::2", func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected fetch error, got %v", err)
	}
	if _, ok := svc.Get("property::2"); ok {
		t.Error("failed fetch must not be cached")
	}
}

func TestSturdycService_NilFetch(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.GetOrFetch(context.Background(), "k", nil); err == nil {
		t.Error("expected error for nil fetch function")
	}
}

func TestSturdycService_Invalidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, key := range []string{"property::1", "property::2", "template::1", "template::2"} {
		k := key
		if _, err := svc.GetOrFetch(ctx, k, func(ctx context.Context) (any, error) { return k, nil }); err != nil {
			t.Fatalf("seed %s: %v", k, err)
		}
	}

	if err := svc.DeleteByPrefix(ctx, "property::"); err != nil {
		t.Fatalf("DeleteByPrefix: %v", err)
	}
	if _, ok := svc.Get("property::1"); ok {
		t.Error("expected property::1 to be removed")
	}
	if _, ok := svc.Get("template::1"); !ok {
		t.Error("expected template::1 to survive prefix delete")
	}

	if err := svc.InvalidateKeys(ctx, []string{"template::1"}); err != nil {
		t.Fatalf("InvalidateKeys: %v", err)
	}
	if err := svc.Delete(ctx, "template::2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if svc.Size() != 0 {
		t.Errorf("expected empty cache, got %d", svc.Size())
	}
}
