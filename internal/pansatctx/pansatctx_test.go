package pansatctx

import (
	"testing"

	"github.com/pansat-go/pansat/internal/config"
)

func TestConfigRoundTrip(t *testing.T) {
	ctx := New()
	if ctx.Config() != nil {
		t.Fatalf("expected no config by default")
	}

	cfg := &config.Config{}
	ctx.SetConfig(cfg)
	if ctx.Config() != cfg {
		t.Errorf("expected Config() to return the value set via SetConfig")
	}
}

func TestCacheDisabledReflectsKillSwitch(t *testing.T) {
	ctx := New()
	if ctx.CacheDisabled() {
		t.Fatalf("expected cache enabled by default")
	}
	ctx.DisableCache(true)
	if !ctx.CacheDisabled() {
		t.Errorf("expected cache disabled after DisableCache(true)")
	}
}

func TestCacheDisabledReflectsConfigNoCache(t *testing.T) {
	ctx := New()
	ctx.SetConfig(&config.Config{NoCache: true})
	if !ctx.CacheDisabled() {
		t.Errorf("expected cache disabled when config.NoCache is set")
	}
}

func TestCleanupIsSafeWithoutOnTheFly(t *testing.T) {
	ctx := New()
	if err := ctx.Cleanup(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDefaultReturnsSameInstance(t *testing.T) {
	if Default() != Default() {
		t.Errorf("expected Default() to return a stable singleton")
	}
}
