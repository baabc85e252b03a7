// Package pansatctx consolidates the process-wide global state the
// original library kept as module-level singletons (active config, active
// registry, the on-the-fly data directory, and the HTTP response cache
// kill-switch) into a single struct threaded through the process's entry
// points, with a lazily-initialized process-wide default for convenience.
package pansatctx

import (
	"sync"

	"github.com/pansat-go/pansat/internal/config"
	"github.com/pansat-go/pansat/internal/registry"
)

// Context holds a process's (or test's) global state.
type Context struct {
	mu sync.Mutex

	cfg         *config.Config
	activeReg   *registry.Registry
	onTheFly    *registry.Registry
	cacheKilled bool
}

var (
	defaultOnce sync.Once
	defaultCtx  *Context
)

// Default returns the process-wide Context, creating it on first use.
func Default() *Context {
	defaultOnce.Do(func() { defaultCtx = New() })
	return defaultCtx
}

// New returns a fresh, independent Context. Tests that need isolation
// from the process-wide singleton should use this instead of Default.
func New() *Context {
	return &Context{}
}

// Config returns the active configuration, or nil if none has been set.
func (c *Context) Config() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConfig records the active configuration.
func (c *Context) SetConfig(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// ActiveRegistry returns the process's active registry, or nil if none has
// been set.
func (c *Context) ActiveRegistry() *registry.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeReg
}

// SetActiveRegistry records the process's active registry.
func (c *Context) SetActiveRegistry(r *registry.Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeReg = r
}

// OnTheFly returns the lazily-created on-the-fly registry, calling create
// on first use only. The application calls it when PANSAT_ON_THE_FLY is
// set, with a registry chained off the active one.
func (c *Context) OnTheFly(create func() (*registry.Registry, error)) (*registry.Registry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onTheFly != nil {
		return c.onTheFly, nil
	}
	r, err := create()
	if err != nil {
		return nil, err
	}
	c.onTheFly = r
	return r, nil
}

// DisableCache toggles the process-wide HTTP response cache kill-switch.
func (c *Context) DisableCache(disabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheKilled = disabled
}

// CacheDisabled reports whether the HTTP response cache is currently
// bypassed, either via the kill-switch or the loaded config's
// PANSAT_DISABLE_CACHE setting.
func (c *Context) CacheDisabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cacheKilled {
		return true
	}
	return c.cfg != nil && c.cfg.NoCache
}

// Cleanup releases the on-the-fly registry, if one was created. Safe to
// call even if OnTheFly was never invoked.
func (c *Context) Cleanup() error {
	c.mu.Lock()
	r := c.onTheFly
	c.onTheFly = nil
	c.mu.Unlock()

	if r == nil {
		return nil
	}
	return r.Close()
}
