// File: internal/session/registry.go
package session

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"desirius_backend/internal/config"
	"desirius_backend/internal/shared"
)

// RegistryConfig holds the idle expiry settings for browser sessions.
type RegistryConfig struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

// RegistryConfigFromConfig derives the registry settings from SESSION_IDLE_TTL_MINUTES.
func RegistryConfigFromConfig(cfg *config.Config) RegistryConfig {
	cleanup := cfg.SessionIdleTTL / 4
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return RegistryConfig{IdleTTL: cfg.SessionIdleTTL, CleanupInterval: cleanup}
}

// Registry owns one Controller per browser session id. Controllers idle for longer than
// IdleTTL are evicted and closed.
type Registry struct {
	mu      sync.Mutex
	cache   *cache.Cache
	closing sync.WaitGroup

	factory shared.AuthClientFactory
	store   shared.ProfileStore
	idp     IdentityProvider
	opts    Options
	rec     Recorder
	logger  *zap.Logger
}

// NewRegistry creates an empty registry. idp and rec may be nil.
func NewRegistry(cfg RegistryConfig, factory shared.AuthClientFactory, store shared.ProfileStore, idp IdentityProvider, opts Options, rec Recorder, logger *zap.Logger) *Registry {
	if rec == nil {
		rec = nopRecorder{}
	}
	r := &Registry{
		cache:   cache.New(cfg.IdleTTL, cfg.CleanupInterval),
		factory: factory,
		store:   store,
		idp:     idp,
		opts:    opts,
		rec:     rec,
		logger:  logger.Named("session_registry"),
	}
	r.cache.OnEvicted(r.onEvicted)
	return r
}

// Get returns the controller for id and extends its idle deadline.
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(id)
}

func (r *Registry) getLocked(id string) (*Controller, bool) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	ctrl := v.(*Controller)
	r.cache.SetDefault(id, ctrl)
	return ctrl, true
}

// Open returns the controller for id, creating and starting it when absent.
func (r *Registry) Open(ctx context.Context, id string) *Controller {
	r.mu.Lock()
	if ctrl, ok := r.getLocked(id); ok {
		r.mu.Unlock()
		return ctrl
	}
	// close expired controllers before their ids can be reused
	r.cache.DeleteExpired()

	ctrl := New(r.factory.NewClient(), r.store, r.idp, r.opts, r.rec,
		r.logger.With(zap.String("session", shortID(id))))
	r.cache.SetDefault(id, ctrl)
	r.rec.SessionsActive(r.cache.ItemCount())
	r.mu.Unlock()

	r.logger.Debug("Browser session opened", zap.String("session", shortID(id)))
	ctrl.Start(ctx)
	return ctrl
}

// Remove closes and forgets the controller for id.
func (r *Registry) Remove(id string) {
	r.cache.Delete(id)
}

// Sweep closes controllers whose idle deadline has passed.
func (r *Registry) Sweep() {
	r.mu.Lock()
	r.cache.DeleteExpired()
	r.mu.Unlock()
}

// Each calls fn for every live controller without extending idle deadlines.
func (r *Registry) Each(fn func(id string, ctrl *Controller)) {
	for id, item := range r.cache.Items() {
		fn(id, item.Object.(*Controller))
	}
}

// Len reports the number of live controllers.
func (r *Registry) Len() int {
	return len(r.cache.Items())
}

// Close closes every controller and waits for them to finish.
func (r *Registry) Close() {
	r.cache.DeleteExpired()
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
	r.closing.Wait()
	r.logger.Info("Session registry closed")
}

func (r *Registry) onEvicted(id string, v interface{}) {
	ctrl, ok := v.(*Controller)
	if !ok {
		return
	}
	r.closing.Add(1)
	go func() {
		defer r.closing.Done()
		ctrl.Close()
		r.rec.SessionsActive(r.cache.ItemCount())
		r.logger.Debug("Browser session closed", zap.String("session", shortID(id)))
	}()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
