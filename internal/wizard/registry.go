package wizard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/ticket-storefront/pkg/logger"
)

// RegistryConfig controls idle eviction of per-session controllers
type RegistryConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	// OnEvict is called with the session id of every removed or swept controller
	OnEvict func(sessionID string)
}

type registryEntry struct {
	controller *Controller
	lastSeen   time.Time
}

// Registry holds one Controller per buyer session
type Registry struct {
	config  RegistryConfig
	factory func() *Controller
	log     *logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewRegistry creates a registry building controllers with factory
func NewRegistry(config RegistryConfig, factory func() *Controller, log *logger.Logger) *Registry {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 30 * time.Minute
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		config:  config,
		factory: factory,
		log:     log,
		now:     time.Now,
		entries: make(map[string]*registryEntry),
	}
}

// Get returns the controller of sessionID, creating it on first use
func (r *Registry) Get(sessionID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sessionID]
	if !ok {
		e = &registryEntry{controller: r.factory()}
		r.entries[sessionID] = e
	}
	e.lastSeen = r.now()
	return e.controller
}

// Lookup returns the controller of sessionID without creating one
func (r *Registry) Lookup(sessionID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sessionID]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.controller, true
}

// Remove drops the controller of sessionID
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.entries, sessionID)
	r.mu.Unlock()

	r.evicted(sessionID)
}

// Len returns the number of live controllers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts controllers idle for longer than IdleTTL. Controllers with a
// submission in flight are kept.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.config.IdleTTL)

	r.mu.Lock()
	var evicted []string
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) && !e.controller.Submitting() {
			delete(r.entries, id)
			evicted = append(evicted, id)
		}
	}
	r.mu.Unlock()

	r.evicted(evicted...)
	return len(evicted)
}

func (r *Registry) evicted(sessionIDs ...string) {
	if r.config.OnEvict == nil {
		return
	}
	for _, id := range sessionIDs {
		r.config.OnEvict(id)
	}
}

// Start runs the idle sweeper until Stop is called or ctx is done
func (r *Registry) Start(ctx context.Context) {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})

	r.wg.Add(1)
	go r.sweepLoop(ctx, r.stopCh)
}

// Stop stops the idle sweeper and waits for it to exit
func (r *Registry) Stop() {
	r.runMu.Lock()
	if !r.running {
		r.runMu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	r.runMu.Unlock()

	r.wg.Wait()
}

func (r *Registry) sweepLoop(ctx context.Context, stop <-chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Debug("Evicted idle booking wizards", zap.Int("count", n), zap.Int("remaining", r.Len()))
			}
		}
	}
}
