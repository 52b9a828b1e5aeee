package catalog

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/pkg/logger"
)

const eventPricingKeyPrefix = "storefront:event:pricing:"

// Cache is the subset of the Redis client used for catalog caching
type Cache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedProvider collapses concurrent loads of the same event into one call
// and, when a cache is configured, keeps results for a short TTL. Stock
// figures may be stale; the Reservations API stays the authority.
type CachedProvider struct {
	provider Provider
	cache    Cache
	ttl      time.Duration
	group    singleflight.Group
	log      *logger.Logger
}

// NewCachedProvider wraps provider. cache may be nil.
func NewCachedProvider(provider Provider, cache Cache, ttl time.Duration, log *logger.Logger) *CachedProvider {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedProvider{provider: provider, cache: cache, ttl: ttl, log: log}
}

// Event returns the event's catalog, from cache when fresh
func (p *CachedProvider) Event(ctx context.Context, eventID string) (*domain.Event, error) {
	key := eventPricingKeyPrefix + eventID

	if p.cache != nil && p.ttl > 0 {
		raw, found, err := p.cache.GetBytes(ctx, key)
		if err != nil {
			p.log.Ctx(ctx).Warn("Catalog cache read failed", zap.String("event_id", eventID), zap.Error(err))
		} else if found {
			var event domain.Event
			if err := json.Unmarshal(raw, &event); err == nil {
				return &event, nil
			}
		}
	}

	// The shared load outlives any single caller; each caller waits on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan(eventID, func() (interface{}, error) {
		event, err := p.provider.Event(shared, eventID)
		if err != nil {
			return nil, err
		}
		p.store(shared, key, event)
		return event, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Event), nil
	case <-ctx.Done():
		return nil, domain.NewNetworkError(ctx.Err())
	}
}

func (p *CachedProvider) store(ctx context.Context, key string, event *domain.Event) {
	if p.cache == nil || p.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := p.cache.SetBytes(ctx, key, raw, p.ttl); err != nil {
		p.log.Ctx(ctx).Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
