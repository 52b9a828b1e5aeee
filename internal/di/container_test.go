package di

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/ticket-storefront/internal/notify"
	"github.com/prohmpiriya/ticket-storefront/internal/session"
	"github.com/prohmpiriya/ticket-storefront/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "ticket-storefront", Version: "test"},
		API: config.APIConfig{
			EventsURL:        "http://127.0.0.1:1/api",
			ReservationsURL:  "http://127.0.0.1:1/api",
			AuthURL:          "http://127.0.0.1:1/api",
			Timeout:          time.Second,
			BreakerThreshold: 3,
		},
		Session:    config.SessionConfig{TTL: time.Hour, CookieName: "sid"},
		Catalog:    config.CatalogConfig{CacheTTL: time.Second, MaxRetries: 1},
		Storefront: config.StorefrontConfig{Locale: "fr-FR", WizardIdleTTL: time.Minute},
		RateLimit:  config.RateLimitConfig{Enabled: true, RequestsPerSecond: 5, Burst: 10},
	}
}

func TestNewContainer_InMemory(t *testing.T) {
	c := NewContainer(&ContainerConfig{Config: testConfig()})
	defer c.Close()

	require.NotNil(t, c.BookingHandler)
	assert.Nil(t, c.Redis)
	assert.NotNil(t, c.RateLimiter)
	assert.Equal(t, "75,00\u00a0€", c.Calculator.FormatAmount(75, "EUR"))

	// Controllers built by the registry share the container's collaborators
	first := c.Wizards.Get("session-a")
	assert.Same(t, first, c.Wizards.Get("session-a"))
	assert.NotSame(t, first, c.Wizards.Get("session-b"))
}

func TestNewContainer_WizardEvictionDropsNotifications(t *testing.T) {
	c := NewContainer(&ContainerConfig{Config: testConfig()})
	defer c.Close()

	c.Wizards.Get("session-a")
	c.Notifications.Notify(session.WithID(context.Background(), "session-a"), notify.Notification{Severity: notify.SeverityInfo, Message: "pending"})
	c.Notifications.Notify(session.WithID(context.Background(), "session-b"), notify.Notification{Severity: notify.SeverityInfo, Message: "pending"})

	c.Wizards.Remove("session-a")

	assert.Empty(t, c.Notifications.Drain("session-a"))
	assert.Len(t, c.Notifications.Drain("session-b"), 1)
}

func TestNewContainer_RateLimitDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = false

	c := NewContainer(&ContainerConfig{Config: cfg})
	defer c.Close()

	assert.Nil(t, c.RateLimiter)
}
