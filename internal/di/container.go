package di

import (
	"time"

	"github.com/prohmpiriya/ticket-storefront/internal/apiclient"
	"github.com/prohmpiriya/ticket-storefront/internal/auth"
	"github.com/prohmpiriya/ticket-storefront/internal/catalog"
	"github.com/prohmpiriya/ticket-storefront/internal/confirmation"
	"github.com/prohmpiriya/ticket-storefront/internal/handler"
	"github.com/prohmpiriya/ticket-storefront/internal/middleware"
	"github.com/prohmpiriya/ticket-storefront/internal/notify"
	"github.com/prohmpiriya/ticket-storefront/internal/pricing"
	"github.com/prohmpiriya/ticket-storefront/internal/reservation"
	"github.com/prohmpiriya/ticket-storefront/internal/session"
	"github.com/prohmpiriya/ticket-storefront/internal/wizard"
	"github.com/prohmpiriya/ticket-storefront/pkg/config"
	"github.com/prohmpiriya/ticket-storefront/pkg/logger"
	"github.com/prohmpiriya/ticket-storefront/pkg/redis"
	"github.com/prohmpiriya/ticket-storefront/pkg/retry"
)

// Container holds all dependencies for the storefront
type Container struct {
	// Infrastructure
	Redis  *redis.Client
	Logger *logger.Logger

	// Remote APIs
	EventsAPI       *apiclient.Client
	ReservationsAPI *apiclient.Client
	AuthAPI         *apiclient.Client

	// Services
	Catalog       catalog.Provider
	Sessions      *session.Manager
	AuthService   *auth.Service
	Reservations  *reservation.Service
	Notifications *notify.Queue
	Calculator    *pricing.Calculator
	Wizards       *wizard.Registry
	Presenter     *confirmation.Presenter
	RateLimiter   *middleware.LocalRateLimiter

	// Handlers
	HealthHandler  *handler.HealthHandler
	AuthHandler    *handler.AuthHandler
	EventHandler   *handler.EventHandler
	BookingHandler *handler.BookingHandler
	AccountHandler *handler.AccountHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Config *config.Config
	// Redis is optional; without it sessions and caches stay in memory
	Redis  *redis.Client
	Logger *logger.Logger
	// Documents overrides the ticket document generator
	Documents confirmation.DocumentGenerator
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	app := cfg.Config
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	c := &Container{
		Redis:  cfg.Redis,
		Logger: log,
	}

	// Remote APIs
	c.EventsAPI = apiclient.New(apiclient.Config{
		Name:             "events",
		BaseURL:          app.API.EventsURL,
		Timeout:          app.API.Timeout,
		BreakerThreshold: app.API.BreakerThreshold,
	}, log)
	c.ReservationsAPI = apiclient.New(apiclient.Config{
		Name:             "reservations",
		BaseURL:          app.API.ReservationsURL,
		Timeout:          app.API.Timeout,
		BreakerThreshold: app.API.BreakerThreshold,
	}, log)
	c.AuthAPI = apiclient.New(apiclient.Config{
		Name:             "auth",
		BaseURL:          app.API.AuthURL,
		Timeout:          app.API.Timeout,
		BreakerThreshold: app.API.BreakerThreshold,
	}, log)

	// Catalog: GETs are retried, then deduplicated and cached
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = app.Catalog.MaxRetries
	var cache catalog.Cache
	if c.Redis != nil {
		cache = c.Redis
	}
	c.Catalog = catalog.NewCachedProvider(
		catalog.NewClient(c.EventsAPI, retry.New(retryCfg)),
		cache,
		app.Catalog.CacheTTL,
		log,
	)

	// Sessions
	var store session.Store = session.NewMemoryStore(app.Session.TTL)
	if c.Redis != nil {
		store = session.NewRedisStore(c.Redis, app.Session.TTL)
	}
	c.Sessions = session.NewManager(store)
	c.AuthService = auth.NewService(auth.NewClient(c.AuthAPI), c.Sessions, log)

	// Reservations
	c.Reservations = reservation.NewService(
		c.ReservationsAPI,
		auth.NewSessionTokenSource(c.Sessions),
		c.Sessions,
		log,
	)

	// Notifications
	c.Notifications = notify.NewQueue(20)
	notifiers := notify.Multi{notify.NewLogNotifier(log), c.Notifications}
	if c.Redis != nil {
		notifiers = append(notifiers, notify.NewRedisNotifier(c.Redis, log))
	}

	// Booking wizard
	c.Calculator = pricing.NewCalculator(app.Storefront.Locale)
	c.Wizards = wizard.NewRegistry(wizard.RegistryConfig{
		IdleTTL:       app.Storefront.WizardIdleTTL,
		SweepInterval: app.Storefront.WizardSweepInterval,
		OnEvict:       c.Notifications.Forget,
	}, func() *wizard.Controller {
		return wizard.NewController(wizard.Deps{
			Catalog:    c.Catalog,
			Submitter:  c.Reservations,
			Notifier:   notifiers,
			Calculator: c.Calculator,
			Logger:     log,
		})
	}, log)

	docs := cfg.Documents
	if docs == nil {
		docs = confirmation.TextDocumentGenerator{}
	}
	c.Presenter = confirmation.NewPresenter(c.Calculator, docs, log)

	if app.RateLimit.Enabled {
		c.RateLimiter = middleware.NewLocalRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: app.RateLimit.RequestsPerSecond,
			BurstSize:         app.RateLimit.Burst,
			CleanupInterval:   time.Minute,
			EntryTTL:          5 * time.Minute,
		})
	}

	// Initialize handlers
	checkers := map[string]handler.HealthChecker{"redis": nil}
	if c.Redis != nil {
		checkers["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(app.App.Name, app.App.Version, checkers)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService, c.Wizards)
	c.EventHandler = handler.NewEventHandler(c.Catalog, c.Calculator)
	c.BookingHandler = handler.NewBookingHandler(c.Wizards, c.Presenter, &handler.BookingHandlerConfig{
		AuthLoginPath: app.Storefront.AuthLoginPath,
	})
	c.AccountHandler = handler.NewAccountHandler(c.Sessions, c.Notifications)

	return c
}

// Close stops background workers
func (c *Container) Close() {
	c.Wizards.Stop()
	if c.RateLimiter != nil {
		c.RateLimiter.Stop()
	}
}
