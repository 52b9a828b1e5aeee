package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/session"
	"github.com/prohmpiriya/ticket-storefront/pkg/logger"
)

// API is the remote Auth API
type API interface {
	Login(ctx context.Context, creds Credentials) (string, *domain.UserProfile, error)
	Register(ctx context.Context, reg Registration) (*domain.UserProfile, error)
	Me(ctx context.Context, token string) (*domain.UserProfile, error)
}

// Service signs buyers in and out of their storefront session
type Service struct {
	api      API
	sessions *session.Manager
	log      *logger.Logger
}

// NewService creates an auth Service
func NewService(api API, sessions *session.Manager, log *logger.Logger) *Service {
	return &Service{api: api, sessions: sessions, log: log}
}

// Login authenticates and stores token and profile in the session
func (s *Service) Login(ctx context.Context, creds Credentials) (*domain.UserProfile, error) {
	token, profile, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SignIn(ctx, token, profile); err != nil {
		return nil, err
	}
	s.log.Ctx(ctx).Info("User signed in", zap.String("email", profile.Email))
	return profile, nil
}

// Register creates an account without signing in
func (s *Service) Register(ctx context.Context, reg Registration) (*domain.UserProfile, error) {
	return s.api.Register(ctx, reg)
}

// CompleteOAuth validates a token issued by the OAuth redirect and signs in with it
func (s *Service) CompleteOAuth(ctx context.Context, token string) (*domain.UserProfile, error) {
	if token == "" {
		return nil, domain.NewAuthRequiredError("missing authentication token")
	}
	profile, err := s.api.Me(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SignIn(ctx, token, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Logout forgets token, profile and history of the session
func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.SignOut(ctx)
}

// CurrentUser returns the signed-in profile, refreshing it from the Auth API
// when only a token is cached
func (s *Service) CurrentUser(ctx context.Context) (*domain.UserProfile, error) {
	_, data, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	if data.Token == "" {
		return nil, domain.NewAuthRequiredError("not signed in")
	}
	if data.Profile != nil {
		return data.Profile, nil
	}
	profile, err := s.api.Me(ctx, data.Token)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SetProfile(ctx, profile); err != nil {
		s.log.Ctx(ctx).Warn("Failed to cache profile", zap.Error(err))
	}
	return profile, nil
}
