package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/session"
)

// TokenStore reads the bearer token of the current session
type TokenStore interface {
	Token(ctx context.Context) (string, error)
}

// SessionTokenSource hands out the session's bearer token for outbound calls.
// Tokens that parse as JWTs are checked for expiry locally; opaque tokens are
// passed through and left to the API to judge.
type SessionTokenSource struct {
	store  TokenStore
	parser *jwt.Parser
	leeway time.Duration
	now    func() time.Time
}

// NewSessionTokenSource creates a token source over store
func NewSessionTokenSource(store TokenStore) *SessionTokenSource {
	return &SessionTokenSource{
		store:  store,
		parser: jwt.NewParser(),
		leeway: 5 * time.Second,
		now:    time.Now,
	}
}

// Token returns a usable bearer token or an AuthRequired error. A failing
// session store is a NetworkError so the buyer is not sent to sign in again.
func (s *SessionTokenSource) Token(ctx context.Context) (string, error) {
	token, err := s.store.Token(ctx)
	switch {
	case errors.Is(err, session.ErrNoSession):
		return "", domain.NewAuthRequiredError("no active session")
	case err != nil:
		return "", domain.NewNetworkError(fmt.Errorf("load session: %w", err))
	case token == "":
		return "", domain.NewAuthRequiredError("no active session")
	}

	if exp, ok := s.expiry(token); ok && !s.now().Before(exp.Add(-s.leeway)) {
		return "", domain.NewAuthRequiredError("session expired")
	}
	return token, nil
}

func (s *SessionTokenSource) expiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := s.parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
