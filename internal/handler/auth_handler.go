package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/ticket-storefront/internal/auth"
	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/dto"
	"github.com/prohmpiriya/ticket-storefront/internal/session"
	"github.com/prohmpiriya/ticket-storefront/pkg/response"
)

// AuthService is the session-aware authentication flow
type AuthService interface {
	Login(ctx context.Context, creds auth.Credentials) (*domain.UserProfile, error)
	Register(ctx context.Context, reg auth.Registration) (*domain.UserProfile, error)
	CompleteOAuth(ctx context.Context, token string) (*domain.UserProfile, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*domain.UserProfile, error)
}

// WizardRemover drops the booking wizard of a session
type WizardRemover interface {
	Remove(sessionID string)
}

// AuthHandler handles sign-in and sign-out of the storefront session
type AuthHandler struct {
	auth    AuthService
	wizards WizardRemover
}

// NewAuthHandler creates a new auth handler. wizards may be nil.
func NewAuthHandler(auth AuthService, wizards WizardRemover) *AuthHandler {
	return &AuthHandler{auth: auth, wizards: wizards}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, profile)
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, profile)
}

// OAuthCallback handles POST /auth/oauth/callback
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	var req dto.OAuthCallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	profile, err := h.auth.CompleteOAuth(c.Request.Context(), req.Token)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, profile)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	if sid, ok := session.IDFromContext(c.Request.Context()); ok && h.wizards != nil {
		h.wizards.Remove(sid)
	}
	response.Success(c, gin.H{"signedOut": true})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	profile, err := h.auth.CurrentUser(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, profile)
}
