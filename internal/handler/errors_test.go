package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/prohmpiriya/ticket-storefront/internal/auth"
	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/session"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid credentials", err: auth.ErrInvalidCredentials, status: http.StatusUnauthorized, code: "INVALID_CREDENTIALS"},
		{name: "no session", err: session.ErrNoSession, status: http.StatusBadRequest, code: "NO_SESSION"},
		{name: "no event loaded", err: domain.ErrCatalogNotLoaded, status: http.StatusConflict, code: "NO_EVENT_LOADED"},
		{name: "wrapped transition", err: fmt.Errorf("submit from CONFIRMED: %w", domain.ErrInvalidTransition), status: http.StatusConflict, code: "INVALID_TRANSITION"},
		{name: "unknown ticket type", err: domain.ErrTicketTypeNotFound, status: http.StatusNotFound, code: "TICKET_TYPE_NOT_FOUND"},
		{name: "quantity", err: domain.ErrInvalidQuantity, status: http.StatusUnprocessableEntity, code: "INVALID_QUANTITY"},
		{name: "validation", err: domain.NewValidationError("quantity exceeds stock"), status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "auth required", err: domain.NewAuthRequiredError(""), status: http.StatusUnauthorized, code: "AUTH_REQUIRED"},
		{name: "conflict", err: domain.NewConflictError("sold out"), status: http.StatusConflict, code: "CONFLICT"},
		{name: "network", err: domain.NewNetworkError(errors.New("timeout")), status: http.StatusServiceUnavailable, code: "UPSTREAM_UNAVAILABLE"},
		{name: "malformed", err: domain.NewMalformedResponseError("missing tickets", nil), status: http.StatusBadGateway, code: "UPSTREAM_ERROR"},
		{name: "transport", err: domain.NewTransportError(503, "maintenance"), status: http.StatusBadGateway, code: "UPSTREAM_ERROR"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			handleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			env := decode(t, w, nil)
			if assert.NotNil(t, env.Error) {
				assert.Equal(t, tt.code, env.Error.Code)
			}
		})
	}
}
