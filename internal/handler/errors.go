package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/ticket-storefront/internal/auth"
	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/session"
	"github.com/prohmpiriya/ticket-storefront/pkg/response"
)

// handleError maps service errors to the response envelope
func handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error(), "")
	case errors.Is(err, session.ErrNoSession):
		response.Error(c, http.StatusBadRequest, "NO_SESSION", err.Error(), "")

	// Wizard guards
	case errors.Is(err, domain.ErrCatalogNotLoaded):
		response.Error(c, http.StatusConflict, "NO_EVENT_LOADED", err.Error(), "")
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", err.Error(), "")
	case errors.Is(err, domain.ErrTicketTypeNotFound):
		response.Error(c, http.StatusNotFound, "TICKET_TYPE_NOT_FOUND", err.Error(), "")
	case errors.Is(err, domain.ErrTicketNotIssued):
		response.Error(c, http.StatusNotFound, "TICKET_NOT_FOUND", err.Error(), "")
	case errors.Is(err, domain.ErrTicketNotSelectable):
		response.Error(c, http.StatusUnprocessableEntity, "TICKET_NOT_SELECTABLE", err.Error(), "")
	case errors.Is(err, domain.ErrInvalidQuantity):
		response.Error(c, http.StatusUnprocessableEntity, "INVALID_QUANTITY", err.Error(), "")
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		response.Error(c, http.StatusUnprocessableEntity, "INVALID_PAYMENT_METHOD", err.Error(), "")
	case errors.Is(err, domain.ErrPaymentMethodRequired):
		response.Error(c, http.StatusUnprocessableEntity, "PAYMENT_METHOD_REQUIRED", err.Error(), "")

	// Remote API failures
	case domain.IsValidationError(err):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", domain.UserMessage(err), "")
	case domain.IsAuthRequiredError(err):
		response.Error(c, http.StatusUnauthorized, "AUTH_REQUIRED", domain.UserMessage(err), "")
	case domain.IsNotFoundError(err):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", domain.UserMessage(err), "")
	case domain.IsConflictError(err):
		response.Conflict(c, "CONFLICT", domain.UserMessage(err))
	case domain.IsNetworkError(err):
		response.Error(c, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", domain.UserMessage(err), "")
	case errors.Is(err, domain.ErrMalformedResponse), errors.Is(err, domain.ErrTransport):
		response.BadGateway(c, "UPSTREAM_ERROR", domain.UserMessage(err))

	default:
		response.InternalError(c, err)
	}
}
