package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/notify"
	"github.com/prohmpiriya/ticket-storefront/internal/session"
	"github.com/prohmpiriya/ticket-storefront/pkg/response"
)

// HistoryProvider lists the reservations confirmed in the current session
type HistoryProvider interface {
	History(ctx context.Context) ([]domain.ReservationRecord, error)
}

// NotificationSource hands out pending notifications of a session
type NotificationSource interface {
	Drain(sessionID string) []notify.Notification
}

// AccountHandler serves per-session reservation history and notifications
type AccountHandler struct {
	history       HistoryProvider
	notifications NotificationSource
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(history HistoryProvider, notifications NotificationSource) *AccountHandler {
	return &AccountHandler{history: history, notifications: notifications}
}

// History handles GET /booking/history
func (h *AccountHandler) History(c *gin.Context) {
	records, err := h.history.History(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if records == nil {
		records = []domain.ReservationRecord{}
	}
	response.SuccessWithMeta(c, records, gin.H{"total": len(records)})
}

// Notifications handles GET /notifications. Returned notifications are consumed.
func (h *AccountHandler) Notifications(c *gin.Context) {
	sid, ok := session.IDFromContext(c.Request.Context())
	if !ok {
		handleError(c, session.ErrNoSession)
		return
	}
	pending := h.notifications.Drain(sid)
	if pending == nil {
		pending = []notify.Notification{}
	}
	response.Success(c, pending)
}
