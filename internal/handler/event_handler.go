package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/dto"
	"github.com/prohmpiriya/ticket-storefront/internal/pricing"
	"github.com/prohmpiriya/ticket-storefront/pkg/response"
	"github.com/prohmpiriya/ticket-storefront/pkg/telemetry"
)

// EventCatalog loads an event with its ticket types
type EventCatalog interface {
	Event(ctx context.Context, eventID string) (*domain.Event, error)
}

// EventHandler serves the ticket catalog of an event
type EventHandler struct {
	catalog EventCatalog
	calc    *pricing.Calculator
	now     func() time.Time
}

// NewEventHandler creates a new event handler
func NewEventHandler(catalog EventCatalog, calc *pricing.Calculator) *EventHandler {
	return &EventHandler{catalog: catalog, calc: calc, now: time.Now}
}

// GetTickets handles GET /events/:id/tickets
func (h *EventHandler) GetTickets(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.tickets")
	defer span.End()

	eventID := c.Param("id")
	span.SetAttributes(attribute.String("event_id", eventID))

	event, err := h.catalog.Event(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	now := h.now()
	resp := dto.EventTicketsResponse{
		EventID:     event.ID,
		Name:        event.Name,
		Venue:       event.Venue,
		StartDate:   event.StartDate,
		TicketTypes: make([]dto.TicketTypeResponse, 0, len(event.TicketTypes)),
	}
	for _, tt := range event.TicketTypes {
		resp.TicketTypes = append(resp.TicketTypes, dto.TicketTypeResponse{
			ID:             tt.ID,
			Name:           tt.Name,
			Description:    tt.Description,
			Price:          tt.Price,
			PriceDisplay:   h.calc.FormatAmount(tt.Price, tt.Currency),
			Currency:       tt.Currency,
			Remaining:      tt.Remaining,
			MaxPerPurchase: tt.MaxPerPurchase,
			SaleStart:      tt.SaleStart,
			SaleEnd:        tt.SaleEnd,
			Benefits:       tt.Benefits,
			Selectable:     tt.Selectable(now),
		})
	}

	span.SetAttributes(attribute.Int("ticket_types", len(resp.TicketTypes)))
	response.Success(c, resp)
}
