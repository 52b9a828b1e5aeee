// Package catalog loads an event's ticket types from the Events API.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prohmpiriya/ticket-storefront/internal/apiclient"
	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/pkg/retry"
)

// Provider returns the ticket catalog of an event
type Provider interface {
	Event(ctx context.Context, eventID string) (*domain.Event, error)
}

type ticketTypePayload struct {
	ID             *string    `json:"_id" validate:"required,min=1"`
	Name           *string    `json:"name" validate:"required,min=1"`
	Description    *string    `json:"description" validate:"required"`
	Price          *float64   `json:"price" validate:"required,gte=0"`
	Currency       *string    `json:"currency" validate:"required,iso4217"`
	Quantity       *int       `json:"quantity" validate:"required,gte=0"`
	MaxPerPurchase *int       `json:"maxPerPurchase" validate:"required,gte=1"`
	SaleStartDate  *time.Time `json:"saleStartDate" validate:"required"`
	SaleEndDate    *time.Time `json:"saleEndDate" validate:"required"`
	Benefits       []string   `json:"benefits" validate:"required"`
}

type pricingPayload struct {
	TicketTypes []ticketTypePayload `json:"ticketTypes" validate:"omitempty,dive"`
}

type eventPayload struct {
	ID          string              `json:"_id"`
	Name        string              `json:"name"`
	StartDate   *time.Time          `json:"startDate"`
	Location    interface{}         `json:"location"`
	TicketTypes []ticketTypePayload `json:"ticketTypes" validate:"omitempty,dive"`
	Pricing     *pricingPayload     `json:"pricing"`
}

// Client reads GET /events/{id}/pricing. Transient failures are retried since
// the call is a read.
type Client struct {
	api     *apiclient.Client
	retrier *retry.Retrier
}

// NewClient creates a catalog client
func NewClient(api *apiclient.Client, retrier *retry.Retrier) *Client {
	if retrier == nil {
		retrier = retry.New(&retry.Config{MaxRetries: 0})
	}
	return &Client{api: api, retrier: retrier}
}

// Event fetches and validates the event's ticket types
func (c *Client) Event(ctx context.Context, eventID string) (*domain.Event, error) {
	if eventID == "" {
		return nil, domain.NewValidationError("event id is required")
	}

	var event *domain.Event
	_, err := c.retrier.Do(ctx, func(ctx context.Context) error {
		resp, err := c.api.Do(ctx, apiclient.Request{
			Method: http.MethodGet,
			Path:   "/events/" + url.PathEscape(eventID) + "/pricing",
		})
		if err != nil {
			return domain.NewNetworkError(err)
		}
		switch {
		case resp.Status == http.StatusNotFound:
			return retry.Permanent(domain.NewNotFoundError("event not found"))
		case resp.Status >= 500:
			return domain.NewTransportError(resp.Status, apiclient.ServerMessage(resp.Body))
		case !resp.OK():
			return retry.Permanent(domain.NewTransportError(resp.Status, apiclient.ServerMessage(resp.Body)))
		}

		decoded, err := decodeEvent(eventID, resp.Body)
		if err != nil {
			return retry.Permanent(err)
		}
		event = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func decodeEvent(eventID string, body []byte) (*domain.Event, error) {
	var payload eventPayload
	if err := apiclient.DecodeStrict(body, &payload); err != nil {
		return nil, domain.NewMalformedResponseError("event pricing", err)
	}

	ticketTypes := payload.TicketTypes
	if payload.Pricing != nil && len(payload.Pricing.TicketTypes) > 0 {
		ticketTypes = payload.Pricing.TicketTypes
	}

	event := &domain.Event{
		ID:          payload.ID,
		Name:        payload.Name,
		StartDate:   payload.StartDate,
		Venue:       venueName(payload.Location),
		TicketTypes: make([]domain.TicketType, 0, len(ticketTypes)),
	}
	if event.ID == "" {
		event.ID = eventID
	}

	for _, tt := range ticketTypes {
		if tt.SaleEndDate.Before(*tt.SaleStartDate) {
			return nil, domain.NewMalformedResponseError(
				fmt.Sprintf("ticket type %s ends its sale before it starts", *tt.ID), nil)
		}
		event.TicketTypes = append(event.TicketTypes, domain.TicketType{
			ID:             *tt.ID,
			Name:           *tt.Name,
			Description:    *tt.Description,
			Price:          *tt.Price,
			Currency:       *tt.Currency,
			Remaining:      *tt.Quantity,
			MaxPerPurchase: *tt.MaxPerPurchase,
			SaleStart:      *tt.SaleStartDate,
			SaleEnd:        *tt.SaleEndDate,
			Benefits:       tt.Benefits,
		})
	}
	return event, nil
}

func venueName(location interface{}) string {
	switch l := location.(type) {
	case string:
		return l
	case map[string]interface{}:
		if name, ok := l["name"].(string); ok {
			return name
		}
	}
	return ""
}
