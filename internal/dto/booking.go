package dto

import (
	"time"

	"github.com/prohmpiriya/ticket-storefront/internal/confirmation"
	"github.com/prohmpiriya/ticket-storefront/internal/pricing"
)

// SelectTicketRequest represents POST /booking/ticket
type SelectTicketRequest struct {
	TicketTypeID string `json:"ticketTypeId" binding:"required"`
}

// SetQuantityRequest represents PUT /booking/quantity. Range checks are left
// to the wizard so that a rejected value surfaces as an inline error.
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// SetPaymentMethodRequest represents PUT /booking/payment-method
type SetPaymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

// TicketTypeResponse is one purchasable ticket type with its formatted price
type TicketTypeResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Price          float64   `json:"price"`
	PriceDisplay   string    `json:"priceDisplay"`
	Currency       string    `json:"currency"`
	Remaining      int       `json:"remaining"`
	MaxPerPurchase int       `json:"maxPerPurchase"`
	SaleStart      time.Time `json:"saleStart"`
	SaleEnd        time.Time `json:"saleEnd"`
	Benefits       []string  `json:"benefits"`
	Selectable     bool      `json:"selectable"`
}

// EventTicketsResponse represents GET /events/:id/tickets
type EventTicketsResponse struct {
	EventID     string               `json:"eventId"`
	Name        string               `json:"name"`
	Venue       string               `json:"venue,omitempty"`
	StartDate   *time.Time           `json:"startDate,omitempty"`
	TicketTypes []TicketTypeResponse `json:"ticketTypes"`
}

// SelectionResponse is the in-progress booking selection
type SelectionResponse struct {
	EventID        string `json:"eventId"`
	TicketTypeID   string `json:"ticketTypeId"`
	TicketTypeName string `json:"ticketTypeName"`
	Quantity       int    `json:"quantity"`
	MaxQuantity    int    `json:"maxQuantity"`
	PaymentMethod  string `json:"paymentMethod,omitempty"`
}

// SummaryResponse is the price recap of the selection
type SummaryResponse struct {
	EventName      string        `json:"eventName,omitempty"`
	TicketTypeName string        `json:"ticketTypeName"`
	Quantity       int           `json:"quantity"`
	UnitPrice      string        `json:"unitPrice"`
	Total          pricing.Money `json:"total"`
	PaymentMethod  string        `json:"paymentMethod,omitempty"`
}

// ErrorInfo describes why the last submission failed
type ErrorInfo struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Status    int    `json:"status,omitempty"`
	Retryable bool   `json:"retryable"`
}

// WizardResponse is the state of the buyer's booking wizard
type WizardResponse struct {
	Step           string             `json:"step"`
	EventID        string             `json:"eventId,omitempty"`
	EventName      string             `json:"eventName,omitempty"`
	Selection      *SelectionResponse `json:"selection,omitempty"`
	Summary        *SummaryResponse   `json:"summary,omitempty"`
	Confirmation   *confirmation.View `json:"confirmation,omitempty"`
	Error          *ErrorInfo         `json:"error,omitempty"`
	InlineError    string             `json:"inlineError,omitempty"`
	RedirectToAuth bool               `json:"redirectToAuth,omitempty"`
	RedirectURL    string             `json:"redirectUrl,omitempty"`
}
