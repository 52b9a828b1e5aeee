package reservation

import (
	"fmt"

	"github.com/prohmpiriya/ticket-storefront/internal/apiclient"
	"github.com/prohmpiriya/ticket-storefront/internal/domain"
)

type ticketPayload struct {
	TicketNumber *string  `json:"ticketNumber" validate:"required,min=1"`
	TicketTypeID *string  `json:"ticketTypeId"`
	Price        *float64 `json:"price" validate:"required,gte=0"`
	Currency     *string  `json:"currency" validate:"required,len=3"`
	IsUsed       *bool    `json:"isUsed" validate:"required"`
}

type reservationData struct {
	ReservationNumber *string         `json:"reservationNumber"`
	Tickets           []ticketPayload `json:"tickets" validate:"required,dive"`
	TotalAmount       *float64        `json:"totalAmount" validate:"omitempty,gte=0"`
	Currency          *string         `json:"currency" validate:"omitempty,len=3"`
}

type reservationSummary struct {
	ReservationNumber *string  `json:"reservationNumber"`
	TotalAmount       *float64 `json:"totalAmount" validate:"omitempty,gte=0"`
}

// createReservationResponse accepts the number and total under data or
// summary, falling back to a flat body carrying the same fields at the top
// level. Tickets live under data when it is present.
type createReservationResponse struct {
	Data    *reservationData    `json:"data"`
	Summary *reservationSummary `json:"summary"`

	ReservationNumber *string         `json:"reservationNumber"`
	Tickets           []ticketPayload `json:"tickets" validate:"omitempty,dive"`
	TotalAmount       *float64        `json:"totalAmount" validate:"omitempty,gte=0"`
	Currency          *string         `json:"currency" validate:"omitempty,len=3"`
}

func decodeResult(body []byte, sel domain.BookingSelection) (*domain.ReservationResult, error) {
	var payload createReservationResponse
	if err := apiclient.DecodeStrict(body, &payload); err != nil {
		return nil, domain.NewMalformedResponseError("reservation response", err)
	}

	data := payload.Data
	if data == nil {
		if payload.Tickets == nil {
			return nil, domain.NewMalformedResponseError("reservation tickets missing", nil)
		}
		data = &reservationData{
			ReservationNumber: payload.ReservationNumber,
			Tickets:           payload.Tickets,
			TotalAmount:       payload.TotalAmount,
			Currency:          payload.Currency,
		}
	}

	number := firstString(data.ReservationNumber, summaryNumber(payload.Summary), payload.ReservationNumber)
	if number == "" {
		return nil, domain.NewMalformedResponseError("reservation number missing", nil)
	}

	total := data.TotalAmount
	if total == nil && payload.Summary != nil {
		total = payload.Summary.TotalAmount
	}
	if total == nil {
		total = payload.TotalAmount
	}
	if total == nil {
		return nil, domain.NewMalformedResponseError("total amount missing", nil)
	}

	result := &domain.ReservationResult{
		ReservationNumber: number,
		Tickets:           make([]domain.IssuedTicket, 0, len(data.Tickets)),
		TotalAmount:       *total,
		Currency:          firstString(data.Currency, payload.Currency),
	}

	for i, t := range data.Tickets {
		typeID := firstString(t.TicketTypeID)
		if typeID == "" {
			typeID = sel.TicketTypeID()
		}
		if *t.TicketNumber == "" {
			return nil, domain.NewMalformedResponseError(fmt.Sprintf("ticket %d has no number", i), nil)
		}
		result.Tickets = append(result.Tickets, domain.IssuedTicket{
			TicketNumber: *t.TicketNumber,
			TicketTypeID: typeID,
			Price:        *t.Price,
			Currency:     *t.Currency,
			IsUsed:       *t.IsUsed,
		})
	}

	if result.Currency == "" {
		if len(result.Tickets) > 0 {
			result.Currency = result.Tickets[0].Currency
		} else {
			result.Currency = sel.TicketType.Currency
		}
	}
	return result, nil
}

func summaryNumber(s *reservationSummary) *string {
	if s == nil {
		return nil
	}
	return s.ReservationNumber
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}
