package domain

import "time"

// ReservationResult is the server-confirmed outcome of a reservation. Immutable once received.
type ReservationResult struct {
	ReservationNumber string         `json:"reservationNumber"`
	Tickets           []IssuedTicket `json:"tickets"`
	TotalAmount       float64        `json:"totalAmount"`
	Currency          string         `json:"currency"`
}

// IssuedTicket is a single admission issued by a reservation
type IssuedTicket struct {
	TicketNumber string  `json:"ticketNumber"`
	TicketTypeID string  `json:"ticketTypeId"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	IsUsed       bool    `json:"isUsed"`
}

// ReservationRecord is a reservation kept in the buyer's session history
type ReservationRecord struct {
	EventID        string            `json:"eventId"`
	TicketTypeID   string            `json:"ticketTypeId"`
	TicketTypeName string            `json:"ticketTypeName"`
	Quantity       int               `json:"quantity"`
	Result         ReservationResult `json:"result"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// FindTicket returns the issued ticket with the given number
func (r *ReservationResult) FindTicket(number string) (*IssuedTicket, bool) {
	for i := range r.Tickets {
		if r.Tickets[i].TicketNumber == number {
			return &r.Tickets[i], true
		}
	}
	return nil, false
}
