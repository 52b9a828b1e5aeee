package domain

import "time"

// Event is the catalog view of an event and its purchasable ticket types
type Event struct {
	ID          string
	Name        string
	StartDate   *time.Time
	Venue       string
	TicketTypes []TicketType
}

// TicketType is a purchasable admission category, owned by the remote catalog
type TicketType struct {
	ID             string
	Name           string
	Description    string
	Price          float64
	Currency       string
	Remaining      int
	MaxPerPurchase int
	SaleStart      time.Time
	SaleEnd        time.Time
	Benefits       []string
}

// OnSale reports whether now falls inside the sale window
func (t *TicketType) OnSale(now time.Time) bool {
	return !now.Before(t.SaleStart) && !now.After(t.SaleEnd)
}

// Selectable reports whether the ticket type can be picked at now
func (t *TicketType) Selectable(now time.Time) bool {
	return t.Remaining > 0 && t.OnSale(now)
}

// MaxQuantity is the upper bound of a single purchase
func (t *TicketType) MaxQuantity() int {
	if t.MaxPerPurchase < t.Remaining {
		return t.MaxPerPurchase
	}
	return t.Remaining
}

// ValidQuantity reports whether 1 <= q <= min(maxPerPurchase, remaining)
func (t *TicketType) ValidQuantity(q int) bool {
	return q >= 1 && q <= t.MaxQuantity()
}

// FindTicketType returns the ticket type with the given id
func (e *Event) FindTicketType(id string) (*TicketType, bool) {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].ID == id {
			return &e.TicketTypes[i], true
		}
	}
	return nil, false
}
