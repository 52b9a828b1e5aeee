package wizard

import (
	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/pricing"
)

// Summary is the price recap shown next to the payment form
type Summary struct {
	EventName      string
	TicketTypeID   string
	TicketTypeName string
	Quantity       int
	MaxQuantity    int
	UnitPrice      string
	Total          pricing.Money
	PaymentMethod  domain.PaymentMethod
}

// Summary returns the price recap of the current selection. ok is false when
// nothing is selected.
func (c *Controller) Summary() (summary Summary, ok bool) {
	return c.SummaryOf(c.State())
}

// SummaryOf builds the price recap of a state snapshot, so a view rendered
// from that snapshot never mixes in a later step.
func (c *Controller) SummaryOf(state State) (summary Summary, ok bool) {
	sel := state.Selection
	if sel == nil {
		return Summary{}, false
	}
	var eventName string
	if state.Event != nil {
		eventName = state.Event.Name
	}

	tt := sel.TicketType
	price := tt.Price
	total, err := c.deps.Calculator.ComputeTotal(&price, sel.Quantity, tt.Currency)
	if err != nil {
		total = pricing.Money{Currency: tt.Currency, Display: pricing.Placeholder}
	}

	return Summary{
		EventName:      eventName,
		TicketTypeID:   tt.ID,
		TicketTypeName: tt.Name,
		Quantity:       sel.Quantity,
		MaxQuantity:    tt.MaxQuantity(),
		UnitPrice:      c.deps.Calculator.FormatAmount(tt.Price, tt.Currency),
		Total:          total,
		PaymentMethod:  sel.PaymentMethod,
	}, true
}
