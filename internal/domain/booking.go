package domain

import "fmt"

// PaymentMethod is collected for display only and never sent to the Reservations API
type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "card"
	PaymentPayPal       PaymentMethod = "paypal"
	PaymentBankTransfer PaymentMethod = "bank-transfer"
	PaymentMobileWallet PaymentMethod = "mobile-wallet"
)

// PaymentMethods lists the accepted methods in display order
var PaymentMethods = []PaymentMethod{PaymentCard, PaymentPayPal, PaymentBankTransfer, PaymentMobileWallet}

// ParsePaymentMethod validates a raw payment method value
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for _, m := range PaymentMethods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
}

// BookingSelection is the buyer's in-progress choice.
// IdempotencyKey identifies the purchase intent and is kept across retries.
type BookingSelection struct {
	EventID        string
	TicketType     TicketType
	Quantity       int
	PaymentMethod  PaymentMethod
	IdempotencyKey string
}

// TicketTypeID is a shorthand for the selected ticket type id
func (s *BookingSelection) TicketTypeID() string {
	return s.TicketType.ID
}
