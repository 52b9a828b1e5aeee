package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketType_Selectable(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	base := TicketType{
		Remaining: 5,
		SaleStart: now.Add(-time.Hour),
		SaleEnd:   now.Add(time.Hour),
	}

	assert.True(t, base.Selectable(now))

	soldOut := base
	soldOut.Remaining = 0
	assert.False(t, soldOut.Selectable(now))

	assert.False(t, base.Selectable(now.Add(2*time.Hour)), "sale ended")
	assert.False(t, base.Selectable(now.Add(-2*time.Hour)), "sale not started")
	assert.True(t, base.Selectable(base.SaleEnd), "window is inclusive")
}

func TestTicketType_QuantityBounds(t *testing.T) {
	tt := TicketType{Remaining: 3, MaxPerPurchase: 10}
	assert.Equal(t, 3, tt.MaxQuantity())
	assert.True(t, tt.ValidQuantity(3))
	assert.False(t, tt.ValidQuantity(4))
	assert.False(t, tt.ValidQuantity(0))

	tt = TicketType{Remaining: 40, MaxPerPurchase: 10}
	assert.Equal(t, 10, tt.MaxQuantity())
}

func TestEvent_FindTicketType(t *testing.T) {
	event := Event{TicketTypes: []TicketType{{ID: "std"}, {ID: "vip"}}}

	tt, ok := event.FindTicketType("vip")
	require.True(t, ok)
	assert.Equal(t, "vip", tt.ID)

	_, ok = event.FindTicketType("nope")
	assert.False(t, ok)
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod("bank-transfer")
	require.NoError(t, err)
	assert.Equal(t, PaymentBankTransfer, m)

	_, err = ParsePaymentMethod("cash")
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}
