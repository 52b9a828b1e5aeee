package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/ticket-storefront/internal/apiclient"
	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/pkg/retry"
)

const standardTicket = `{
	"_id": "std_ticket_001",
	"name": "Standard",
	"description": "General admission",
	"price": 25,
	"currency": "EUR",
	"quantity": 40,
	"maxPerPurchase": 10,
	"saleStartDate": "2025-01-01T00:00:00Z",
	"saleEndDate": "2030-01-01T00:00:00Z",
	"benefits": ["Concert access"]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	api := apiclient.New(apiclient.Config{Name: "events", BaseURL: server.URL, Timeout: time.Second, BreakerThreshold: 100}, nil)
	return NewClient(api, retry.New(&retry.Config{MaxRetries: 2, InitialInterval: time.Millisecond}))
}

func TestClient_Event_PrefersPricingTicketTypes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/evt-1/pricing", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"_id": "evt-1",
			"name": "Jazz Night",
			"location": {"name": "Salle Pleyel"},
			"ticketTypes": [],
			"pricing": {"ticketTypes": [` + standardTicket + `]}
		}`))
	})

	event, err := client.Event(context.Background(), "evt-1")

	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", event.Name)
	assert.Equal(t, "Salle Pleyel", event.Venue)
	require.Len(t, event.TicketTypes, 1)
	tt := event.TicketTypes[0]
	assert.Equal(t, "std_ticket_001", tt.ID)
	assert.Equal(t, 25.0, tt.Price)
	assert.Equal(t, 40, tt.Remaining)
	assert.Equal(t, 10, tt.MaxPerPurchase)
	assert.Equal(t, []string{"Concert access"}, tt.Benefits)
}

func TestClient_Event_FallsBackToTopLevelTicketTypes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"_id":"evt-1","location":"Paris","ticketTypes":[` + standardTicket + `]}`))
	})

	event, err := client.Event(context.Background(), "evt-1")

	require.NoError(t, err)
	assert.Equal(t, "Paris", event.Venue)
	require.Len(t, event.TicketTypes, 1)
}

func TestClient_Event_FailsClosedOnMissingField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ticketTypes":[{"_id":"x","name":"Standard","description":"","price":25,"currency":"EUR","quantity":40,"saleStartDate":"2025-01-01T00:00:00Z","saleEndDate":"2030-01-01T00:00:00Z","benefits":[]}]}`))
	})

	_, err := client.Event(context.Background(), "evt-1")

	assert.Equal(t, domain.KindMalformedResponse, domain.KindOf(err))
}

func TestClient_Event_RejectsInvertedSaleWindow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ticketTypes":[{"_id":"x","name":"Standard","description":"","price":25,"currency":"EUR","quantity":40,"maxPerPurchase":4,"saleStartDate":"2030-01-01T00:00:00Z","saleEndDate":"2025-01-01T00:00:00Z","benefits":[]}]}`))
	})

	_, err := client.Event(context.Background(), "evt-1")

	assert.Equal(t, domain.KindMalformedResponse, domain.KindOf(err))
}

func TestClient_Event_NotFoundIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Event(context.Background(), "missing")

	assert.True(t, domain.IsNotFoundError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Event_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ticketTypes":[` + standardTicket + `]}`))
	})

	event, err := client.Event(context.Background(), "evt-1")

	require.NoError(t, err)
	assert.Len(t, event.TicketTypes, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
