package reservation

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/ticket-storefront/internal/apiclient"
	"github.com/prohmpiriya/ticket-storefront/internal/domain"
)

type tokenFunc func(ctx context.Context) (string, error)

func (f tokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

func staticToken(token string) TokenSource {
	return tokenFunc(func(context.Context) (string, error) { return token, nil })
}

type historyFunc func(ctx context.Context, record domain.ReservationRecord) error

func (f historyFunc) RecordReservation(ctx context.Context, record domain.ReservationRecord) error {
	return f(ctx, record)
}

const confirmedBody = `{
	"success": true,
	"data": {
		"reservationNumber": "RES-2025-0001",
		"tickets": [
			{"ticketNumber": "TKT-1", "ticketTypeId": "std", "price": 25, "currency": "EUR", "isUsed": false},
			{"ticketNumber": "TKT-2", "ticketTypeId": "std", "price": 25, "currency": "EUR", "isUsed": false},
			{"ticketNumber": "TKT-3", "ticketTypeId": "std", "price": 25, "currency": "EUR", "isUsed": false}
		],
		"totalAmount": 75
	}
}`

func testSelection() domain.BookingSelection {
	return domain.BookingSelection{
		EventID: "evt-1",
		TicketType: domain.TicketType{
			ID:             "std",
			Name:           "Standard",
			Price:          25,
			Currency:       "EUR",
			Remaining:      40,
			MaxPerPurchase: 10,
		},
		Quantity:       3,
		PaymentMethod:  domain.PaymentCard,
		IdempotencyKey: "idem-123",
	}
}

func newTestService(t *testing.T, handler http.HandlerFunc, tokens TokenSource, history HistoryRecorder) (*Service, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	api := apiclient.New(apiclient.Config{Name: "reservations", BaseURL: server.URL, Timeout: time.Second, BreakerThreshold: 100}, nil)
	return NewService(api, tokens, history, nil), &calls
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestService_Submit_Success(t *testing.T) {
	var recorded []domain.ReservationRecord
	history := historyFunc(func(_ context.Context, record domain.ReservationRecord) error {
		recorded = append(recorded, record)
		return nil
	})
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/reservations", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		assert.Equal(t, "idem-123", r.Header.Get(apiclient.IdempotencyKeyHeader))
		assert.Equal(t, "req-9", r.Header.Get(apiclient.RequestIDHeader))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, map[string]interface{}{
			"eventId":      "evt-1",
			"ticketTypeId": "std",
			"quantity":     float64(3),
		}, body)

		respond(http.StatusCreated, confirmedBody)(w, r)
	}, staticToken("token-abc"), history)

	ctx := apiclient.WithRequestID(context.Background(), "req-9")
	result, err := svc.Submit(ctx, testSelection())

	require.NoError(t, err)
	assert.Equal(t, "RES-2025-0001", result.ReservationNumber)
	require.Len(t, result.Tickets, 3)
	assert.Equal(t, "TKT-1", result.Tickets[0].TicketNumber)
	assert.Equal(t, 75.0, result.TotalAmount)
	assert.Equal(t, "EUR", result.Currency)

	require.Len(t, recorded, 1)
	assert.Equal(t, "RES-2025-0001", recorded[0].Result.ReservationNumber)
	assert.Equal(t, "Standard", recorded[0].TicketTypeName)
	assert.Equal(t, 3, recorded[0].Quantity)
}

func TestService_Submit_SummaryFallback(t *testing.T) {
	body := `{
		"data": {"tickets": [{"ticketNumber": "TKT-1", "price": 40, "currency": "EUR", "isUsed": false}]},
		"summary": {"reservationNumber": "RES-77", "totalAmount": 40}
	}`
	svc, _ := newTestService(t, respond(http.StatusOK, body), staticToken("t"), nil)

	result, err := svc.Submit(context.Background(), testSelection())

	require.NoError(t, err)
	assert.Equal(t, "RES-77", result.ReservationNumber)
	assert.Equal(t, 40.0, result.TotalAmount)
	assert.Equal(t, "std", result.Tickets[0].TicketTypeID)
}

func TestService_Submit_FlatBody(t *testing.T) {
	body := `{
		"reservationNumber": "R-0001",
		"tickets": [
			{"ticketNumber": "TKT-1", "ticketTypeId": "std", "price": 25, "currency": "EUR", "isUsed": false},
			{"ticketNumber": "TKT-2", "ticketTypeId": "std", "price": 25, "currency": "EUR", "isUsed": false}
		],
		"totalAmount": 75
	}`
	svc, _ := newTestService(t, respond(http.StatusCreated, body), staticToken("t"), nil)

	result, err := svc.Submit(context.Background(), testSelection())

	require.NoError(t, err)
	assert.Equal(t, "R-0001", result.ReservationNumber)
	require.Len(t, result.Tickets, 2)
	assert.Equal(t, "TKT-2", result.Tickets[1].TicketNumber)
	assert.Equal(t, 75.0, result.TotalAmount)
	assert.Equal(t, "EUR", result.Currency)
}

func TestService_Submit_WrapperWinsOverFlatFields(t *testing.T) {
	body := `{
		"reservationNumber": "FLAT",
		"data": {
			"reservationNumber": "WRAPPED",
			"tickets": [{"ticketNumber": "TKT-1", "price": 25, "currency": "EUR", "isUsed": false}],
			"totalAmount": 25
		}
	}`
	svc, _ := newTestService(t, respond(http.StatusCreated, body), staticToken("t"), nil)

	result, err := svc.Submit(context.Background(), testSelection())

	require.NoError(t, err)
	assert.Equal(t, "WRAPPED", result.ReservationNumber)
}

func TestService_Submit_HistoryFailureDoesNotFailReservation(t *testing.T) {
	history := historyFunc(func(context.Context, domain.ReservationRecord) error {
		return errors.New("redis down")
	})
	svc, _ := newTestService(t, respond(http.StatusCreated, confirmedBody), staticToken("t"), history)

	result, err := svc.Submit(context.Background(), testSelection())

	require.NoError(t, err)
	assert.Equal(t, "RES-2025-0001", result.ReservationNumber)
}

func TestService_Submit_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>oops</html>`},
		{name: "missing data", body: `{"success": true}`},
		{name: "missing reservation number", body: `{"data": {"tickets": [], "totalAmount": 0}}`},
		{name: "missing tickets", body: `{"data": {"reservationNumber": "R", "totalAmount": 0}}`},
		{name: "missing total", body: `{"data": {"reservationNumber": "R", "tickets": []}}`},
		{name: "ticket without number", body: `{"data": {"reservationNumber": "R", "totalAmount": 25, "tickets": [{"price": 25, "currency": "EUR", "isUsed": false}]}}`},
		{name: "flat without total", body: `{"reservationNumber": "R", "tickets": []}`},
		{name: "flat without number", body: `{"tickets": [], "totalAmount": 0}`},
		{name: "flat ticket without currency", body: `{"reservationNumber": "R", "totalAmount": 25, "tickets": [{"ticketNumber": "T", "price": 25, "isUsed": false}]}`},
		{name: "ticket without price", body: `{"data": {"reservationNumber": "R", "totalAmount": 25, "tickets": [{"ticketNumber": "T", "currency": "EUR", "isUsed": false}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, respond(http.StatusCreated, tt.body), staticToken("t"), nil)

			result, err := svc.Submit(context.Background(), testSelection())

			assert.Nil(t, result)
			assert.Equal(t, domain.KindMalformedResponse, domain.KindOf(err))
		})
	}
}

func TestService_Submit_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    domain.ErrorKind
		message string
	}{
		{name: "bad request", status: http.StatusBadRequest, body: `{"message":"Quantité invalide"}`, kind: domain.KindValidation, message: "Quantité invalide"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, kind: domain.KindAuthRequired},
		{name: "not found", status: http.StatusNotFound, body: `{}`, kind: domain.KindNotFound},
		{name: "conflict", status: http.StatusConflict, body: `{"message":"sold out"}`, kind: domain.KindConflict},
		{name: "server error", status: http.StatusInternalServerError, body: ``, kind: domain.KindTransport},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, body: `{}`, kind: domain.KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, calls := newTestService(t, respond(tt.status, tt.body), staticToken("t"), nil)

			_, err := svc.Submit(context.Background(), testSelection())

			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
			assert.Equal(t, int32(1), atomic.LoadInt32(calls))
			if tt.message != "" {
				var be *domain.BookingError
				require.True(t, errors.As(err, &be))
				assert.Equal(t, tt.message, be.Message)
			}
			if tt.kind == domain.KindTransport {
				var be *domain.BookingError
				require.True(t, errors.As(err, &be))
				assert.Equal(t, tt.status, be.Status)
			}
		})
	}
}

func TestService_Submit_ConflictIsNotRetried(t *testing.T) {
	svc, calls := newTestService(t, respond(http.StatusConflict, `{}`), staticToken("t"), nil)

	_, err := svc.Submit(context.Background(), testSelection())

	assert.True(t, domain.IsConflictError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestService_Submit_NetworkFailure(t *testing.T) {
	api := apiclient.New(apiclient.Config{Name: "reservations", BaseURL: "http://127.0.0.1:1", Timeout: time.Second, BreakerThreshold: 100}, nil)
	svc := NewService(api, staticToken("t"), nil, nil)

	_, err := svc.Submit(context.Background(), testSelection())

	assert.True(t, domain.IsNetworkError(err))
}

func TestService_Submit_NoTokenSkipsNetwork(t *testing.T) {
	tokens := tokenFunc(func(context.Context) (string, error) {
		return "", domain.NewAuthRequiredError("no token")
	})
	svc, calls := newTestService(t, respond(http.StatusCreated, confirmedBody), tokens, nil)

	_, err := svc.Submit(context.Background(), testSelection())

	assert.True(t, domain.IsAuthRequiredError(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestService_Submit_TokenStoreErrorIsNetwork(t *testing.T) {
	tokens := tokenFunc(func(context.Context) (string, error) {
		return "", errors.New("session store unavailable")
	})
	svc, calls := newTestService(t, respond(http.StatusCreated, confirmedBody), tokens, nil)

	_, err := svc.Submit(context.Background(), testSelection())

	assert.True(t, domain.IsNetworkError(err))
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestService_Submit_LocalValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.BookingSelection)
	}{
		{name: "no event", mutate: func(s *domain.BookingSelection) { s.EventID = "" }},
		{name: "no ticket type", mutate: func(s *domain.BookingSelection) { s.TicketType.ID = "" }},
		{name: "zero quantity", mutate: func(s *domain.BookingSelection) { s.Quantity = 0 }},
		{name: "no payment method", mutate: func(s *domain.BookingSelection) { s.PaymentMethod = "" }},
		{name: "unknown payment method", mutate: func(s *domain.BookingSelection) { s.PaymentMethod = "cash" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, calls := newTestService(t, respond(http.StatusCreated, confirmedBody), staticToken("t"), nil)
			sel := testSelection()
			tt.mutate(&sel)

			_, err := svc.Submit(context.Background(), sel)

			assert.True(t, domain.IsValidationError(err))
			assert.Equal(t, int32(0), atomic.LoadInt32(calls))
		})
	}
}
