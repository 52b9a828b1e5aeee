// Package reservation submits booking selections to the Reservations API and
// converts every outcome into the booking error taxonomy.
package reservation

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/ticket-storefront/internal/apiclient"
	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/pkg/logger"
	"github.com/prohmpiriya/ticket-storefront/pkg/telemetry"
)

// TokenSource supplies the bearer token of the current buyer
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// HistoryRecorder remembers confirmed reservations for the buyer
type HistoryRecorder interface {
	RecordReservation(ctx context.Context, record domain.ReservationRecord) error
}

// CreateReservationRequest is the body of POST /reservations. The payment
// method is deliberately absent.
type CreateReservationRequest struct {
	EventID      string `json:"eventId"`
	TicketTypeID string `json:"ticketTypeId"`
	Quantity     int    `json:"quantity"`
}

var (
	submissionsTotal = telemetry.NewCounter("storefront_reservation_submissions_total", "Reservation requests sent to the Reservations API")
	outcomesTotal    = telemetry.NewCounter("storefront_reservation_outcomes_total", "Reservation outcomes by error kind")
)

// Service performs exactly one API call per Submit and never retries
type Service struct {
	api     *apiclient.Client
	tokens  TokenSource
	history HistoryRecorder
	log     *logger.Logger
	now     func() time.Time
}

// NewService creates a reservation Service. history may be nil.
func NewService(api *apiclient.Client, tokens TokenSource, history HistoryRecorder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{api: api, tokens: tokens, history: history, log: log, now: time.Now}
}

// Submit reserves the selection. Every error returned is a *domain.BookingError.
func (s *Service) Submit(ctx context.Context, sel domain.BookingSelection) (*domain.ReservationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "reservation.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("event_id", sel.EventID),
		attribute.String("ticket_type_id", sel.TicketTypeID()),
		attribute.Int("quantity", sel.Quantity),
	)

	result, err := s.submit(ctx, sel)

	kind := "OK"
	if err != nil {
		kind = string(domain.KindOf(err))
		telemetry.SetSpanError(ctx, err)
	}
	outcomesTotal.Inc(ctx, attribute.String("kind", kind))
	return result, err
}

func (s *Service) submit(ctx context.Context, sel domain.BookingSelection) (*domain.ReservationResult, error) {
	if err := validateSelection(sel); err != nil {
		return nil, err
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = domain.NewNetworkError(err)
		}
		return nil, err
	}

	submissionsTotal.Inc(ctx)
	resp, err := s.api.Do(ctx, apiclient.Request{
		Method:         http.MethodPost,
		Path:           "/reservations",
		Token:          token,
		IdempotencyKey: sel.IdempotencyKey,
		Body: CreateReservationRequest{
			EventID:      sel.EventID,
			TicketTypeID: sel.TicketTypeID(),
			Quantity:     sel.Quantity,
		},
	})
	if err != nil {
		return nil, domain.NewNetworkError(err)
	}

	if err := statusError(resp); err != nil {
		s.log.Ctx(ctx).Warn("Reservation rejected",
			zap.String("event_id", sel.EventID),
			zap.String("ticket_type_id", sel.TicketTypeID()),
			zap.Int("status", resp.Status),
			zap.Error(err),
		)
		return nil, err
	}

	result, err := decodeResult(resp.Body, sel)
	if err != nil {
		s.log.Ctx(ctx).Error("Reservations API broke its response contract",
			zap.Int("status", resp.Status),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Ctx(ctx).Info("Reservation confirmed",
		zap.String("reservation_number", result.ReservationNumber),
		zap.Int("tickets", len(result.Tickets)),
	)

	if s.history != nil {
		record := domain.ReservationRecord{
			EventID:        sel.EventID,
			TicketTypeID:   sel.TicketTypeID(),
			TicketTypeName: sel.TicketType.Name,
			Quantity:       sel.Quantity,
			Result:         *result,
			CreatedAt:      s.now(),
		}
		if err := s.history.RecordReservation(ctx, record); err != nil {
			s.log.Ctx(ctx).Warn("Failed to record reservation history", zap.Error(err))
		}
	}
	return result, nil
}

func validateSelection(sel domain.BookingSelection) error {
	switch {
	case sel.EventID == "":
		return domain.NewValidationError("event is required")
	case sel.TicketTypeID() == "":
		return domain.NewValidationError("ticket type is required")
	case sel.Quantity < 1:
		return domain.NewValidationError("quantity must be at least 1")
	case sel.PaymentMethod == "":
		return domain.NewValidationError("payment method is required")
	}
	if _, err := domain.ParsePaymentMethod(string(sel.PaymentMethod)); err != nil {
		return domain.NewValidationError(err.Error())
	}
	return nil
}

func statusError(resp *apiclient.Response) error {
	if resp.OK() {
		return nil
	}
	msg := apiclient.ServerMessage(resp.Body)
	switch resp.Status {
	case http.StatusBadRequest:
		if msg == "" {
			msg = "invalid reservation data"
		}
		return domain.NewValidationError(msg)
	case http.StatusUnauthorized:
		return domain.NewAuthRequiredError(msg)
	case http.StatusNotFound:
		return domain.NewNotFoundError(msg)
	case http.StatusConflict:
		return domain.NewConflictError(msg)
	default:
		return domain.NewTransportError(resp.Status, msg)
	}
}

