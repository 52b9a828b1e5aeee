// Package wizard drives one buyer through ticket selection, payment method
// entry, submission and confirmation.
package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/notify"
	"github.com/prohmpiriya/ticket-storefront/internal/pricing"
	"github.com/prohmpiriya/ticket-storefront/pkg/logger"
	"github.com/prohmpiriya/ticket-storefront/pkg/telemetry"
)

// Step is the active state of the wizard
type Step string

const (
	StepSelectingTicket Step = "SELECTING_TICKET"
	StepEnteringPayment Step = "ENTERING_PAYMENT"
	StepSubmitting      Step = "SUBMITTING"
	StepConfirmed       Step = "CONFIRMED"
	StepFailed          Step = "FAILED"
)

// State is a snapshot of the wizard. Selection is set in EnteringPayment,
// Submitting and Failed; Result only in Confirmed; Err only in Failed.
type State struct {
	Step           Step
	Event          *domain.Event
	Selection      *domain.BookingSelection
	Result         *domain.ReservationResult
	Err            error
	InlineError    error
	RedirectToAuth bool
}

// Submitter sends a selection to the Reservations API
type Submitter interface {
	Submit(ctx context.Context, sel domain.BookingSelection) (*domain.ReservationResult, error)
}

// CatalogProvider loads the event and its ticket types
type CatalogProvider interface {
	Event(ctx context.Context, eventID string) (*domain.Event, error)
}

// Deps are the collaborators of a Controller. Notifier, Calculator and
// Logger are optional.
type Deps struct {
	Catalog    CatalogProvider
	Submitter  Submitter
	Notifier   notify.Notifier
	Calculator *pricing.Calculator
	Logger     *logger.Logger
	Now        func() time.Time
	NewKey     func() string
}

var (
	transitionsTotal      = telemetry.NewCounter("storefront_wizard_transitions_total", "Wizard state transitions by target step")
	duplicateSubmitsTotal = telemetry.NewCounter("storefront_wizard_duplicate_submits_total", "Submits ignored because one was already in flight")
	staleSettlementsTotal = telemetry.NewCounter("storefront_wizard_stale_settlements_total", "Reservation results discarded after the wizard moved on")
)

// Controller is the booking state machine. All methods are safe for
// concurrent use; at most one reservation call is in flight at a time.
type Controller struct {
	deps Deps
	log  *logger.Logger

	mu         sync.Mutex
	event      *domain.Event
	step       Step
	selection  domain.BookingSelection
	result     *domain.ReservationResult
	err        error
	inline     error
	redirect   bool
	generation uint64
}

// NewController creates a wizard in SelectingTicket with no event loaded
func NewController(deps Deps) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = notify.Multi{}
	}
	if deps.Calculator == nil {
		deps.Calculator = pricing.NewCalculator(pricing.DefaultLocale)
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewKey == nil {
		deps.NewKey = func() string { return uuid.New().String() }
	}
	return &Controller{
		deps: deps,
		log:  deps.Logger,
		step: StepSelectingTicket,
	}
}

// Start loads eventID from the catalog and begins a fresh booking session for it
func (c *Controller) Start(ctx context.Context, eventID string) (State, error) {
	if eventID == "" {
		return c.State(), domain.NewValidationError("event is required")
	}
	event, err := c.deps.Catalog.Event(ctx, eventID)
	if err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.event = event
	c.restartLocked(ctx)
	return c.snapshotLocked(), nil
}

// State returns the current snapshot
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SelectTicket picks a ticket type from the loaded event with quantity 1
func (c *Controller) SelectTicket(ticketTypeID string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepSelectingTicket {
		return c.snapshotLocked(), c.invalidTransition("select ticket")
	}
	if c.event == nil {
		return c.snapshotLocked(), domain.ErrCatalogNotLoaded
	}

	tt, ok := c.event.FindTicketType(ticketTypeID)
	if !ok {
		return c.rejectLocked(fmt.Errorf("%w: %s", domain.ErrTicketTypeNotFound, ticketTypeID))
	}
	if !tt.Selectable(c.deps.Now()) {
		return c.rejectLocked(fmt.Errorf("%w: %s", domain.ErrTicketNotSelectable, tt.Name))
	}

	c.selection = domain.BookingSelection{
		EventID:        c.event.ID,
		TicketType:     *tt,
		Quantity:       1,
		IdempotencyKey: c.deps.NewKey(),
	}
	c.moveLocked(context.Background(), StepEnteringPayment)
	return c.snapshotLocked(), nil
}

// SetQuantity changes the quantity. An out-of-range value keeps the prior
// quantity and sets an inline error. From Failed it returns to EnteringPayment.
func (c *Controller) SetQuantity(q int) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepEnteringPayment && c.step != StepFailed {
		return c.snapshotLocked(), c.invalidTransition("set quantity")
	}
	if !c.selection.TicketType.ValidQuantity(q) {
		return c.rejectLocked(fmt.Errorf("%w: must be between 1 and %d",
			domain.ErrInvalidQuantity, c.selection.TicketType.MaxQuantity()))
	}

	if q != c.selection.Quantity {
		c.selection.Quantity = q
		c.selection.IdempotencyKey = c.deps.NewKey()
	}
	c.editLocked()
	return c.snapshotLocked(), nil
}

// SetPaymentMethod records the payment method. From Failed it returns to EnteringPayment.
func (c *Controller) SetPaymentMethod(method string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepEnteringPayment && c.step != StepFailed {
		return c.snapshotLocked(), c.invalidTransition("set payment method")
	}
	m, err := domain.ParsePaymentMethod(method)
	if err != nil {
		return c.rejectLocked(err)
	}

	c.selection.PaymentMethod = m
	c.editLocked()
	return c.snapshotLocked(), nil
}

// Submit sends the selection. While a submission is in flight it is a no-op
// returning the Submitting snapshot. Otherwise it blocks until the call settles.
// Submission failures are reported through State.Err, the returned error only
// covers rejected transitions.
func (c *Controller) Submit(ctx context.Context) (State, error) {
	c.mu.Lock()
	switch c.step {
	case StepSubmitting:
		return c.duplicateLocked(ctx)
	case StepEnteringPayment:
	default:
		defer c.mu.Unlock()
		return c.snapshotLocked(), c.invalidTransition("submit")
	}
	if c.selection.PaymentMethod == "" {
		defer c.mu.Unlock()
		return c.rejectLocked(domain.ErrPaymentMethodRequired)
	}
	return c.beginLocked(ctx)
}

// Retry resubmits the same selection, idempotency key included, after a failure
func (c *Controller) Retry(ctx context.Context) (State, error) {
	c.mu.Lock()
	switch c.step {
	case StepSubmitting:
		return c.duplicateLocked(ctx)
	case StepFailed:
		return c.beginLocked(ctx)
	default:
		defer c.mu.Unlock()
		return c.snapshotLocked(), c.invalidTransition("retry")
	}
}

// Edit returns from Failed to EnteringPayment keeping the selection
func (c *Controller) Edit() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepFailed {
		return c.snapshotLocked(), c.invalidTransition("edit")
	}
	c.editLocked()
	return c.snapshotLocked(), nil
}

// Back abandons the selection and returns to ticket selection. From Failed
// the buyer uses Edit, Retry or Reset instead.
func (c *Controller) Back() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepEnteringPayment {
		return c.snapshotLocked(), c.invalidTransition("back")
	}
	c.restartLocked(context.Background())
	return c.snapshotLocked(), nil
}

// Reset starts a fresh session on the loaded event from any state. A
// submission still in flight is abandoned and its result discarded.
func (c *Controller) Reset() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restartLocked(context.Background())
	return c.snapshotLocked()
}

// Dismiss closes the confirmation and starts a fresh session
func (c *Controller) Dismiss() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != StepConfirmed {
		return c.snapshotLocked(), c.invalidTransition("dismiss")
	}
	c.restartLocked(context.Background())
	return c.snapshotLocked(), nil
}

// Submitting reports whether a reservation call is in flight
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step == StepSubmitting
}

// beginLocked enters Submitting, releases the lock for the single network
// call and settles the result if the session generation is unchanged.
func (c *Controller) beginLocked(ctx context.Context) (State, error) {
	sel := c.selection
	c.err = nil
	c.redirect = false
	c.moveLocked(ctx, StepSubmitting)
	gen := c.generation
	c.mu.Unlock()

	// the reservation outlives a client that stops waiting for it
	callCtx := context.WithoutCancel(ctx)
	result, err := c.deps.Submitter.Submit(callCtx, sel)

	c.mu.Lock()
	if gen != c.generation {
		state := c.snapshotLocked()
		c.mu.Unlock()
		staleSettlementsTotal.Inc(callCtx)
		c.log.Ctx(callCtx).Info("Discarded reservation result for abandoned session",
			zap.String("event_id", sel.EventID),
			zap.Bool("succeeded", err == nil),
		)
		return state, nil
	}

	var n notify.Notification
	if err != nil {
		c.err = err
		c.redirect = domain.IsAuthRequiredError(err)
		c.moveLocked(callCtx, StepFailed)
		n = notify.Notification{Severity: notify.SeverityError, Message: domain.UserMessage(err)}
	} else {
		c.result = result
		c.moveLocked(callCtx, StepConfirmed)
		n = notify.Notification{
			Severity: notify.SeveritySuccess,
			Message:  "Reservation confirmed. Number: " + result.ReservationNumber,
		}
	}
	state := c.snapshotLocked()
	c.mu.Unlock()

	n.CreatedAt = c.deps.Now()
	c.deps.Notifier.Notify(callCtx, n)
	return state, nil
}

func (c *Controller) duplicateLocked(ctx context.Context) (State, error) {
	state := c.snapshotLocked()
	c.mu.Unlock()
	duplicateSubmitsTotal.Inc(ctx)
	c.log.Ctx(ctx).Debug("Ignored submit while a reservation is in flight")
	return state, nil
}

func (c *Controller) editLocked() {
	c.inline = nil
	if c.step == StepFailed {
		c.err = nil
		c.redirect = false
		c.moveLocked(context.Background(), StepEnteringPayment)
	}
}

func (c *Controller) restartLocked(ctx context.Context) {
	c.generation++
	c.selection = domain.BookingSelection{}
	c.result = nil
	c.err = nil
	c.inline = nil
	c.redirect = false
	c.moveLocked(ctx, StepSelectingTicket)
}

func (c *Controller) moveLocked(ctx context.Context, to Step) {
	c.step = to
	c.inline = nil
	transitionsTotal.Inc(ctx, attribute.String("step", string(to)))
}

func (c *Controller) rejectLocked(err error) (State, error) {
	c.inline = err
	return c.snapshotLocked(), err
}

func (c *Controller) invalidTransition(action string) error {
	return fmt.Errorf("%w: cannot %s while %s", domain.ErrInvalidTransition, action, c.step)
}

func (c *Controller) snapshotLocked() State {
	s := State{
		Step:        c.step,
		Event:       c.event,
		InlineError: c.inline,
	}
	switch c.step {
	case StepEnteringPayment, StepSubmitting, StepFailed:
		sel := c.selection
		sel.TicketType.Benefits = append([]string(nil), c.selection.TicketType.Benefits...)
		s.Selection = &sel
	case StepConfirmed:
		s.Result = c.result
	}
	if c.step == StepFailed {
		s.Err = c.err
		s.RedirectToAuth = c.redirect
	}
	return s
}
