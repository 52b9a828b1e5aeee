// Package confirmation renders a confirmed reservation and its ticket documents.
package confirmation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/pricing"
	"github.com/prohmpiriya/ticket-storefront/internal/wizard"
	"github.com/prohmpiriya/ticket-storefront/pkg/logger"
)

// Validity labels shown next to each ticket
const (
	LabelValid = "Valide"
	LabelUsed  = "Utilisé"
)

// TicketView is one issued ticket as displayed on the confirmation page
type TicketView struct {
	TicketNumber   string `json:"ticketNumber"`
	TicketTypeID   string `json:"ticketTypeId"`
	TicketTypeName string `json:"ticketTypeName"`
	Price          string `json:"price"`
	Validity       string `json:"validity"`
	Used           bool   `json:"used"`
}

// EventSummary identifies the booked event
type EventSummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Venue     string     `json:"venue,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
}

// View is the confirmation page model
type View struct {
	ReservationNumber string       `json:"reservationNumber"`
	Tickets           []TicketView `json:"tickets"`
	Total             string       `json:"total"`
	TotalAmount       float64      `json:"totalAmount"`
	Currency          string       `json:"currency"`
	Event             EventSummary `json:"event"`
}

// Document is a downloadable ticket
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// DocumentGenerator renders a single ticket for download
type DocumentGenerator interface {
	Generate(ctx context.Context, view View, ticket TicketView) (*Document, error)
}

// Wizard is the part of the booking wizard the presenter reads and resets
type Wizard interface {
	State() wizard.State
	Dismiss() (wizard.State, error)
}

type Presenter struct {
	calc *pricing.Calculator
	docs DocumentGenerator
	log  *logger.Logger
}

func NewPresenter(calc *pricing.Calculator, docs DocumentGenerator, log *logger.Logger) *Presenter {
	if log == nil {
		log = logger.Nop()
	}
	return &Presenter{calc: calc, docs: docs, log: log}
}

// Present builds the confirmation view. ticketType and event may be nil when
// the catalog entry is no longer known.
func (p *Presenter) Present(result *domain.ReservationResult, ticketType *domain.TicketType, event *domain.Event) View {
	view := View{
		ReservationNumber: result.ReservationNumber,
		Tickets:           make([]TicketView, 0, len(result.Tickets)),
		Total:             p.calc.FormatAmount(result.TotalAmount, result.Currency),
		TotalAmount:       result.TotalAmount,
		Currency:          result.Currency,
	}
	if event != nil {
		view.Event = EventSummary{ID: event.ID, Name: event.Name, Venue: event.Venue, StartDate: event.StartDate}
	}

	for _, t := range result.Tickets {
		tv := TicketView{
			TicketNumber: t.TicketNumber,
			TicketTypeID: t.TicketTypeID,
			Price:        p.calc.FormatAmount(t.Price, t.Currency),
			Validity:     LabelValid,
			Used:         t.IsUsed,
		}
		if t.IsUsed {
			tv.Validity = LabelUsed
		}
		tv.TicketTypeName = ticketTypeName(t.TicketTypeID, ticketType, event)
		view.Tickets = append(view.Tickets, tv)
	}
	return view
}

// FromWizard presents the wizard's confirmed reservation
func (p *Presenter) FromWizard(w Wizard) (View, error) {
	state := w.State()
	if state.Step != wizard.StepConfirmed || state.Result == nil {
		return View{}, fmt.Errorf("%w: no confirmed reservation", domain.ErrInvalidTransition)
	}
	return p.Present(state.Result, ticketTypeOf(state), state.Event), nil
}

// Download renders the ticket with the given number from the wizard's confirmed reservation
func (p *Presenter) Download(ctx context.Context, w Wizard, ticketNumber string) (*Document, error) {
	view, err := p.FromWizard(w)
	if err != nil {
		return nil, err
	}
	for _, t := range view.Tickets {
		if t.TicketNumber != ticketNumber {
			continue
		}
		doc, err := p.docs.Generate(ctx, view, t)
		if err != nil {
			p.log.Ctx(ctx).Error("Failed to generate ticket document",
				zap.String("reservation_number", view.ReservationNumber),
				zap.String("ticket_number", ticketNumber),
				zap.Error(err),
			)
			return nil, fmt.Errorf("generate ticket %s: %w", ticketNumber, err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrTicketNotIssued, ticketNumber)
}

// ReturnToStart dismisses the confirmation and resets the wizard to ticket selection
func (p *Presenter) ReturnToStart(w Wizard) (wizard.State, error) {
	return w.Dismiss()
}

func ticketTypeOf(state wizard.State) *domain.TicketType {
	if state.Event == nil || len(state.Result.Tickets) == 0 {
		return nil
	}
	tt, ok := state.Event.FindTicketType(state.Result.Tickets[0].TicketTypeID)
	if !ok {
		return nil
	}
	return tt
}

func ticketTypeName(id string, ticketType *domain.TicketType, event *domain.Event) string {
	if ticketType != nil && ticketType.ID == id {
		return ticketType.Name
	}
	if event != nil {
		if tt, ok := event.FindTicketType(id); ok {
			return tt.Name
		}
	}
	return ""
}
