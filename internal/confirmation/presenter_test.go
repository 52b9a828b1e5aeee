package confirmation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/pricing"
	"github.com/prohmpiriya/ticket-storefront/internal/wizard"
)

type fakeWizard struct {
	state     wizard.State
	dismissFn func() (wizard.State, error)
}

func (f *fakeWizard) State() wizard.State { return f.state }

func (f *fakeWizard) Dismiss() (wizard.State, error) { return f.dismissFn() }

type generatorFunc func(ctx context.Context, view View, ticket TicketView) (*Document, error)

func (g generatorFunc) Generate(ctx context.Context, view View, ticket TicketView) (*Document, error) {
	return g(ctx, view, ticket)
}

func testEvent() *domain.Event {
	start := time.Date(2026, 6, 21, 20, 30, 0, 0, time.UTC)
	return &domain.Event{
		ID:        "evt-1",
		Name:      "Jazz Night",
		Venue:     "Salle Pleyel",
		StartDate: &start,
		TicketTypes: []domain.TicketType{
			{ID: "std", Name: "Standard", Price: 25, Currency: "EUR"},
		},
	}
}

func testResult() *domain.ReservationResult {
	return &domain.ReservationResult{
		ReservationNumber: "R-0001",
		Tickets: []domain.IssuedTicket{
			{TicketNumber: "TKT-1", TicketTypeID: "std", Price: 25, Currency: "EUR"},
			{TicketNumber: "TKT-2", TicketTypeID: "std", Price: 25, Currency: "EUR", IsUsed: true},
		},
		TotalAmount: 50,
		Currency:    "EUR",
	}
}

func confirmedWizard() *fakeWizard {
	return &fakeWizard{state: wizard.State{Step: wizard.StepConfirmed, Event: testEvent(), Result: testResult()}}
}

func newPresenter(docs DocumentGenerator) *Presenter {
	return NewPresenter(pricing.NewCalculator("fr-FR"), docs, nil)
}

func TestPresenter_Present(t *testing.T) {
	event := testEvent()

	view := newPresenter(TextDocumentGenerator{}).Present(testResult(), &event.TicketTypes[0], event)

	assert.Equal(t, "R-0001", view.ReservationNumber)
	assert.Equal(t, "50,00\u00a0€", view.Total)
	assert.Equal(t, "Jazz Night", view.Event.Name)
	require.Len(t, view.Tickets, 2)
	assert.Equal(t, "TKT-1", view.Tickets[0].TicketNumber)
	assert.Equal(t, LabelValid, view.Tickets[0].Validity)
	assert.Equal(t, "Standard", view.Tickets[0].TicketTypeName)
	assert.Equal(t, "25,00\u00a0€", view.Tickets[0].Price)
	assert.Equal(t, LabelUsed, view.Tickets[1].Validity)
	assert.True(t, view.Tickets[1].Used)
}

func TestPresenter_Present_WithoutCatalog(t *testing.T) {
	view := newPresenter(TextDocumentGenerator{}).Present(testResult(), nil, nil)

	assert.Equal(t, "R-0001", view.ReservationNumber)
	assert.Empty(t, view.Event.Name)
	assert.Empty(t, view.Tickets[0].TicketTypeName)
	assert.Len(t, view.Tickets, 2)
}

func TestPresenter_FromWizard_RequiresConfirmed(t *testing.T) {
	w := &fakeWizard{state: wizard.State{Step: wizard.StepSubmitting}}

	_, err := newPresenter(TextDocumentGenerator{}).FromWizard(w)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPresenter_Download(t *testing.T) {
	doc, err := newPresenter(TextDocumentGenerator{}).Download(context.Background(), confirmedWizard(), "TKT-2")

	require.NoError(t, err)
	assert.Equal(t, "billet-TKT-2.txt", doc.Filename)
	assert.Equal(t, "text/plain; charset=utf-8", doc.ContentType)
	content := string(doc.Content)
	assert.Contains(t, content, "BILLET TKT-2")
	assert.Contains(t, content, "R-0001")
	assert.Contains(t, content, "Jazz Night")
	assert.Contains(t, content, "21/06/2026 20:30")
	assert.Contains(t, content, LabelUsed)
}

func TestPresenter_Download_UnknownTicket(t *testing.T) {
	_, err := newPresenter(TextDocumentGenerator{}).Download(context.Background(), confirmedWizard(), "TKT-9")

	assert.ErrorIs(t, err, domain.ErrTicketNotIssued)
}

func TestPresenter_Download_GeneratorFailure(t *testing.T) {
	boom := errors.New("renderer offline")
	docs := generatorFunc(func(context.Context, View, TicketView) (*Document, error) {
		return nil, boom
	})

	_, err := newPresenter(docs).Download(context.Background(), confirmedWizard(), "TKT-1")

	assert.ErrorIs(t, err, boom)
}

func TestPresenter_ReturnToStart(t *testing.T) {
	dismissed := false
	w := confirmedWizard()
	w.dismissFn = func() (wizard.State, error) {
		dismissed = true
		return wizard.State{Step: wizard.StepSelectingTicket}, nil
	}

	state, err := newPresenter(TextDocumentGenerator{}).ReturnToStart(w)

	require.NoError(t, err)
	assert.True(t, dismissed)
	assert.Equal(t, wizard.StepSelectingTicket, state.Step)
}
