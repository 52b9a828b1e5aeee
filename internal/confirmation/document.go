package confirmation

import (
	"bytes"
	"context"
	"fmt"
)

// TextDocumentGenerator renders tickets as plain text
type TextDocumentGenerator struct{}

func (TextDocumentGenerator) Generate(_ context.Context, view View, ticket TicketView) (*Document, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "BILLET %s\n", ticket.TicketNumber)
	fmt.Fprintf(&buf, "Réservation : %s\n", view.ReservationNumber)
	if view.Event.Name != "" {
		fmt.Fprintf(&buf, "Événement : %s\n", view.Event.Name)
	}
	if view.Event.Venue != "" {
		fmt.Fprintf(&buf, "Lieu : %s\n", view.Event.Venue)
	}
	if view.Event.StartDate != nil {
		fmt.Fprintf(&buf, "Date : %s\n", view.Event.StartDate.Format("02/01/2006 15:04"))
	}
	if ticket.TicketTypeName != "" {
		fmt.Fprintf(&buf, "Catégorie : %s\n", ticket.TicketTypeName)
	}
	fmt.Fprintf(&buf, "Prix : %s\n", ticket.Price)
	fmt.Fprintf(&buf, "Statut : %s\n", ticket.Validity)

	return &Document{
		Filename:    fmt.Sprintf("billet-%s.txt", ticket.TicketNumber),
		ContentType: "text/plain; charset=utf-8",
		Content:     buf.Bytes(),
	}, nil
}
