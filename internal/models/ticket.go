package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketDocument is everything printed on an e-ticket.
type TicketDocument struct {
	BookingID     string
	EventName     string
	EventDate     time.Time
	EventLocation string
	BuyerName     string
	BuyerEmail    string
	TierName      string
	Tickets       int
	TotalPrice    decimal.Decimal
	PaidAt        time.Time
}

func NewTicketDocument(b *Booking, e *Event) TicketDocument {
	doc := TicketDocument{
		BookingID:  b.ID,
		BuyerName:  b.BuyerName,
		BuyerEmail: b.BuyerEmail,
		TierName:   b.TierName,
		Tickets:    b.Tickets,
		TotalPrice: b.TotalPrice,
	}
	if b.PaidAt != nil {
		doc.PaidAt = *b.PaidAt
	}
	if e != nil {
		doc.EventName = e.Name
		doc.EventDate = e.Date
		doc.EventLocation = e.Location
	}
	return doc
}

// TicketEmail is the confirmation mail with the PDF attached.
type TicketEmail struct {
	To        string
	Ticket    TicketDocument
	PDF       []byte
	TicketURL string
}
