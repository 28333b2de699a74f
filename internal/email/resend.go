package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	tickettemplate "ms-booking/internal/tickets/template"
)

var ticketMail = template.Must(template.New("ticket").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Your e-ticket</title></head>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Your ticket for {{.EventName}}</h2>
  <p>Hi {{.BuyerName}},</p>
  <p>Your payment has been confirmed. Your e-ticket is attached to this email{{if .TicketURL}} and can also be downloaded <a href="{{.TicketURL}}">here</a>{{end}}.</p>
  <table cellpadding="4">
    <tr><td>Booking ID</td><td><strong>{{.BookingID}}</strong></td></tr>
    <tr><td>Date</td><td>{{.EventDate}}</td></tr>
    <tr><td>Location</td><td>{{.EventLocation}}</td></tr>
    <tr><td>Ticket type</td><td>{{.TierName}} × {{.Tickets}}</td></tr>
    <tr><td>Total paid</td><td>{{.Total}}</td></tr>
  </table>
  <p>Show the QR code in the PDF at the entrance.</p>
</body>
</html>`))

type mailView struct {
	EventName     string
	BuyerName     string
	BookingID     string
	EventDate     string
	EventLocation string
	TierName      string
	Tickets       int
	Total         string
	TicketURL     string
}

// Mailer sends ticket confirmations through Resend. A Mailer without a
// client only logs, so local runs need no API key.
type Mailer struct {
	client *resend.Client
	from   string
	logger *logger.Logger
}

func NewMailer(cfg config.EmailConfig, l *logger.Logger) *Mailer {
	m := &Mailer{from: cfg.From, logger: l}
	if cfg.Enabled && cfg.ResendAPIKey != "" {
		m.client = resend.NewClient(cfg.ResendAPIKey)
	} else {
		l.Warn("EMAIL", "Resend disabled or API key missing; ticket emails will be skipped")
	}
	return m
}

// NewMailerWithClient is used when the caller owns the Resend client.
func NewMailerWithClient(client *resend.Client, from string, l *logger.Logger) *Mailer {
	return &Mailer{client: client, from: from, logger: l}
}

func (m *Mailer) SendTicket(ctx context.Context, msg models.TicketEmail) error {
	if m.client == nil {
		m.logger.Info("EMAIL", fmt.Sprintf("Skipping ticket email for booking %s", msg.Ticket.BookingID))
		return nil
	}

	html, err := renderTicketMail(msg)
	if err != nil {
		return err
	}

	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: fmt.Sprintf("Your e-ticket for %s", msg.Ticket.EventName),
		Html:    html,
	}
	if len(msg.PDF) > 0 {
		req.Attachments = []*resend.Attachment{{
			Content:  msg.PDF,
			Filename: fmt.Sprintf("ticket-%s.pdf", msg.Ticket.BookingID),
		}}
	}

	sent, err := m.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("resend send for booking %s: %w", msg.Ticket.BookingID, err)
	}

	m.logger.Info("EMAIL", fmt.Sprintf("Ticket email %s sent for booking %s", sent.Id, msg.Ticket.BookingID))
	return nil
}

func renderTicketMail(msg models.TicketEmail) (string, error) {
	doc := msg.Ticket
	view := mailView{
		EventName:     doc.EventName,
		BuyerName:     doc.BuyerName,
		BookingID:     doc.BookingID,
		EventLocation: doc.EventLocation,
		TierName:      doc.TierName,
		Tickets:       doc.Tickets,
		Total:         tickettemplate.FormatRupiah(doc.TotalPrice),
		TicketURL:     msg.TicketURL,
	}
	if !doc.EventDate.IsZero() {
		view.EventDate = doc.EventDate.Format("Mon, 02 Jan 2006 15:04 MST")
	}

	var buf bytes.Buffer
	if err := ticketMail.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render ticket email: %w", err)
	}
	return buf.String(), nil
}
