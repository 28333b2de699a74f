package template

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"ms-booking/internal/models"
)

const (
	fontRegular = "goregular"
	fontBold    = "gobold"
	marginX     = 40.0
)

type QRSource interface {
	Generate(bookingID string) ([]byte, error)
}

// TicketPDFGenerator renders one A4 e-ticket per booking using the embedded Go fonts.
type TicketPDFGenerator struct {
	qr QRSource
}

func NewTicketPDFGenerator(qr QRSource) *TicketPDFGenerator {
	return &TicketPDFGenerator{qr: qr}
}

// RenderTicket draws the ticket and its QR code (payload: booking id).
func (g *TicketPDFGenerator) RenderTicket(doc models.TicketDocument) ([]byte, error) {
	qrCode, err := g.qr.Generate(doc.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR: %w", err)
	}
	return g.Generate(doc, qrCode)
}

func (g *TicketPDFGenerator) Generate(doc models.TicketDocument, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFontData(fontRegular, goregular.TTF); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	if err := pdf.AddTTFFontData(fontBold, gobold.TTF); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	if err := addHeader(pdf, doc); err != nil {
		return nil, err
	}
	if err := addTicketInfo(pdf, doc); err != nil {
		return nil, err
	}
	if len(qrCode) > 0 {
		if err := addQRCode(pdf, qrCode); err != nil {
			return nil, err
		}
	}
	if err := addFooter(pdf); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func addHeader(pdf *gopdf.GoPdf, doc models.TicketDocument) error {
	if err := pdf.SetFont(fontBold, "", 22); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(marginX, 40)
	if err := pdf.Cell(nil, "E-TICKET"); err != nil {
		return err
	}

	if err := pdf.SetFont(fontBold, "", 16); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(marginX, 75)
	if err := pdf.Cell(nil, doc.EventName); err != nil {
		return err
	}

	pdf.SetLineWidth(1)
	pdf.Line(marginX, 100, gopdf.PageSizeA4.W-marginX, 100)
	return nil
}

func addTicketInfo(pdf *gopdf.GoPdf, doc models.TicketDocument) error {
	if err := pdf.SetFont(fontRegular, "", 12); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}

	info := []struct {
		Label string
		Value string
	}{
		{"Booking ID", doc.BookingID},
		{"Date", formatDate(doc)},
		{"Location", doc.EventLocation},
		{"Name", doc.BuyerName},
		{"Email", doc.BuyerEmail},
		{"Ticket type", doc.TierName},
		{"Quantity", fmt.Sprintf("%d", doc.Tickets)},
		{"Total paid", FormatRupiah(doc.TotalPrice)},
	}

	pdf.SetXY(marginX, 115)
	for _, item := range info {
		pdf.SetX(marginX)
		if err := pdf.Cell(nil, item.Label+": "+item.Value); err != nil {
			return err
		}
		pdf.Br(20)
	}
	return nil
}

func addQRCode(pdf *gopdf.GoPdf, qrCode []byte) error {
	img, err := png.Decode(bytes.NewReader(qrCode))
	if err != nil {
		return fmt.Errorf("failed to decode QR code: %w", err)
	}

	y := pdf.GetY() + 20
	rect := &gopdf.Rect{W: 180, H: 180}
	if err := pdf.ImageFrom(img, (gopdf.PageSizeA4.W-rect.W)/2, y, rect); err != nil {
		return fmt.Errorf("failed to draw QR code: %w", err)
	}
	pdf.SetY(y + rect.H + 10)
	return nil
}

func addFooter(pdf *gopdf.GoPdf) error {
	if err := pdf.SetFont(fontRegular, "", 10); err != nil {
		return fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetX(marginX)
	if err := pdf.Cell(nil, "Show this QR code at the entrance. Each ticket can be checked in once."); err != nil {
		return err
	}
	return nil
}

func formatDate(doc models.TicketDocument) string {
	if doc.EventDate.IsZero() {
		return "-"
	}
	return doc.EventDate.Format("Mon, 02 Jan 2006 15:04 MST")
}

// FormatRupiah renders 250000 as "Rp 250.000".
func FormatRupiah(amount decimal.Decimal) string {
	s := amount.Round(0).Abs().String()
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if amount.Round(0).IsNegative() {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}
