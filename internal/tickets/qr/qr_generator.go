package qr

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

const defaultSize = 256

// QRGenerator encodes booking ids as PNG QR codes. Scanners submit the
// decoded id straight to check-in.
type QRGenerator struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewQRGenerator() *QRGenerator {
	return &QRGenerator{size: defaultSize, level: qrcode.Medium}
}

func (q *QRGenerator) Generate(bookingID string) ([]byte, error) {
	if bookingID == "" {
		return nil, errors.New("qr payload is empty")
	}
	return qrcode.Encode(bookingID, q.level, q.size)
}
