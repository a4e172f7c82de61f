// Package qr renders ticket QR artifacts. Scanners decode the payload and
// hand the embedded code to the validation endpoint.
package qr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

type Generator struct {
	dir string
}

func NewGenerator(dir string) (*Generator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Generator{dir: dir}, nil
}

// Payload is what gets encoded into the image, keyed on (ticket id, code).
func Payload(ticketID uuid.UUID, code string) string {
	return fmt.Sprintf("Ticket ID: %s, Code: %s", ticketID, code)
}

// Generate writes the PNG for one ticket and returns its path.
func (g *Generator) Generate(ticketID uuid.UUID, code string) (string, error) {
	path := filepath.Join(g.dir, fmt.Sprintf("ticket_%s.png", code))
	if err := qrcode.WriteFile(Payload(ticketID, code), qrcode.Low, 256, path); err != nil {
		return "", err
	}
	return path, nil
}
