package domain

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CodeLength is the fixed length of a ticket's unique code.
const CodeLength = 17

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// codeRejectAbove is the largest multiple of len(codeAlphabet) that fits in
// a byte. Bytes at or above it are rejected so every alphabet character is
// equally likely.
const codeRejectAbove = 256 - 256%len(codeAlphabet)

// NewTicketCode returns a fresh 17-character uppercase alphanumeric code.
// Uniqueness against existing tickets is enforced by the storage layer.
func NewTicketCode() string {
	buf := make([]byte, 0, CodeLength)
	raw := make([]byte, CodeLength)
	for len(buf) < CodeLength {
		if _, err := rand.Read(raw); err != nil {
			panic(err) // crypto/rand never fails on supported platforms
		}
		for _, b := range raw {
			if int(b) >= codeRejectAbove {
				continue
			}
			buf = append(buf, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(buf) == CodeLength {
				break
			}
		}
	}
	return string(buf)
}

// ValidTicketCode reports whether code has the shape of a ticket code.
func ValidTicketCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// NewTicket creates an AVAILABLE, unowned ticket for an event.
func NewTicket(eventID uuid.UUID) Ticket {
	return Ticket{
		ID:         uuid.New(),
		EventID:    eventID,
		UniqueCode: NewTicketCode(),
		Status:     TicketAvailable,
		CreatedAt:  time.Now(),
	}
}

// ScanDecision is the outcome of running one ticket through the validator
// state machine. AudioFeedback drives the scanner's feedback sound.
type ScanDecision struct {
	Next          TicketStatus
	Valid         bool
	Message       string
	AudioFeedback string
}

// Scan applies the validator state machine to the ticket's current status.
// Only PURCHASED grants access and flips the ticket to USED; every other
// state is a no-op with a machine-readable rejection.
func Scan(status TicketStatus) ScanDecision {
	switch status {
	case TicketPurchased:
		return ScanDecision{
			Next:          TicketUsed,
			Valid:         true,
			Message:       "Ticket is valid. Access granted!",
			AudioFeedback: "success",
		}
	case TicketUsed:
		return ScanDecision{
			Next:          TicketUsed,
			Message:       "This ticket has already been used.",
			AudioFeedback: "error",
		}
	case TicketExpired:
		return ScanDecision{
			Next:          TicketExpired,
			Message:       "This ticket has expired.",
			AudioFeedback: "error",
		}
	default:
		return ScanDecision{
			Next:          TicketAvailable,
			Message:       "This ticket has not been purchased.",
			AudioFeedback: "error",
		}
	}
}

// PurchaseReceipt is the success payload of a pooled purchase.
type PurchaseReceipt struct {
	TicketID   uuid.UUID
	UniqueCode string
	EventName  string
	NewBalance decimal.Decimal
}

// ValidationResult is what a scanner receives for a known ticket code.
type ValidationResult struct {
	Code          string
	EventName     string
	EventDate     time.Time
	UserName      string
	Status        TicketStatus
	Valid         bool
	Message       string
	AudioFeedback string
}
