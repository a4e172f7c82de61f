package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketAvailable TicketStatus = "AVAILABLE"
	TicketPurchased TicketStatus = "PURCHASED"
	TicketUsed      TicketStatus = "USED"
	TicketExpired   TicketStatus = "EXPIRED"
)

type LedgerType string

const (
	LedgerPurchase       LedgerType = "PURCHASE"
	LedgerRedemption     LedgerType = "REDEMPTION"
	LedgerTicketPurchase LedgerType = "TICKET_PURCHASE"
)

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
)

type Event struct {
	ID                 uuid.UUID
	Name               string
	Date               time.Time
	Location           string
	Price              decimal.Decimal
	TicketCount        int
	MaxPurchasePerUser int
}

type Ticket struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	UserID      *uuid.UUID
	UniqueCode  string
	Status      TicketStatus
	QRPath      string
	CreatedAt   time.Time
	PurchasedAt *time.Time
}

type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Profile struct {
	UserID    uuid.UUID
	Phone     string
	Role      string
	Credits   decimal.Decimal
	PINHash   string
	OTPCode   string
	OTPExpiry *time.Time
}

type Token struct {
	ID         uuid.UUID
	Code       uuid.UUID
	Amount     decimal.Decimal
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
	ExpiryDate time.Time
	Used       bool
	UsedBy     *uuid.UUID
	UsedAt     *time.Time
}

// LedgerEntry is an append-only audit record of a balance-affecting
// operation. Rows are written once and never updated or deleted.
type LedgerEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Type      LedgerType
	Timestamp time.Time
}

type Announcement struct {
	ID         uuid.UUID
	Title      string
	Content    string
	Priority   string
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
	IsActive   bool
	ValidUntil *time.Time
}
