package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewToken creates a single-use credit grant. The code is system-generated
// and never user-suppliable.
func NewToken(amount decimal.Decimal, expiry time.Time, createdBy uuid.UUID) (Token, error) {
	if !amount.IsPositive() {
		return Token{}, ErrInvalidInput
	}
	if !expiry.After(time.Now()) {
		return Token{}, ErrInvalidInput
	}
	return Token{
		ID:         uuid.New(),
		Code:       uuid.New(),
		Amount:     amount,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now(),
		ExpiryDate: expiry,
	}, nil
}

// Redeemable checks the token's preconditions at redemption time. The used
// flag is checked before expiry so a double redeem is reported as such even
// after the token lapses.
func (t Token) Redeemable(now time.Time) error {
	if t.Used {
		return ErrTokenAlreadyUsed
	}
	if !t.ExpiryDate.After(now) {
		return ErrTokenExpired
	}
	return nil
}
