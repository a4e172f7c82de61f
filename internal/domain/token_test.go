package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	staff := uuid.New()
	expiry := time.Now().Add(24 * time.Hour)

	token, err := NewToken(decimal.NewFromInt(50), expiry, staff)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, token.Code)
	assert.Equal(t, staff, token.CreatedBy)
	assert.False(t, token.Used)

	_, err = NewToken(decimal.Zero, expiry, staff)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewToken(decimal.NewFromInt(-5), expiry, staff)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewToken(decimal.NewFromInt(50), time.Now().Add(-time.Hour), staff)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTokenRedeemable(t *testing.T) {
	now := time.Now()

	fresh := Token{ExpiryDate: now.Add(time.Hour)}
	assert.NoError(t, fresh.Redeemable(now))

	used := Token{Used: true, ExpiryDate: now.Add(time.Hour)}
	assert.ErrorIs(t, used.Redeemable(now), ErrTokenAlreadyUsed)

	expired := Token{ExpiryDate: now.Add(-time.Minute)}
	assert.ErrorIs(t, expired.Redeemable(now), ErrTokenExpired)

	// A used token that has also lapsed still reports the double redeem.
	both := Token{Used: true, ExpiryDate: now.Add(-time.Minute)}
	assert.ErrorIs(t, both.Redeemable(now), ErrTokenAlreadyUsed)
}
