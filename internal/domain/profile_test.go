package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilePIN(t *testing.T) {
	var p Profile
	assert.False(t, p.CheckPIN("1234"), "no PIN set yet")

	require.NoError(t, p.SetPIN("1234"))
	assert.True(t, p.CheckPIN("1234"))
	assert.False(t, p.CheckPIN("4321"))
	assert.NotEqual(t, "1234", p.PINHash, "PIN is never stored raw")
}

func TestProfileOTP(t *testing.T) {
	var p Profile
	now := time.Now()

	code := p.IssueOTP(now)
	require.Len(t, code, 6)

	assert.False(t, p.CheckOTP("000000", now), "wrong code rejected")

	assert.True(t, p.CheckOTP(code, now.Add(time.Minute)))
	assert.False(t, p.CheckOTP(code, now.Add(time.Minute)), "code is single-use")

	code = p.IssueOTP(now)
	assert.False(t, p.CheckOTP(code, now.Add(10*time.Minute)), "code lapses after five minutes")
}

func TestProfileCanAfford(t *testing.T) {
	p := Profile{Credits: decimal.NewFromFloat(20.50)}
	assert.True(t, p.CanAfford(decimal.NewFromFloat(20.50)))
	assert.True(t, p.CanAfford(decimal.NewFromInt(10)))
	assert.False(t, p.CanAfford(decimal.NewFromFloat(20.51)))
}

func TestProfileIsStaff(t *testing.T) {
	assert.True(t, (&Profile{Role: RoleStaff}).IsStaff())
	assert.False(t, (&Profile{Role: RoleCustomer}).IsStaff())
}
