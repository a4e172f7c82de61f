package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// otpTTL bounds how long a one-time code stays valid.
const otpTTL = 5 * time.Minute

// HashSecret hashes a password or PIN for storage.
func HashSecret(raw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckSecret compares a raw password or PIN against its stored hash.
func CheckSecret(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

// SetPIN stores the bcrypt hash of a raw PIN on the profile.
func (p *Profile) SetPIN(raw string) error {
	h, err := HashSecret(raw)
	if err != nil {
		return err
	}
	p.PINHash = h
	return nil
}

// CheckPIN verifies a raw PIN against the stored hash.
func (p *Profile) CheckPIN(raw string) bool {
	return p.PINHash != "" && CheckSecret(p.PINHash, raw)
}

// IssueOTP generates a fresh 6-digit one-time code valid for five minutes
// and records it on the profile.
func (p *Profile) IssueOTP(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		panic(err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	expiry := now.Add(otpTTL)
	p.OTPCode = code
	p.OTPExpiry = &expiry
	return code
}

// CheckOTP verifies a one-time code and consumes it on success.
func (p *Profile) CheckOTP(code string, now time.Time) bool {
	if p.OTPCode == "" || p.OTPExpiry == nil || now.After(*p.OTPExpiry) {
		return false
	}
	if p.OTPCode != code {
		return false
	}
	p.OTPCode = ""
	p.OTPExpiry = nil
	return true
}

// CanAfford reports whether the profile's balance covers price.
func (p *Profile) CanAfford(price decimal.Decimal) bool {
	return p.Credits.GreaterThanOrEqual(price)
}

func (p *Profile) IsStaff() bool {
	return p.Role == RoleStaff
}
