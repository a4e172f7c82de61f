package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicketCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := NewTicketCode()
		require.Len(t, code, CodeLength)
		require.True(t, ValidTicketCode(code), "generated code %q must be valid", code)
		require.False(t, seen[code], "codes must not repeat in a small sample")
		seen[code] = true
	}
}

func TestNewTicketCodeUniformDistribution(t *testing.T) {
	// Naive byte%36 mapping favors the first 256%36 = 4 alphabet characters
	// by about 14%. Count characters over a large sample and require every
	// character to sit within 10% of the uniform mean, which such a bias
	// cannot pass.
	counts := make(map[byte]int)
	const samples = 30000
	for i := 0; i < samples; i++ {
		code := NewTicketCode()
		for j := 0; j < len(code); j++ {
			counts[code[j]]++
		}
	}

	mean := float64(samples*CodeLength) / float64(len(codeAlphabet))
	for i := 0; i < len(codeAlphabet); i++ {
		c := codeAlphabet[i]
		got := float64(counts[c])
		assert.InDelta(t, mean, got, mean*0.10, "character %q is over- or under-represented", string(c))
	}
}

func TestValidTicketCode(t *testing.T) {
	assert.True(t, ValidTicketCode("ABCDEFGHIJ1234567"))
	assert.False(t, ValidTicketCode(""))
	assert.False(t, ValidTicketCode("ABC"))
	assert.False(t, ValidTicketCode("abcdefghij1234567"), "lowercase is rejected")
	assert.False(t, ValidTicketCode("ABCDEFGHIJ123456!"))
	assert.False(t, ValidTicketCode("ABCDEFGHIJ12345678"), "too long")
}

func TestScan(t *testing.T) {
	tests := []struct {
		name      string
		status    TicketStatus
		wantNext  TicketStatus
		wantValid bool
		wantAudio string
	}{
		{"purchased grants and consumes", TicketPurchased, TicketUsed, true, "success"},
		{"used rejects", TicketUsed, TicketUsed, false, "error"},
		{"expired rejects", TicketExpired, TicketExpired, false, "error"},
		{"available rejects", TicketAvailable, TicketAvailable, false, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Scan(tt.status)
			assert.Equal(t, tt.wantNext, d.Next)
			assert.Equal(t, tt.wantValid, d.Valid)
			assert.Equal(t, tt.wantAudio, d.AudioFeedback)
			assert.NotEmpty(t, d.Message)
		})
	}
}

func TestScanIsIdempotentAfterFirstGrant(t *testing.T) {
	first := Scan(TicketPurchased)
	require.True(t, first.Valid)

	second := Scan(first.Next)
	assert.False(t, second.Valid)
	assert.Equal(t, TicketUsed, second.Next)
	assert.Contains(t, second.Message, "already been used")
}
