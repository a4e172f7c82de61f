package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tickethub/tickethub/internal/observability"
)

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	return true
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	return false
}

func TestRouterIdempotencyKeyScopedToPurchase(t *testing.T) {
	h, _, tokens, _, _ := newTestHandlers()
	tokens.newBalance = decimal.NewFromInt(10)
	router := SetupRouter(h, allowAllLimiter{}, observability.NewLogger())

	// Redeem stores no reply, so it must not demand a key.
	body := []byte(`{"token_code":"` + uuid.NewString() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/redeem-token", bytes.NewBuffer(body))
	req.Header.Set("X-User-ID", uuid.NewString())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "redeem without an Idempotency-Key must pass: %s", rec.Body.String())

	// Purchase replays stored replies and is rejected without a key.
	req = httptest.NewRequest(http.MethodPost, "/purchase_ticket/"+uuid.NewString(), nil)
	req.Header.Set("X-User-ID", uuid.NewString())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing Idempotency-Key")
}

func TestRouterRateLimitRejects(t *testing.T) {
	h, _, _, _, _ := newTestHandlers()
	router := SetupRouter(h, denyAllLimiter{}, observability.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/redeem-token", bytes.NewBufferString(`{}`))
	req.Header.Set("X-User-ID", uuid.NewString())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
