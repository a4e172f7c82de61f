package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tickethub/tickethub/internal/observability"
)

// SetupRouter wires the full HTTP surface. Purchase, claim, and redeem
// mutate balances or ownership, so they pass through rate limiting;
// purchase alone stores and replays replies, so only it demands an
// Idempotency-Key.
func SetupRouter(h *Handlers, rl Limiter, logger observability.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(AuthMiddleware)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/register", h.Register)
	r.Post("/profile/pin", h.SetPIN)

	r.Get("/events", h.ListEvents)
	r.Post("/events", h.CreateEvent)
	r.Post("/events/{id}/tickets", h.BulkIssueTickets)

	r.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(rl))

		r.With(IdempotencyKeyMiddleware).Post("/purchase_ticket/{event_id}", h.PurchaseTicket)
		r.Post("/claim-ticket", h.ClaimTicket)
		r.Post("/redeem-token", h.RedeemToken)
	})

	r.Get("/api/validate-ticket", h.ValidateTicket)
	r.Post("/api/validate-ticket", h.ValidateTicket)

	r.Post("/tokens", h.IssueToken)
	r.Get("/tokens", h.ListTokens)
	r.Post("/tokens/{id}/revoke", h.RevokeToken)

	r.Get("/my-tickets", h.MyTickets)
	r.Get("/transactions", h.Transactions)

	r.Post("/chatbot/", h.Chatbot)
	r.Get("/chat/history", h.ChatHistory)

	r.Get("/announcements", h.ListAnnouncements)
	r.Post("/announcements", h.CreateAnnouncement)
	r.Post("/announcements/{id}/deactivate", h.DeactivateAnnouncement)

	return r
}
