package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	mongoadapter "github.com/tickethub/tickethub/internal/adapters/mongo"
	"github.com/tickethub/tickethub/internal/adapters/postgres"
	redisadapter "github.com/tickethub/tickethub/internal/adapters/redis"
	"github.com/tickethub/tickethub/internal/assistant"
	"github.com/tickethub/tickethub/internal/config"
	"github.com/tickethub/tickethub/internal/domain"
	"github.com/tickethub/tickethub/internal/observability"
	"github.com/tickethub/tickethub/internal/qr"
)

// TicketStore is the transactional ticket surface the handlers drive.
type TicketStore interface {
	PurchaseTicket(ctx context.Context, eventID, userID uuid.UUID) (domain.PurchaseReceipt, error)
	ClaimTicket(ctx context.Context, code string, userID uuid.UUID) (domain.Ticket, error)
	ValidateTicket(ctx context.Context, code string) (domain.ValidationResult, error)
	BulkIssueTickets(ctx context.Context, eventID uuid.UUID, n int) ([]domain.Ticket, error)
	SetTicketQRPath(ctx context.Context, tickets []domain.Ticket, paths []string) error
	UserTickets(ctx context.Context, userID uuid.UUID) ([]domain.Ticket, error)
}

type TokenStore interface {
	IssueToken(ctx context.Context, token domain.Token) error
	RedeemToken(ctx context.Context, code, userID uuid.UUID) (decimal.Decimal, error)
	RevokeToken(ctx context.Context, tokenID uuid.UUID) error
	ActiveTokens(ctx context.Context) ([]domain.Token, error)
}

type UserStore interface {
	RegisterUser(ctx context.Context, user domain.User, role string) error
	Profile(ctx context.Context, userID uuid.UUID) (domain.Profile, error)
	UpdateProfileSecurity(ctx context.Context, p domain.Profile) error
	UserLedger(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEntry, error)
}

type EventStore interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	Event(ctx context.Context, id uuid.UUID) (domain.Event, error)
	UpcomingEvents(ctx context.Context, now time.Time) ([]postgres.EventWithAvailability, error)
}

type AnnouncementStore interface {
	CreateAnnouncement(ctx context.Context, a domain.Announcement) error
	ActiveAnnouncements(ctx context.Context, now time.Time) ([]domain.Announcement, error)
	DeactivateAnnouncement(ctx context.Context, id uuid.UUID) error
}

// Assistant is the gateway contract; Reply never fails.
type Assistant interface {
	Reply(ctx context.Context, req assistant.ReplyRequest) assistant.Reply
}

type ChatArchive interface {
	Append(ctx context.Context, userID uuid.UUID, message, reply, language string) (mongoadapter.ChatMessageDoc, error)
	History(ctx context.Context, userID uuid.UUID, limit int64) ([]mongoadapter.ChatMessageDoc, error)
}

type Auditor interface {
	LogValidation(ctx context.Context, result domain.ValidationResult)
	LogRedemption(ctx context.Context, userID uuid.UUID, tokenCode, newBalance string)
}

type Handlers struct {
	cfg           *config.Config
	tickets       TicketStore
	tokens        TokenStore
	users         UserStore
	events        EventStore
	announcements AnnouncementStore
	chat          Assistant
	chatlog       ChatArchive
	audit         Auditor
	cache         *redisadapter.Cache
	replies       *redisadapter.ReplayStore
	qrgen         *qr.Generator
	logger        observability.Logger
}

func NewHandlers(
	cfg *config.Config,
	repo *postgres.Repository,
	cache *redisadapter.Cache,
	replies *redisadapter.ReplayStore,
	chat Assistant,
	chatlog ChatArchive,
	audit Auditor,
	qrgen *qr.Generator,
	logger observability.Logger,
) *Handlers {
	return &Handlers{
		cfg:           cfg,
		tickets:       repo,
		tokens:        repo,
		users:         repo,
		events:        repo,
		announcements: repo,
		chat:          chat,
		chatlog:       chatlog,
		audit:         audit,
		cache:         cache,
		replies:       replies,
		qrgen:         qrgen,
		logger:        logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorStatus maps the domain error taxonomy onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case domain.NotFound(err):
		return http.StatusNotFound
	case domain.PreconditionFailed(err), errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSerializationFailure):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("unexpected error")
		userMessage = "An unexpected server error occurred. Our team has been notified."
	}
	writeJSON(w, status, map[string]interface{}{"status": "error", "message": userMessage})
}

// ---------- Registration ----------

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "username and password are required"})
		return
	}

	hash, err := domain.HashSecret(req.Password)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	user := domain.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := h.users.RegisterUser(r.Context(), user, domain.RoleCustomer); err != nil {
		h.fail(w, r, err, "That username is already taken.")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"status": "success", "user_id": user.ID})
}

// SetPIN stores a scan-station PIN on the caller's profile.
func (h *Handlers) SetPIN(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid JSON"})
		return
	}
	if len(req.PIN) < 4 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "PIN must be at least 4 digits"})
		return
	}

	profile, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "profile not found")
		return
	}
	if err := profile.SetPIN(req.PIN); err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := h.users.UpdateProfileSecurity(r.Context(), profile); err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success"})
}

// ---------- Ticket purchase / claim ----------

func (h *Handlers) PurchaseTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	eventID, err := uuid.Parse(chi.URLParam(r, "event_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid event id"})
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if existing, err := h.replies.Get(r.Context(), key); err == nil && existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Body)
		return
	}

	receipt, err := h.tickets.PurchaseTicket(r.Context(), eventID, userID)
	if err != nil {
		observability.TicketPurchasesTotal.WithLabelValues(purchaseOutcome(err)).Inc()
		status := errorStatus(err)
		msg := purchaseMessage(err)
		if status == http.StatusInternalServerError {
			h.logger.WithError(err).WithField("event_id", eventID).Error("purchase failed")
		}
		writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
		return
	}
	observability.TicketPurchasesTotal.WithLabelValues("success").Inc()
	h.cache.InvalidateAvailability(r.Context(), eventID.String())

	balance, _ := receipt.NewBalance.Float64()
	body := map[string]interface{}{
		"success":     true,
		"message":     "Ticket purchased successfully!",
		"new_balance": balance,
	}
	data, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
	h.replies.Set(r.Context(), key, redisadapter.StoredReply{Status: http.StatusOK, Body: data})
}

func purchaseOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrSoldOut):
		return "sold_out"
	case errors.Is(err, domain.ErrInsufficientCredits):
		return "insufficient_credits"
	case errors.Is(err, domain.ErrEventExpired):
		return "event_expired"
	case errors.Is(err, domain.ErrEventNotFound):
		return "event_not_found"
	default:
		return "error"
	}
}

func purchaseMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		return "Event not found."
	case errors.Is(err, domain.ErrEventExpired):
		return "This event has already passed and tickets can no longer be purchased."
	case errors.Is(err, domain.ErrSoldOut):
		return "Sorry, tickets for this event are currently sold out or unavailable."
	case errors.Is(err, domain.ErrInsufficientCredits):
		return "Insufficient credits to purchase this ticket."
	case errors.Is(err, domain.ErrSerializationFailure):
		return "Too much contention, please try again."
	default:
		return "An unexpected server error occurred. Our team has been notified."
	}
}

func (h *Handlers) ClaimTicket(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid JSON"})
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if !domain.ValidTicketCode(code) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "Invalid code format"})
		return
	}

	ticket, err := h.tickets.ClaimTicket(r.Context(), code, userID)
	if err != nil {
		h.fail(w, r, err, "Invalid or already claimed ticket code")
		return
	}

	event, err := h.events.Event(r.Context(), ticket.EventID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}

	qrURL := ""
	if h.qrgen != nil {
		if path, err := h.qrgen.Generate(ticket.ID, ticket.UniqueCode); err == nil {
			qrURL = path
			if err := h.tickets.SetTicketQRPath(r.Context(), []domain.Ticket{ticket}, []string{path}); err != nil {
				h.logger.WithError(err).WithField("ticket_id", ticket.ID).Warn("recording qr path failed")
			}
		} else {
			h.logger.WithError(err).Warn("qr generation failed")
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "success",
		"ticket_id":  ticket.ID,
		"event_name": event.Name,
		"qr_url":     qrURL,
	})
}

// ---------- Validation ----------

func (h *Handlers) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	var code string
	if r.Method == http.MethodGet {
		code = r.URL.Query().Get("code")
	} else {
		var req struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "Invalid request data"})
			return
		}
		code = req.Code
	}
	if code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "No ticket code provided"})
		return
	}

	result, err := h.tickets.ValidateTicket(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrTicketNotFound) {
			observability.ValidationsTotal.WithLabelValues("not_found").Inc()
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"status":         "error",
				"message":        "Ticket not found",
				"audio_feedback": "error",
			})
			return
		}
		h.fail(w, r, err, "")
		return
	}

	if result.Valid {
		observability.ValidationsTotal.WithLabelValues("granted").Inc()
	} else {
		observability.ValidationsTotal.WithLabelValues("rejected").Inc()
	}
	h.audit.LogValidation(r.Context(), result)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"ticket": map[string]interface{}{
			"code":           result.Code,
			"event":          result.EventName,
			"event_date":     result.EventDate.Format("2006-01-02 15:04"),
			"user":           result.UserName,
			"status":         result.Status,
			"is_valid":       result.Valid,
			"message":        result.Message,
			"audio_feedback": result.AudioFeedback,
		},
	})
}

// ---------- Tokens ----------

func (h *Handlers) RedeemToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	var req struct {
		TokenCode string `json:"token_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid JSON"})
		return
	}
	code, err := uuid.Parse(strings.TrimSpace(req.TokenCode))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "Invalid token code"})
		return
	}

	newBalance, err := h.tokens.RedeemToken(r.Context(), code, userID)
	if err != nil {
		observability.TokenRedemptionsTotal.WithLabelValues(redeemOutcome(err)).Inc()
		h.fail(w, r, err, redeemMessage(err))
		return
	}
	observability.TokenRedemptionsTotal.WithLabelValues("success").Inc()
	h.audit.LogRedemption(r.Context(), userID, code.String(), newBalance.StringFixed(2))

	balance, _ := newBalance.Float64()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"message":     "Credits added to your account!",
		"new_balance": balance,
	})
}

func redeemOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenAlreadyUsed):
		return "already_used"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func redeemMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenNotFound):
		return "Invalid token code"
	case errors.Is(err, domain.ErrTokenExpired):
		return "This token has expired"
	case errors.Is(err, domain.ErrTokenAlreadyUsed):
		return "This token has already been used"
	default:
		return "Error redeeming token"
	}
}

func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	staffID, ok := h.requireStaff(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount     string    `json:"amount"`
		ExpiryDate time.Time `json:"expiry_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid JSON"})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid amount"})
		return
	}

	token, err := domain.NewToken(amount.Round(2), req.ExpiryDate, staffID)
	if err != nil {
		h.fail(w, r, err, "amount must be positive and expiry in the future")
		return
	}
	if err := h.tokens.IssueToken(r.Context(), token); err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status":   "success",
		"token_id": token.ID,
		"code":     token.Code,
	})
}

func (h *Handlers) RevokeToken(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
	tokenID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid token id"})
		return
	}
	if err := h.tokens.RevokeToken(r.Context(), tokenID); err != nil {
		h.fail(w, r, err, "Token not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success"})
}

func (h *Handlers) ListTokens(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
	tokens, err := h.tokens.ActiveTokens(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	out := make([]map[string]interface{}, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, map[string]interface{}{
			"id":          t.ID,
			"code":        t.Code,
			"amount":      t.Amount.StringFixed(2),
			"expiry_date": t.ExpiryDate,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "tokens": out})
}

// ---------- Events ----------

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
	var req struct {
		Name               string    `json:"name"`
		Date               time.Time `json:"date"`
		Location           string    `json:"location"`
		Price              string    `json:"price"`
		TicketCount        int       `json:"ticket_count"`
		MaxPurchasePerUser int       `json:"max_purchase_per_user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid JSON"})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid price"})
		return
	}
	if req.MaxPurchasePerUser == 0 {
		req.MaxPurchasePerUser = 5
	}

	event, err := domain.NewEvent(req.Name, req.Date, req.Location, price, req.TicketCount, req.MaxPurchasePerUser)
	if err != nil {
		h.fail(w, r, err, "Invalid input for name, price, or ticket count")
		return
	}
	if err := h.events.CreateEvent(r.Context(), event); err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"status": "success", "event_id": event.ID})
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.UpcomingEvents(r.Context(), time.Now())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	out := make([]map[string]interface{}, 0, len(events))
	for _, e := range events {
		available := e.Available
		if cached, ok, err := h.cache.GetAvailability(r.Context(), e.ID.String()); err == nil && ok {
			available = cached
		} else {
			h.cache.SetAvailability(r.Context(), e.ID.String(), e.Available, 30*time.Second)
		}
		out = append(out, map[string]interface{}{
			"id":                e.ID,
			"name":              e.Name,
			"date":              e.Date,
			"location":          e.Location,
			"price":             e.Price.StringFixed(2),
			"available_tickets": available,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "events": out})
}

func (h *Handlers) BulkIssueTickets(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid event id"})
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid JSON"})
		return
	}

	tickets, err := h.tickets.BulkIssueTickets(r.Context(), eventID, req.Quantity)
	if err != nil {
		h.fail(w, r, err, "Cannot create that many tickets for this event")
		return
	}
	h.cache.InvalidateAvailability(r.Context(), eventID.String())

	// QR artifacts are generated outside the issuing transaction; a failed
	// render leaves the ticket usable by code alone.
	if h.qrgen != nil {
		paths := make([]string, len(tickets))
		for i, t := range tickets {
			path, err := h.qrgen.Generate(t.ID, t.UniqueCode)
			if err != nil {
				h.logger.WithError(err).Warn("qr generation failed")
				continue
			}
			paths[i] = path
		}
		if err := h.tickets.SetTicketQRPath(r.Context(), tickets, paths); err != nil {
			h.logger.WithError(err).Warn("recording qr paths failed")
		}
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"created": len(tickets),
	})
}

func (h *Handlers) MyTickets(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	tickets, err := h.tickets.UserTickets(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	out := make([]map[string]interface{}, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, map[string]interface{}{
			"id":           t.ID,
			"event_id":     t.EventID,
			"code":         t.UniqueCode,
			"status":       t.Status,
			"qr_url":       t.QRPath,
			"purchased_at": t.PurchasedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "tickets": out})
}

// ---------- Ledger ----------

func (h *Handlers) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	entries, err := h.users.UserLedger(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]interface{}{
			"id":        e.ID,
			"amount":    e.Amount.StringFixed(2),
			"type":      e.Type,
			"timestamp": e.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "transactions": out})
}

// ---------- Assistant ----------

func (h *Handlers) Chatbot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message  string `json:"message"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "Invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "Message is required"})
		return
	}

	replyReq := assistant.ReplyRequest{Message: req.Message, Language: req.Language}
	if userID, ok := UserID(r.Context()); ok {
		replyReq.UserID = &userID
	}
	reply := h.chat.Reply(r.Context(), replyReq)

	timestamp := time.Now()
	if replyReq.UserID != nil {
		if doc, err := h.chatlog.Append(r.Context(), *replyReq.UserID, req.Message, reply.Text, reply.Language); err == nil {
			timestamp = doc.Timestamp
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "success",
		"reply":             reply.Text,
		"timestamp":         timestamp.Format("2006-01-02 15:04"),
		"language":          reply.Language,
		"detected_language": reply.Detected,
	})
}

func (h *Handlers) ChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	docs, err := h.chatlog.History(r.Context(), userID, 50)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	out := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		out = append(out, map[string]interface{}{
			"text":      d.Message,
			"response":  d.Reply,
			"language":  d.Language,
			"timestamp": d.Timestamp.Format("2006-01-02 15:04"),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": out})
}

// ---------- Announcements ----------

func (h *Handlers) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	staffID, ok := h.requireStaff(w, r)
	if !ok {
		return
	}
	var req struct {
		Title      string     `json:"title"`
		Content    string     `json:"content"`
		Priority   string     `json:"priority"`
		ValidUntil *time.Time `json:"valid_until"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid JSON"})
		return
	}
	if req.Priority == "" {
		req.Priority = "MEDIUM"
	}
	a := domain.Announcement{
		ID:         uuid.New(),
		Title:      req.Title,
		Content:    req.Content,
		Priority:   req.Priority,
		CreatedBy:  staffID,
		IsActive:   true,
		ValidUntil: req.ValidUntil,
	}
	if err := h.announcements.CreateAnnouncement(r.Context(), a); err != nil {
		h.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"status": "success", "announcement_id": a.ID})
}

func (h *Handlers) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	items, err := h.announcements.ActiveAnnouncements(r.Context(), time.Now())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, a := range items {
		out = append(out, map[string]interface{}{
			"id":       a.ID,
			"title":    a.Title,
			"content":  a.Content,
			"priority": a.Priority,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "announcements": out})
}

func (h *Handlers) DeactivateAnnouncement(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "message": "invalid id"})
		return
	}
	if err := h.announcements.DeactivateAnnouncement(r.Context(), id); err != nil {
		h.fail(w, r, err, "Announcement not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success"})
}

// ---------- Liveness ----------

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func (h *Handlers) requireStaff(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	profile, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err, "profile not found")
		return uuid.Nil, false
	}
	if !profile.IsStaff() {
		http.Error(w, "staff only", http.StatusForbidden)
		return uuid.Nil, false
	}
	return userID, true
}
