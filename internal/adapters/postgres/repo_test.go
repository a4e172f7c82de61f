package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tickethub/tickethub/internal/adapters/postgres"
	"github.com/tickethub/tickethub/internal/domain"
)

func startPostgres(t *testing.T) *postgres.Repository {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16",
			Env:          map[string]string{"POSTGRES_PASSWORD": "test", "POSTGRES_DB": "tickethub"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForListeningPort("5432/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}

	dsn := "postgres://postgres:test@" + host + ":" + port.Port() + "/tickethub?sslmode=disable"
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	repo := postgres.NewRepository(pool)
	deadline := time.Now().Add(30 * time.Second)
	for {
		if err = repo.EnsureSchema(ctx); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("schema never applied: %v", err)
		}
		time.Sleep(time.Second)
	}
	return repo
}

func seedUser(t *testing.T, repo *postgres.Repository, credits string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	user := domain.User{
		ID:           uuid.New(),
		Username:     "user-" + uuid.NewString(),
		Email:        "u@example.com",
		PasswordHash: "x",
	}
	if err := repo.RegisterUser(ctx, user, domain.RoleCustomer); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Pool().Exec(ctx, `UPDATE profiles SET credits = $2 WHERE user_id = $1`, user.ID, credits); err != nil {
		t.Fatal(err)
	}
	return user.ID
}

func seedEvent(t *testing.T, repo *postgres.Repository, price string, slots int) domain.Event {
	t.Helper()
	ctx := context.Background()

	p, _ := decimal.NewFromString(price)
	event, err := domain.NewEvent("Jazz Night", time.Now().Add(48*time.Hour), "Stadium", p, slots, 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateEvent(ctx, event); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.BulkIssueTickets(ctx, event.ID, slots); err != nil {
		t.Fatal(err)
	}
	return event
}

func TestRepository_PurchaseTicket(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	event := seedEvent(t, repo, "25.00", 2)
	userID := seedUser(t, repo, "60.00")

	receipt, err := repo.PurchaseTicket(ctx, event.ID, userID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if receipt.NewBalance.StringFixed(2) != "35.00" {
		t.Errorf("expected balance 35.00, got %s", receipt.NewBalance.StringFixed(2))
	}
	if !domain.ValidTicketCode(receipt.UniqueCode) {
		t.Errorf("receipt carries malformed code %q", receipt.UniqueCode)
	}

	// Second purchase drains the balance below the price.
	receipt, err = repo.PurchaseTicket(ctx, event.ID, userID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if receipt.NewBalance.StringFixed(2) != "10.00" {
		t.Errorf("expected balance 10.00, got %s", receipt.NewBalance.StringFixed(2))
	}

	_, err = repo.PurchaseTicket(ctx, event.ID, userID)
	if !errors.Is(err, domain.ErrSoldOut) {
		t.Errorf("expected sold out, got %v", err)
	}

	ledger, err := repo.UserLedger(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ledger) != 2 {
		t.Errorf("expected 2 ledger entries, got %d", len(ledger))
	}
}

func TestRepository_PurchaseTicketInsufficientCredits(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	event := seedEvent(t, repo, "25.00", 1)
	userID := seedUser(t, repo, "10.00")

	_, err := repo.PurchaseTicket(ctx, event.ID, userID)
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Errorf("expected insufficient credits, got %v", err)
	}

	profile, err := repo.Profile(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if profile.Credits.StringFixed(2) != "10.00" {
		t.Errorf("failed purchase must not touch the balance, got %s", profile.Credits.StringFixed(2))
	}
	ledger, _ := repo.UserLedger(ctx, userID)
	if len(ledger) != 0 {
		t.Errorf("failed purchase must not write ledger entries, got %d", len(ledger))
	}
}

func TestRepository_PurchaseTicketConcurrent(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	const slots = 3
	const buyers = 8
	event := seedEvent(t, repo, "10.00", slots)

	userIDs := make([]uuid.UUID, buyers)
	for i := range userIDs {
		userIDs[i] = seedUser(t, repo, "100.00")
	}

	var wg sync.WaitGroup
	results := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				_, err := repo.PurchaseTicket(ctx, event.ID, userIDs[i])
				if errors.Is(err, domain.ErrSerializationFailure) {
					continue
				}
				results[i] = err
				return
			}
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrSoldOut):
		default:
			t.Errorf("unexpected purchase error: %v", err)
		}
	}
	if won != slots {
		t.Errorf("expected exactly %d winners, got %d", slots, won)
	}

	var assigned int
	err := repo.Pool().QueryRow(ctx, `
		SELECT count(*) FROM tickets WHERE event_id = $1 AND status = 'PURCHASED'
	`, event.ID).Scan(&assigned)
	if err != nil {
		t.Fatal(err)
	}
	if assigned != slots {
		t.Errorf("expected %d assigned tickets, got %d", slots, assigned)
	}
}

func TestRepository_ClaimTicket(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	event := seedEvent(t, repo, "25.00", 1)
	alice := seedUser(t, repo, "0.00")
	bob := seedUser(t, repo, "0.00")

	var code string
	err := repo.Pool().QueryRow(ctx, `
		SELECT unique_code FROM tickets WHERE event_id = $1
	`, event.ID).Scan(&code)
	if err != nil {
		t.Fatal(err)
	}

	ticket, err := repo.ClaimTicket(ctx, code, alice)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ticket.Status != domain.TicketPurchased {
		t.Errorf("claimed ticket must be PURCHASED, got %s", ticket.Status)
	}

	// A claim spends no credits.
	profile, _ := repo.Profile(ctx, alice)
	if !profile.Credits.IsZero() {
		t.Errorf("claim must not touch credits, got %s", profile.Credits)
	}

	_, err = repo.ClaimTicket(ctx, code, bob)
	if !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("expected already claimed, got %v", err)
	}

	_, err = repo.ClaimTicket(ctx, "ABCDEFGHIJ1234567", bob)
	if !errors.Is(err, domain.ErrAlreadyClaimed) {
		t.Errorf("unknown code must be indistinguishable from claimed, got %v", err)
	}
}

func TestRepository_ValidateTicket(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	event := seedEvent(t, repo, "25.00", 2)
	userID := seedUser(t, repo, "50.00")

	receipt, err := repo.PurchaseTicket(ctx, event.ID, userID)
	if err != nil {
		t.Fatal(err)
	}

	first, err := repo.ValidateTicket(ctx, receipt.UniqueCode)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Valid || first.Status != domain.TicketUsed || first.AudioFeedback != "success" {
		t.Errorf("first scan must grant and consume, got %+v", first)
	}
	if first.EventName != event.Name {
		t.Errorf("expected event %q, got %q", event.Name, first.EventName)
	}

	second, err := repo.ValidateTicket(ctx, receipt.UniqueCode)
	if err != nil {
		t.Fatal(err)
	}
	if second.Valid {
		t.Error("second scan of the same code must be rejected")
	}
	if second.Status != domain.TicketUsed {
		t.Errorf("rejected rescans must not change state, got %s", second.Status)
	}

	// An unsold ticket scans as not purchased.
	var unsold string
	err = repo.Pool().QueryRow(ctx, `
		SELECT unique_code FROM tickets WHERE event_id = $1 AND status = 'AVAILABLE'
	`, event.ID).Scan(&unsold)
	if err != nil {
		t.Fatal(err)
	}
	res, err := repo.ValidateTicket(ctx, unsold)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid || res.Status != domain.TicketAvailable {
		t.Errorf("unsold ticket must be rejected without a state change, got %+v", res)
	}

	_, err = repo.ValidateTicket(ctx, "ABCDEFGHIJ1234567")
	if !errors.Is(err, domain.ErrTicketNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRepository_RedeemToken(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	staff := seedUser(t, repo, "0.00")
	userID := seedUser(t, repo, "5.00")

	token, err := domain.NewToken(decimal.NewFromInt(20), time.Now().Add(time.Hour), staff)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.IssueToken(ctx, token); err != nil {
		t.Fatal(err)
	}

	balance, err := repo.RedeemToken(ctx, token.Code, userID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if balance.StringFixed(2) != "25.00" {
		t.Errorf("expected 25.00, got %s", balance.StringFixed(2))
	}

	_, err = repo.RedeemToken(ctx, token.Code, userID)
	if !errors.Is(err, domain.ErrTokenAlreadyUsed) {
		t.Errorf("expected already used, got %v", err)
	}

	profile, _ := repo.Profile(ctx, userID)
	if profile.Credits.StringFixed(2) != "25.00" {
		t.Errorf("double redeem must not credit twice, got %s", profile.Credits.StringFixed(2))
	}

	_, err = repo.RedeemToken(ctx, uuid.New(), userID)
	if !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRepository_RedeemTokenConcurrent(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	staff := seedUser(t, repo, "0.00")
	userID := seedUser(t, repo, "5.00")

	token, err := domain.NewToken(decimal.NewFromInt(20), time.Now().Add(time.Hour), staff)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.IssueToken(ctx, token); err != nil {
		t.Fatal(err)
	}

	const redeemers = 4
	var wg sync.WaitGroup
	results := make([]error, redeemers)
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				_, err := repo.RedeemToken(ctx, token.Code, userID)
				if errors.Is(err, domain.ErrSerializationFailure) {
					continue
				}
				results[i] = err
				return
			}
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, domain.ErrTokenAlreadyUsed):
		default:
			t.Errorf("unexpected redeem error: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("expected exactly 1 successful redeem, got %d", won)
	}

	// The credit lands exactly once.
	profile, err := repo.Profile(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if profile.Credits.StringFixed(2) != "25.00" {
		t.Errorf("expected balance 25.00, got %s", profile.Credits.StringFixed(2))
	}

	ledger, err := repo.UserLedger(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ledger) != 1 {
		t.Fatalf("expected exactly 1 ledger entry, got %d", len(ledger))
	}
	if ledger[0].Type != domain.LedgerRedemption {
		t.Errorf("expected REDEMPTION entry, got %s", ledger[0].Type)
	}
	if ledger[0].Amount.StringFixed(2) != "20.00" {
		t.Errorf("expected amount 20.00, got %s", ledger[0].Amount.StringFixed(2))
	}
}

func TestRepository_SetTicketQRPathLengthMismatch(t *testing.T) {
	repo := postgres.NewRepository(nil)

	tickets := []domain.Ticket{domain.NewTicket(uuid.New())}
	err := repo.SetTicketQRPath(context.Background(), tickets, []string{})
	if err == nil {
		t.Fatal("mismatched slice lengths must be rejected before any write")
	}
}

func TestRepository_RevokeToken(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	staff := seedUser(t, repo, "0.00")
	userID := seedUser(t, repo, "0.00")

	token, err := domain.NewToken(decimal.NewFromInt(20), time.Now().Add(time.Hour), staff)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.IssueToken(ctx, token); err != nil {
		t.Fatal(err)
	}

	if err := repo.RevokeToken(ctx, token.ID); err != nil {
		t.Fatal(err)
	}

	_, err = repo.RedeemToken(ctx, token.Code, userID)
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("revoked token must redeem as expired, got %v", err)
	}

	if err := repo.RevokeToken(ctx, uuid.New()); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRepository_ExpireTickets(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	event := seedEvent(t, repo, "25.00", 2)
	userID := seedUser(t, repo, "50.00")
	receipt, err := repo.PurchaseTicket(ctx, event.ID, userID)
	if err != nil {
		t.Fatal(err)
	}

	// Nothing expires while the event is upcoming.
	ids, err := repo.ExpireTickets(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no expirations, got %d", len(ids))
	}

	ids, err = repo.ExpireTickets(ctx, event.Date.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("expected both tickets expired, got %d", len(ids))
	}

	res, err := repo.ValidateTicket(ctx, receipt.UniqueCode)
	if err != nil {
		t.Fatal(err)
	}
	if res.Valid || res.Status != domain.TicketExpired {
		t.Errorf("expired ticket must be rejected, got %+v", res)
	}
}

func TestRepository_RegisterUser(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()

	user := domain.User{ID: uuid.New(), Username: "amara", Email: "a@example.com", PasswordHash: "x"}
	if err := repo.RegisterUser(ctx, user, domain.RoleCustomer); err != nil {
		t.Fatal(err)
	}

	profile, err := repo.Profile(ctx, user.ID)
	if err != nil {
		t.Fatalf("profile must exist right after registration: %v", err)
	}
	if !profile.Credits.IsZero() {
		t.Errorf("new profiles start at zero credits, got %s", profile.Credits)
	}

	dup := domain.User{ID: uuid.New(), Username: "amara", Email: "b@example.com", PasswordHash: "x"}
	err = repo.RegisterUser(ctx, dup, domain.RoleCustomer)
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Errorf("expected username taken, got %v", err)
	}

	// The failed registration must leave no orphan profile either.
	var users int
	if err := repo.Pool().QueryRow(ctx, `SELECT count(*) FROM users WHERE username = 'amara'`).Scan(&users); err != nil {
		t.Fatal(err)
	}
	if users != 1 {
		t.Errorf("expected 1 user row, got %d", users)
	}
}
