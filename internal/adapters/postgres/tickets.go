package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tickethub/tickethub/internal/domain"
	"golang.org/x/sync/errgroup"
)

// PurchaseTicket claims one AVAILABLE ticket from the event's pool for the
// user. The whole sequence runs in a single serializable transaction: lock
// one available row (SKIP LOCKED hands each contender a distinct row),
// re-check the event date and balance under the lock, debit the profile,
// assign the ticket, write the ledger entry. Any failure rolls back all of it.
func (r *Repository) PurchaseTicket(ctx context.Context, eventID, userID uuid.UUID) (domain.PurchaseReceipt, error) {
	var receipt domain.PurchaseReceipt

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var (
			eventName string
			eventDate time.Time
			priceStr  string
		)
		err := tx.QueryRow(ctx, `
			SELECT name, date, price::text FROM events WHERE id = $1
		`, eventID).Scan(&eventName, &eventDate, &priceStr)
		if err == pgx.ErrNoRows {
			return domain.ErrEventNotFound
		}
		if err != nil {
			return err
		}
		price, err := scanDecimal(priceStr)
		if err != nil {
			return err
		}

		if !eventDate.After(time.Now()) {
			return domain.ErrEventExpired
		}

		var (
			ticketID uuid.UUID
			code     string
		)
		err = tx.QueryRow(ctx, `
			SELECT id, unique_code FROM tickets
			WHERE event_id = $1 AND status = 'AVAILABLE'
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		`, eventID).Scan(&ticketID, &code)
		if err == pgx.ErrNoRows {
			return domain.ErrSoldOut
		}
		if err != nil {
			return err
		}

		var creditsStr string
		err = tx.QueryRow(ctx, `
			SELECT credits::text FROM profiles WHERE user_id = $1 FOR UPDATE
		`, userID).Scan(&creditsStr)
		if err == pgx.ErrNoRows {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		credits, err := scanDecimal(creditsStr)
		if err != nil {
			return err
		}
		if credits.LessThan(price) {
			return domain.ErrInsufficientCredits
		}

		newBalance := credits.Sub(price)
		_, err = tx.Exec(ctx, `
			UPDATE profiles SET credits = $2 WHERE user_id = $1
		`, userID, newBalance.StringFixed(2))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE tickets SET user_id = $2, status = 'PURCHASED', purchased_at = now()
			WHERE id = $1
		`, ticketID, userID)
		if err != nil {
			return err
		}

		if err := insertLedger(ctx, tx, userID, price, domain.LedgerTicketPurchase); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"ticket_id": ticketID,
			"event_id":  eventID,
			"user_id":   userID,
		})
		if err := r.InsertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "ticket",
			AggregateID:   ticketID,
			EventType:     "ticket.purchased",
			Payload:       payload,
			DedupeKey:     uuid.New().String(),
		}); err != nil {
			return err
		}

		receipt = domain.PurchaseReceipt{
			TicketID:   ticketID,
			UniqueCode: code,
			EventName:  eventName,
			NewBalance: newBalance,
		}
		return nil
	})
	if err != nil {
		return domain.PurchaseReceipt{}, err
	}
	return receipt, nil
}

// ClaimTicket assigns a pre-issued ticket to the user by its unique code.
// Same locking discipline as PurchaseTicket, keyed on the code with an
// ownerless predicate; no credits change hands.
func (r *Repository) ClaimTicket(ctx context.Context, code string, userID uuid.UUID) (domain.Ticket, error) {
	var ticket domain.Ticket

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id, event_id, unique_code, status, qr_path, created_at
			FROM tickets
			WHERE unique_code = $1 AND user_id IS NULL
			FOR UPDATE
		`, code).Scan(&ticket.ID, &ticket.EventID, &ticket.UniqueCode, &ticket.Status, &ticket.QRPath, &ticket.CreatedAt)
		if err == pgx.ErrNoRows {
			// Absent or already owned: indistinguishable to the caller on purpose.
			return domain.ErrAlreadyClaimed
		}
		if err != nil {
			return err
		}

		now := time.Now()
		_, err = tx.Exec(ctx, `
			UPDATE tickets SET user_id = $2, status = 'PURCHASED', purchased_at = $3
			WHERE id = $1
		`, ticket.ID, userID, now)
		if err != nil {
			return err
		}

		ticket.UserID = &userID
		ticket.Status = domain.TicketPurchased
		ticket.PurchasedAt = &now

		payload, _ := json.Marshal(map[string]interface{}{
			"ticket_id": ticket.ID,
			"user_id":   userID,
		})
		return r.InsertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "ticket",
			AggregateID:   ticket.ID,
			EventType:     "ticket.claimed",
			Payload:       payload,
			DedupeKey:     uuid.New().String(),
		})
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return ticket, nil
}

// ValidateTicket runs one scan through the four-state machine. The row is
// locked for the read-modify-write so two simultaneous scans of the same
// code cannot both be granted.
func (r *Repository) ValidateTicket(ctx context.Context, code string) (domain.ValidationResult, error) {
	var result domain.ValidationResult

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var (
			ticketID uuid.UUID
			status   domain.TicketStatus
			userName *string
		)
		err := tx.QueryRow(ctx, `
			SELECT t.id, t.status, e.name, e.date, u.username
			FROM tickets t
			JOIN events e ON e.id = t.event_id
			LEFT JOIN users u ON u.id = t.user_id
			WHERE t.unique_code = $1
			FOR UPDATE OF t
		`, code).Scan(&ticketID, &status, &result.EventName, &result.EventDate, &userName)
		if err == pgx.ErrNoRows {
			return domain.ErrTicketNotFound
		}
		if err != nil {
			return err
		}

		decision := domain.Scan(status)
		if decision.Next != status {
			_, err = tx.Exec(ctx, `
				UPDATE tickets SET status = $2 WHERE id = $1
			`, ticketID, decision.Next)
			if err != nil {
				return err
			}
		}

		result.Code = code
		result.Status = decision.Next
		result.Valid = decision.Valid
		result.Message = decision.Message
		result.AudioFeedback = decision.AudioFeedback
		if userName != nil {
			result.UserName = *userName
		}

		if decision.Valid {
			payload, _ := json.Marshal(map[string]interface{}{"ticket_id": ticketID})
			return r.InsertOutbox(ctx, tx, OutboxRecord{
				ID:            uuid.New(),
				AggregateType: "ticket",
				AggregateID:   ticketID,
				EventType:     "ticket.validated",
				Payload:       payload,
				DedupeKey:     uuid.New().String(),
			})
		}
		return nil
	})
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return result, nil
}

// BulkIssueTickets creates n fresh AVAILABLE tickets for the event. Codes
// are generated client-side; the unique index is the collision check, and a
// colliding insert is retried with a new code.
func (r *Repository) BulkIssueTickets(ctx context.Context, eventID uuid.UUID, n int) ([]domain.Ticket, error) {
	if n <= 0 {
		return nil, domain.ErrInvalidInput
	}

	var issued []domain.Ticket
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var ticketCount, existing int
		err := tx.QueryRow(ctx, `
			SELECT ticket_count,
			       (SELECT count(*) FROM tickets WHERE event_id = events.id)
			FROM events WHERE id = $1
			FOR UPDATE
		`, eventID).Scan(&ticketCount, &existing)
		if err == pgx.ErrNoRows {
			return domain.ErrEventNotFound
		}
		if err != nil {
			return err
		}
		if existing+n > ticketCount {
			return errors.Wrapf(domain.ErrInvalidInput, "pool holds %d of %d slots", existing, ticketCount)
		}

		issued = issued[:0]
		for i := 0; i < n; i++ {
			ticket := domain.NewTicket(eventID)
			for attempt := 0; ; attempt++ {
				_, err := tx.Exec(ctx, `
					INSERT INTO tickets (id, event_id, unique_code, status, created_at)
					VALUES ($1, $2, $3, 'AVAILABLE', $4)
				`, ticket.ID, ticket.EventID, ticket.UniqueCode, ticket.CreatedAt)
				if err == nil {
					break
				}
				if isUniqueViolation(err) && attempt < 3 {
					ticket.UniqueCode = domain.NewTicketCode()
					continue
				}
				return err
			}
			issued = append(issued, ticket)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// SetTicketQRPath records where the ticket's QR artifact was written.
// tickets and paths are parallel slices and must have equal length.
func (r *Repository) SetTicketQRPath(ctx context.Context, tickets []domain.Ticket, paths []string) error {
	if len(tickets) != len(paths) {
		return errors.Newf("tickets and paths length mismatch: %d vs %d", len(tickets), len(paths))
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := range tickets {
		i := i
		g.Go(func() error {
			_, err := r.pool.Exec(gctx, `
				UPDATE tickets SET qr_path = $2 WHERE id = $1
			`, tickets[i].ID, paths[i])
			return err
		})
	}
	return g.Wait()
}

// ExpireTickets flips unvalidated tickets to EXPIRED once their event date
// has passed. Called from the expiry worker, not the request path.
func (r *Repository) ExpireTickets(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE tickets SET status = 'EXPIRED'
		WHERE status IN ('AVAILABLE', 'PURCHASED')
		  AND event_id IN (SELECT id FROM events WHERE date < $1)
		RETURNING id
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UserTickets lists a user's purchased tickets, most recent first.
func (r *Repository) UserTickets(ctx context.Context, userID uuid.UUID) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_id, unique_code, status, qr_path, created_at, purchased_at
		FROM tickets
		WHERE user_id = $1 AND status = 'PURCHASED'
		ORDER BY purchased_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		t := domain.Ticket{UserID: &userID}
		if err := rows.Scan(&t.ID, &t.EventID, &t.UniqueCode, &t.Status, &t.QRPath, &t.CreatedAt, &t.PurchasedAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// ActiveTicketCount is a read-only snapshot for the assistant gateway.
func (r *Repository) ActiveTicketCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM tickets t
		JOIN events e ON e.id = t.event_id
		WHERE t.user_id = $1 AND t.status = 'PURCHASED' AND e.date >= now()
	`, userID).Scan(&n)
	return n, err
}

// NextUserEvent returns the soonest upcoming event the user holds a ticket
// for, or ErrTicketNotFound when there is none.
func (r *Repository) NextUserEvent(ctx context.Context, userID uuid.UUID) (domain.Event, error) {
	var (
		event    domain.Event
		priceStr string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT e.id, e.name, e.date, e.location, e.price::text, e.ticket_count, e.max_purchase_per_user
		FROM tickets t
		JOIN events e ON e.id = t.event_id
		WHERE t.user_id = $1 AND t.status = 'PURCHASED' AND e.date >= now()
		ORDER BY e.date ASC
		LIMIT 1
	`, userID).Scan(&event.ID, &event.Name, &event.Date, &event.Location, &priceStr, &event.TicketCount, &event.MaxPurchasePerUser)
	if err == pgx.ErrNoRows {
		return domain.Event{}, domain.ErrTicketNotFound
	}
	if err != nil {
		return domain.Event{}, err
	}
	event.Price, err = scanDecimal(priceStr)
	return event, err
}
