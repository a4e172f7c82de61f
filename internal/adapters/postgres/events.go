package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tickethub/tickethub/internal/domain"
)

// EventWithAvailability pairs an event with its derived free-slot count:
// total slots minus tickets sitting in PURCHASED or USED.
type EventWithAvailability struct {
	domain.Event
	Available int
}

func (r *Repository) CreateEvent(ctx context.Context, event domain.Event) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (id, name, date, location, price, ticket_count, max_purchase_per_user)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.ID, event.Name, event.Date, event.Location, event.Price.StringFixed(2), event.TicketCount, event.MaxPurchasePerUser)
	return err
}

func (r *Repository) Event(ctx context.Context, id uuid.UUID) (domain.Event, error) {
	var (
		e        domain.Event
		priceStr string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, date, location, price::text, ticket_count, max_purchase_per_user
		FROM events WHERE id = $1
	`, id).Scan(&e.ID, &e.Name, &e.Date, &e.Location, &priceStr, &e.TicketCount, &e.MaxPurchasePerUser)
	if err == pgx.ErrNoRows {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.Event{}, err
	}
	e.Price, err = scanDecimal(priceStr)
	return e, err
}

// EventsAfter lists future events without availability, soonest first. The
// assistant gateway reads this as a read-only snapshot.
func (r *Repository) EventsAfter(ctx context.Context, now time.Time) ([]domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, date, location, price::text, ticket_count, max_purchase_per_user
		FROM events
		WHERE date >= $1
		ORDER BY date ASC
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			e        domain.Event
			priceStr string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.Location, &priceStr, &e.TicketCount, &e.MaxPurchasePerUser); err != nil {
			return nil, err
		}
		if e.Price, err = scanDecimal(priceStr); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpcomingEvents lists future events with availability, soonest first.
func (r *Repository) UpcomingEvents(ctx context.Context, now time.Time) ([]EventWithAvailability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT e.id, e.name, e.date, e.location, e.price::text, e.ticket_count, e.max_purchase_per_user,
		       e.ticket_count - (
		           SELECT count(*) FROM tickets t
		           WHERE t.event_id = e.id AND t.status IN ('PURCHASED', 'USED')
		       )
		FROM events e
		WHERE e.date >= $1
		ORDER BY e.date ASC
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventWithAvailability
	for rows.Next() {
		var (
			e        EventWithAvailability
			priceStr string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.Location, &priceStr, &e.TicketCount, &e.MaxPurchasePerUser, &e.Available); err != nil {
			return nil, err
		}
		if e.Price, err = scanDecimal(priceStr); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
