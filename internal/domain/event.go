package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewEvent validates and constructs an event. The slot count is fixed at
// creation; availability is derived from the ticket pool, never stored.
func NewEvent(name string, date time.Time, location string, price decimal.Decimal, ticketCount, maxPerUser int) (Event, error) {
	if name == "" || location == "" {
		return Event{}, ErrInvalidInput
	}
	if !price.IsPositive() {
		return Event{}, ErrInvalidInput
	}
	if ticketCount <= 0 || maxPerUser <= 0 {
		return Event{}, ErrInvalidInput
	}
	return Event{
		ID:                 uuid.New(),
		Name:               name,
		Date:               date,
		Location:           location,
		Price:              price.Round(2),
		TicketCount:        ticketCount,
		MaxPurchasePerUser: maxPerUser,
	}, nil
}

// Upcoming reports whether the event is still purchasable time-wise.
func (e Event) Upcoming(now time.Time) bool {
	return e.Date.After(now)
}
