package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tickethub/tickethub/internal/domain"
)

// insertLedger appends one audit row inside the caller's transaction. Every
// balance mutation pairs with exactly one of these.
func insertLedger(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, typ domain.LedgerType) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger (id, user_id, amount, type)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), userID, amount.StringFixed(2), typ)
	return err
}

// UserLedger lists a user's ledger entries, most recent first.
func (r *Repository) UserLedger(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, amount::text, type, ts
		FROM ledger
		WHERE user_id = $1
		ORDER BY ts DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e         domain.LedgerEntry
			amountStr string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &amountStr, &e.Type, &e.Timestamp); err != nil {
			return nil, err
		}
		if e.Amount, err = scanDecimal(amountStr); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
