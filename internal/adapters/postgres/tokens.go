package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tickethub/tickethub/internal/domain"
)

// IssueToken persists a staff-created credit grant.
func (r *Repository) IssueToken(ctx context.Context, token domain.Token) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tokens (id, code, amount, created_by, created_at, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, token.ID, token.Code, token.Amount.StringFixed(2), token.CreatedBy, token.CreatedAt, token.ExpiryDate)
	return err
}

// RedeemToken converts a single-use token into credits. The token row is
// locked first, then used/expiry are re-checked under the lock; the credit,
// the used flag, and the REDEMPTION ledger entry commit together or not at
// all. A concurrent redeem of the same code blocks on the lock and then
// fails the used check.
func (r *Repository) RedeemToken(ctx context.Context, code uuid.UUID, userID uuid.UUID) (decimal.Decimal, error) {
	var newBalance decimal.Decimal

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		var (
			tokenID   uuid.UUID
			amountStr string
			expiry    time.Time
			used      bool
		)
		err := tx.QueryRow(ctx, `
			SELECT id, amount::text, expiry_date, used FROM tokens
			WHERE code = $1
			FOR UPDATE
		`, code).Scan(&tokenID, &amountStr, &expiry, &used)
		if err == pgx.ErrNoRows {
			return domain.ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		amount, err := scanDecimal(amountStr)
		if err != nil {
			return err
		}

		token := domain.Token{Used: used, ExpiryDate: expiry}
		if err := token.Redeemable(time.Now()); err != nil {
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

		newBalance = credits.Add(amount)
		_, err = tx.Exec(ctx, `
			UPDATE profiles SET credits = $2 WHERE user_id = $1
		`, userID, newBalance.StringFixed(2))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE tokens SET used = TRUE, used_by = $2, used_at = now() WHERE id = $1
		`, tokenID, userID)
		if err != nil {
			return err
		}

		if err := insertLedger(ctx, tx, userID, amount, domain.LedgerRedemption); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"token_id": tokenID,
			"user_id":  userID,
			"amount":   amount.StringFixed(2),
		})
		return r.InsertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "token",
			AggregateID:   tokenID,
			EventType:     "token.redeemed",
			Payload:       payload,
			DedupeKey:     uuid.New().String(),
		})
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return newBalance, nil
}

// RevokeToken blocks future redemption by pulling the expiry to now. The
// used flag is untouched: redemption checks both, so this is sufficient.
func (r *Repository) RevokeToken(ctx context.Context, tokenID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE tokens SET expiry_date = now() WHERE id = $1
	`, tokenID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

// ActiveTokens lists unredeemed, unexpired tokens for the staff dashboard.
func (r *Repository) ActiveTokens(ctx context.Context) ([]domain.Token, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, amount::text, created_by, created_at, expiry_date, used, used_by, used_at
		FROM tokens
		WHERE used = FALSE AND expiry_date > now()
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		var (
			t         domain.Token
			amountStr string
		)
		if err := rows.Scan(&t.ID, &t.Code, &amountStr, &t.CreatedBy, &t.CreatedAt, &t.ExpiryDate, &t.Used, &t.UsedBy, &t.UsedAt); err != nil {
			return nil, err
		}
		if t.Amount, err = scanDecimal(amountStr); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
