package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tickethub/tickethub/internal/domain"
)

// RegisterUser creates the user and its profile as two explicit steps of
// one transaction. Lifecycle ordering stays visible here instead of hiding
// behind a storage-layer hook.
func (r *Repository) RegisterUser(ctx context.Context, user domain.User, role string) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, username, email, password_hash)
			VALUES ($1, $2, $3, $4)
		`, user.ID, user.Username, user.Email, user.PasswordHash)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrUsernameTaken
			}
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO profiles (user_id, role, credits)
			VALUES ($1, $2, 0)
		`, user.ID, role)
		return err
	})
}

// UserByUsername fetches credentials for login.
func (r *Repository) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, err
}

// Profile fetches a user's profile, balance included.
func (r *Repository) Profile(ctx context.Context, userID uuid.UUID) (domain.Profile, error) {
	var (
		p          domain.Profile
		creditsStr string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, phone, role, credits::text, pin_hash, otp_code, otp_expiry
		FROM profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Phone, &p.Role, &creditsStr, &p.PINHash, &p.OTPCode, &p.OTPExpiry)
	if err == pgx.ErrNoRows {
		return domain.Profile{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	p.Credits, err = scanDecimal(creditsStr)
	return p, err
}

// UpdateProfileSecurity persists PIN hash and one-time code fields.
func (r *Repository) UpdateProfileSecurity(ctx context.Context, p domain.Profile) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE profiles SET pin_hash = $2, otp_code = $3, otp_expiry = $4
		WHERE user_id = $1
	`, p.UserID, p.PINHash, p.OTPCode, p.OTPExpiry)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
