package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tickethub/tickethub/internal/domain"
)

func (r *Repository) CreateAnnouncement(ctx context.Context, a domain.Announcement) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO announcements (id, title, content, priority, created_by, is_active, valid_until)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.Title, a.Content, a.Priority, a.CreatedBy, a.IsActive, a.ValidUntil)
	return err
}

// ActiveAnnouncements lists live announcements, highest priority first.
func (r *Repository) ActiveAnnouncements(ctx context.Context, now time.Time) ([]domain.Announcement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, content, priority, created_by, created_at, is_active, valid_until
		FROM announcements
		WHERE is_active = TRUE AND (valid_until IS NULL OR valid_until > $1)
		ORDER BY CASE priority WHEN 'HIGH' THEN 0 WHEN 'MEDIUM' THEN 1 ELSE 2 END, created_at DESC
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Announcement
	for rows.Next() {
		var a domain.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.Priority, &a.CreatedBy, &a.CreatedAt, &a.IsActive, &a.ValidUntil); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repository) DeactivateAnnouncement(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE announcements SET is_active = FALSE WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrInvalidInput
	}
	return nil
}
