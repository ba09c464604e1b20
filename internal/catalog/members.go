package catalog

import (
	"context"
	"fmt"

	"github.com/matita/storefront/internal/domain"
)

// ListMembers returns all club members ordered by loyalty points, highest
// first.
func (r *Repository) ListMembers(ctx context.Context) ([]domain.User, error) {
	query := `
		SELECT id, name, email, points, is_admin, is_member
		FROM users
		ORDER BY points DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []domain.User
	for rows.Next() {
		var u domain.User
		err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Points, &u.IsAdmin, &u.IsMember)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return members, nil
}

// SetPoints overwrites a member's loyalty point balance. Negative balances
// are clamped at zero.
func (r *Repository) SetPoints(ctx context.Context, memberID string, points int) error {
	if points < 0 {
		points = 0
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET points = $1 WHERE id = $2`, points, memberID)
	if err != nil {
		return fmt.Errorf("failed to update points: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteMember(ctx context.Context, memberID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
