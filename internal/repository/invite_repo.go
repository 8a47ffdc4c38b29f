package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/telepresence-hub/backend/internal/model"
)

// InviteRepository provides data access for driver invitation tokens.
type InviteRepository struct {
	db *sql.DB
}

// NewInviteRepository creates a new InviteRepository.
func NewInviteRepository(db *sql.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

// Create inserts a new invite token.
func (r *InviteRepository) Create(ctx context.Context, invite *model.Invite) error {
	query := `INSERT INTO invites (token, created_at) VALUES (?, ?)`

	_, err := r.db.ExecContext(ctx, query, invite.Token, invite.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}

	return nil
}

// List retrieves all outstanding invite tokens.
func (r *InviteRepository) List(ctx context.Context) ([]*model.Invite, error) {
	query := `SELECT token, created_at FROM invites ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []*model.Invite
	for rows.Next() {
		invite := &model.Invite{}
		if err := rows.Scan(&invite.Token, &invite.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, invite)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invites: %w", err)
	}

	return invites, nil
}

// Delete removes an invite token.
func (r *InviteRepository) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM invites WHERE token = ?`

	result, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrInviteNotFound
	}

	return nil
}

// Consume atomically removes an invite token, returning ErrInviteNotFound
// if it was not outstanding. Used when a new driver redeems an invitation.
func (r *InviteRepository) Consume(ctx context.Context, token string) error {
	return r.Delete(ctx, token)
}
