package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/telepresence-hub/backend/internal/model"
)

// ActionRepository provides data access for smart actions.
type ActionRepository struct {
	db *sql.DB
}

// NewActionRepository creates a new ActionRepository.
func NewActionRepository(db *sql.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

// Create inserts a new smart action into the database.
func (r *ActionRepository) Create(ctx context.Context, action *model.SmartAction) error {
	query := `
		INSERT INTO smart_actions (id, name, webhook_url, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		action.ID,
		action.Name,
		action.WebhookURL,
		action.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create smart action: %w", err)
	}

	return nil
}

// GetByID retrieves a smart action by its ID.
func (r *ActionRepository) GetByID(ctx context.Context, id string) (*model.SmartAction, error) {
	query := `
		SELECT id, name, webhook_url, created_at
		FROM smart_actions
		WHERE id = ?
	`

	action := &model.SmartAction{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&action.ID,
		&action.Name,
		&action.WebhookURL,
		&action.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrActionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get smart action: %w", err)
	}

	return action, nil
}

// List retrieves all smart actions.
func (r *ActionRepository) List(ctx context.Context) ([]*model.SmartAction, error) {
	query := `
		SELECT id, name, webhook_url, created_at
		FROM smart_actions
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list smart actions: %w", err)
	}
	defer rows.Close()

	var actions []*model.SmartAction
	for rows.Next() {
		action := &model.SmartAction{}
		err := rows.Scan(
			&action.ID,
			&action.Name,
			&action.WebhookURL,
			&action.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan smart action: %w", err)
		}
		actions = append(actions, action)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating smart actions: %w", err)
	}

	return actions, nil
}

// Delete removes a smart action from the database.
func (r *ActionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM smart_actions WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete smart action: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrActionNotFound
	}

	return nil
}
