package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/telepresence-hub/backend/internal/model"
)

// DriverRepository provides data access for the driver allow-list.
type DriverRepository struct {
	db *sql.DB
}

// NewDriverRepository creates a new DriverRepository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// Upsert inserts or updates a driver account.
func (r *DriverRepository) Upsert(ctx context.Context, driver *model.Driver) error {
	query := `
		INSERT INTO drivers (user_id, email, admin, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET email = excluded.email, admin = excluded.admin
	`

	_, err := r.db.ExecContext(ctx, query,
		driver.UserID,
		driver.Email,
		driver.Admin,
		driver.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert driver: %w", err)
	}

	return nil
}

// GetByUserID retrieves a driver account.
func (r *DriverRepository) GetByUserID(ctx context.Context, userID string) (*model.Driver, error) {
	query := `SELECT user_id, email, admin, created_at FROM drivers WHERE user_id = ?`

	driver := &model.Driver{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&driver.UserID,
		&driver.Email,
		&driver.Admin,
		&driver.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}

	return driver, nil
}

// List retrieves all allow-listed drivers.
func (r *DriverRepository) List(ctx context.Context) ([]*model.Driver, error) {
	query := `SELECT user_id, email, admin, created_at FROM drivers ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*model.Driver
	for rows.Next() {
		driver := &model.Driver{}
		if err := rows.Scan(&driver.UserID, &driver.Email, &driver.Admin, &driver.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan driver: %w", err)
		}
		drivers = append(drivers, driver)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drivers: %w", err)
	}

	return drivers, nil
}

// Delete removes a driver account.
func (r *DriverRepository) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM drivers WHERE user_id = ?`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete driver: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrDriverNotFound
	}

	return nil
}
