// Package repository provides data access for the operator record store.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/telepresence-hub/backend/internal/model"
)

// RobotRepository provides data access for registered robots.
type RobotRepository struct {
	db *sql.DB
}

// NewRobotRepository creates a new RobotRepository.
func NewRobotRepository(db *sql.DB) *RobotRepository {
	return &RobotRepository{db: db}
}

// Create inserts a new robot into the database.
func (r *RobotRepository) Create(ctx context.Context, robot *model.Robot) error {
	query := `
		INSERT INTO robots (id, secret, name, location, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		robot.ID,
		robot.Secret,
		robot.Name,
		robot.Location,
		robot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create robot: %w", err)
	}

	return nil
}

// GetByID retrieves a robot by its public identity.
func (r *RobotRepository) GetByID(ctx context.Context, id string) (*model.Robot, error) {
	query := `
		SELECT id, secret, name, location, created_at
		FROM robots
		WHERE id = ?
	`

	robot := &model.Robot{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&robot.ID,
		&robot.Secret,
		&robot.Name,
		&robot.Location,
		&robot.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrRobotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get robot: %w", err)
	}

	return robot, nil
}

// GetBySecret retrieves a robot by its private secret. This is how the
// robot-side page authenticates itself.
func (r *RobotRepository) GetBySecret(ctx context.Context, secret string) (*model.Robot, error) {
	query := `
		SELECT id, secret, name, location, created_at
		FROM robots
		WHERE secret = ?
	`

	robot := &model.Robot{}
	err := r.db.QueryRowContext(ctx, query, secret).Scan(
		&robot.ID,
		&robot.Secret,
		&robot.Name,
		&robot.Location,
		&robot.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, model.ErrRobotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get robot: %w", err)
	}

	return robot, nil
}

// List retrieves all registered robots.
func (r *RobotRepository) List(ctx context.Context) ([]*model.Robot, error) {
	query := `
		SELECT id, secret, name, location, created_at
		FROM robots
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list robots: %w", err)
	}
	defer rows.Close()

	var robots []*model.Robot
	for rows.Next() {
		robot := &model.Robot{}
		err := rows.Scan(
			&robot.ID,
			&robot.Secret,
			&robot.Name,
			&robot.Location,
			&robot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan robot: %w", err)
		}
		robots = append(robots, robot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating robots: %w", err)
	}

	return robots, nil
}

// Delete removes a robot from the database.
func (r *RobotRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM robots WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete robot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrRobotNotFound
	}

	return nil
}
