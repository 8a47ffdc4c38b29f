package model

import "errors"

var (
	// ErrNameRequired is returned when a creation request is missing the name.
	ErrNameRequired = errors.New("name is required")

	// ErrWebhookRequired is returned when a smart action is missing its webhook URL.
	ErrWebhookRequired = errors.New("webhook URL is required")

	// ErrRobotNotFound is returned when a robot is not found.
	ErrRobotNotFound = errors.New("robot not found")

	// ErrActionNotFound is returned when a smart action is not found.
	ErrActionNotFound = errors.New("smart action not found")

	// ErrInviteNotFound is returned when an invite token is not found.
	ErrInviteNotFound = errors.New("invite not found")

	// ErrDriverNotFound is returned when a driver account is not found.
	ErrDriverNotFound = errors.New("driver not found")

	// ErrUnauthorized is returned when a user is not authorized.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when access to a resource is forbidden.
	ErrForbidden = errors.New("forbidden")
)
