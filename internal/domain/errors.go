package domain

import (
	"errors"
	"strings"
)

// Sentinel errors shared by services, repositories and delivery.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrEventFull          = errors.New("event has reached maximum number of participants")

	// ErrActivityIDRequired is returned when an in-place card update is requested without an activity id.
	ErrActivityIDRequired = errors.New("activity id is required to update a card")
	// ErrTeamNotFound is returned when a team has no stored conversation binding.
	ErrTeamNotFound = errors.New("team configuration not found")
)

// ValidationError carries the messages produced by a validator. It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError returns nil when msgs is empty.
func NewValidationError(msgs []string) error {
	if len(msgs) == 0 {
		return nil
	}
	return &ValidationError{Messages: msgs}
}
