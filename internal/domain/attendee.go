package domain

import "context"

// AttendeeService defines attendee-facing operations such as event registration.
type AttendeeService interface {
	// RegisterForEvent registers the user. Returns (event, created, err): created is false if already registered.
	RegisterForEvent(ctx context.Context, teamID, eventID, userID string) (*Event, bool, error)
	UnregisterFromEvent(ctx context.Context, teamID, eventID, userID string) (*Event, error)
	ListMyEvents(ctx context.Context, userID string, scope SearchScope, page PaginationParams) ([]*Event, error)
}
