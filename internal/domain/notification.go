package domain

import (
	"context"
	"errors"
)

// CardKind identifies what a notification card announces.
type CardKind int

const (
	CardKindAutoRegistered CardKind = iota + 1
	CardKindReminder
	CardKindCancellation
	CardKindCreation
	CardKindRegistration
)

// ReminderKind tags a reminder cycle. It only affects card formatting.
type ReminderKind int

const (
	ReminderDaily ReminderKind = iota + 1
	ReminderWeekly
)

func (k ReminderKind) String() string {
	if k == ReminderWeekly {
		return "weekly"
	}
	return "daily"
}

// Card is a rendered notification. It is never persisted.
type Card struct {
	Kind CardKind
	// Summary is the one-line preview used for notifications and email subjects.
	Summary string
	// Text is a plain-text rendition for transports that cannot show cards.
	Text string
	// Content is the Adaptive Card document.
	Content any
}

// CardRenderer maps events into notification cards. Implementations must not mutate events.
type CardRenderer interface {
	AutoRegisteredCard(event *Event, locale string) *Card
	ReminderCard(events []*Event, kind ReminderKind, locale string) *Card
	CancellationCard(event *Event, locale string) *Card
	CreationCard(event *Event, createdByName, locale string) *Card
	RegistrationCard(event *Event, locale string) *Card
}

// ConversationReference is the addressing tuple needed to resume a conversation.
type ConversationReference struct {
	ConversationID string
	ServiceURL     string
	TenantID       string
	// Email is used by transports that deliver outside of the bot conversation.
	Email string
}

// Messenger is the messaging transport port.
type Messenger interface {
	// Send posts a new card and returns the activity id.
	Send(ctx context.Context, ref ConversationReference, card *Card) (string, error)
	// Update replaces the card of an existing activity in place.
	Update(ctx context.Context, ref ConversationReference, activityID string, card *Card) (string, error)
}

// IsTransient reports whether err is worth retrying (rate limited or upstream unavailable).
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		return t.Transient()
	}
	return false
}

// DispatchFailure records a recipient that could not be reached.
type DispatchFailure struct {
	UserObjectID string
	Err          error
}

// DispatchReport is the outcome of sending one card to many users.
type DispatchReport struct {
	Sent   []string
	Failed []DispatchFailure
}

// NotificationService delivers cards to users and team channels.
type NotificationService interface {
	// SendToUsers delivers card to every user sequentially. One failure never stops the others.
	SendToUsers(ctx context.Context, card *Card, users []*UserConfiguration) DispatchReport
	SendToTeam(ctx context.Context, teamID string, card *Card) (string, error)
	UpdateTeamCard(ctx context.Context, teamID, activityID string, card *Card) (string, error)
}
