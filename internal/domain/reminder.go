package domain

import (
	"context"
	"time"
)

// ReminderService drives reminder notifications for upcoming events.
type ReminderService interface {
	// RunCycle sends day-before reminders, plus week-before reminders when now falls on the weekly anchor day.
	RunCycle(ctx context.Context, now time.Time) (ReminderCycleResult, error)
	// SendReminders runs a single reminder kind regardless of the weekday.
	SendReminders(ctx context.Context, now time.Time, kind ReminderKind) (DispatchReport, error)
	// Start runs cycles until ctx is cancelled.
	Start(ctx context.Context)
}

// ReminderCycleResult reports what one cycle delivered, per reminder kind.
type ReminderCycleResult struct {
	Reports map[ReminderKind]DispatchReport
}
