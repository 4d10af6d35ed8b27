package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"employeetraining/internal/domain"
)

// ReminderConfig controls the reminder scheduler.
type ReminderConfig struct {
	// Interval is the delay between the end of one cycle and the start of the next.
	Interval time.Duration
	// WeeklyDay is the day on which week-before reminders are sent.
	WeeklyDay time.Weekday
	Locale    string
}

type reminderService struct {
	searcher   domain.EventSearcher
	categories domain.CategoryService
	users      domain.UserConfigurationRepository
	renderer   domain.CardRenderer
	notifier   domain.NotificationService
	cfg        ReminderConfig
	logger     *slog.Logger
	now        func() time.Time
	after      func(d time.Duration) <-chan time.Time
}

// NewReminderService returns the reminder scheduler. A zero Interval defaults to 24h.
func NewReminderService(
	searcher domain.EventSearcher,
	categories domain.CategoryService,
	users domain.UserConfigurationRepository,
	renderer domain.CardRenderer,
	notifier domain.NotificationService,
	cfg ReminderConfig,
	logger *slog.Logger,
) domain.ReminderService {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	return &reminderService{
		searcher:   searcher,
		categories: categories,
		users:      users,
		renderer:   renderer,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		after:      time.After,
	}
}

func (s *reminderService) Start(ctx context.Context) {
	s.logger.InfoContext(ctx, "reminder scheduler started", "interval", s.cfg.Interval.String(), "weekly_day", s.cfg.WeeklyDay.String())
	for {
		if ctx.Err() != nil {
			s.logger.InfoContext(ctx, "reminder scheduler stopped")
			return
		}
		// A started cycle always runs to completion.
		s.safeCycle(context.WithoutCancel(ctx))
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reminder scheduler stopped")
			return
		case <-s.after(s.cfg.Interval):
		}
	}
}

func (s *reminderService) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "reminder cycle panicked", "panic", fmt.Sprint(r))
		}
	}()
	if _, err := s.RunCycle(ctx, s.now()); err != nil {
		s.logger.ErrorContext(ctx, "reminder cycle failed", "err", err)
	}
}

func (s *reminderService) RunCycle(ctx context.Context, now time.Time) (domain.ReminderCycleResult, error) {
	result := domain.ReminderCycleResult{Reports: make(map[domain.ReminderKind]domain.DispatchReport)}
	kinds := []domain.ReminderKind{domain.ReminderDaily}
	if now.Weekday() == s.cfg.WeeklyDay {
		kinds = append(kinds, domain.ReminderWeekly)
	}
	var errs []error
	for _, kind := range kinds {
		report, err := s.SendReminders(ctx, now, kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s reminders: %w", kind, err))
			continue
		}
		result.Reports[kind] = report
		if len(report.Failed) > 0 {
			failed := make([]string, 0, len(report.Failed))
			for _, f := range report.Failed {
				failed = append(failed, f.UserObjectID)
			}
			s.logger.WarnContext(ctx, "reminders not delivered", "kind", kind.String(), "failed", len(failed), "users", strings.Join(failed, ","))
		}
		s.logger.InfoContext(ctx, "reminder cycle finished", "kind", kind.String(), "sent", len(report.Sent), "failed", len(report.Failed))
	}
	return result, errors.Join(errs...)
}

func (s *reminderService) SendReminders(ctx context.Context, now time.Time, kind domain.ReminderKind) (domain.DispatchReport, error) {
	scope := domain.SearchScopeDayBeforeReminder
	if kind == domain.ReminderWeekly {
		scope = domain.SearchScopeOneWeekBeforeReminder
	}
	events, err := s.searcher.Search(ctx, domain.SearchParameters{Scope: scope, ReferenceDate: now})
	if err != nil {
		return domain.DispatchReport{}, fmt.Errorf("search due events: %w", err)
	}
	if len(events) == 0 {
		return domain.DispatchReport{}, nil
	}
	return s.fanOut(ctx, events, kind)
}

// fanOut sends every attendee one card bundling the due events they attend.
func (s *reminderService) fanOut(ctx context.Context, events []*domain.Event, kind domain.ReminderKind) (domain.DispatchReport, error) {
	events, err := s.categories.Enrich(ctx, events)
	if err != nil {
		return domain.DispatchReport{}, fmt.Errorf("enrich categories: %w", err)
	}

	ids := uniqueAttendees(events)
	if len(ids) == 0 {
		return domain.DispatchReport{}, nil
	}
	users, err := s.users.GetByObjectIDs(ctx, ids)
	if err != nil {
		return domain.DispatchReport{}, fmt.Errorf("get user configurations: %w", err)
	}

	var report domain.DispatchReport
	for _, user := range users {
		var relevant []*domain.Event
		for _, e := range events {
			if e.HasAttendee(user.AADObjectID) {
				relevant = append(relevant, e)
			}
		}
		if len(relevant) == 0 {
			continue
		}
		card := s.renderer.ReminderCard(relevant, kind, s.cfg.Locale)
		r := s.notifier.SendToUsers(ctx, card, []*domain.UserConfiguration{user})
		report.Sent = append(report.Sent, r.Sent...)
		report.Failed = append(report.Failed, r.Failed...)
	}
	return report, nil
}

// uniqueAttendees unions the attendees of events, keeping the first spelling of each id.
func uniqueAttendees(events []*domain.Event) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range events {
		for _, id := range e.GetAttendees() {
			key := strings.ToLower(id)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
