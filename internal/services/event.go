package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"employeetraining/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	searcher       domain.EventSearcher
	categories     domain.CategoryService
	users          domain.UserConfigurationRepository
	renderer       domain.CardRenderer
	notifier       domain.NotificationService
	logger         *slog.Logger
	locale         string
	contextTimeout time.Duration
	now            func() time.Time
}

// NewEventService creates the organizer-facing EventService. A zero timeout defaults to 30s.
func NewEventService(
	eventRepo domain.EventRepository,
	searcher domain.EventSearcher,
	categories domain.CategoryService,
	users domain.UserConfigurationRepository,
	renderer domain.CardRenderer,
	notifier domain.NotificationService,
	logger *slog.Logger,
	locale string,
	timeout time.Duration,
) domain.EventService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &eventService{
		eventRepo:      eventRepo,
		searcher:       searcher,
		categories:     categories,
		users:          users,
		renderer:       renderer,
		notifier:       notifier,
		logger:         logger,
		locale:         locale,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event, createdBy string) error {
	if event.Status == 0 {
		event.Status = domain.EventStatusDraft
	}
	if event.Status != domain.EventStatusDraft && event.Status != domain.EventStatusActive {
		return domain.NewValidationError([]string{"status must be draft or active when creating an event"})
	}
	if err := domain.NewValidationError(ValidateEvent(event)); err != nil {
		return err
	}

	event.ID = uuid.NewString()
	event.CreatedBy = createdBy
	event.CreatedOn = s.now().UTC()
	event.UpdatedBy = ""
	event.UpdatedOn = nil
	event.RegisteredAttendees = ""
	event.AutoRegisteredAttendees = ""
	event.RegisteredAttendeesCount = 0
	event.IsRegistrationClosed = false
	event.IsRemoved = false

	var autoRegistered []string
	if event.Status == domain.EventStatusActive {
		autoRegistered = event.AutoRegisterMandatoryAttendees()
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	if event.Status == domain.EventStatusActive {
		s.announce(ctx, event, autoRegistered, createdBy)
	}
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, teamID, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, teamID, eventID)
	if err != nil {
		return nil, err
	}
	return s.enrichOne(ctx, event), nil
}

func (s *eventService) ListEvents(ctx context.Context, teamID string, status domain.EventStatus, page domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !status.Valid() {
		return nil, 0, domain.NewValidationError([]string{"status must be between 1 and 4"})
	}
	events, total, err := s.eventRepo.ListByTeam(ctx, teamID, status, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return s.enrich(ctx, events), total, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, teamID, eventID, updatedBy string, update *domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.getEvent(ctx, teamID, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status != domain.EventStatusDraft && event.Status != domain.EventStatusActive {
		return nil, fmt.Errorf("%w: only draft or active events can be edited", domain.ErrConflict)
	}
	wasDraft := event.Status == domain.EventStatusDraft

	if update.Status != nil {
		switch {
		case *update.Status == event.Status:
		case wasDraft && *update.Status == domain.EventStatusActive:
			event.Status = domain.EventStatusActive
		default:
			return nil, domain.NewValidationError([]string{"status can only change from draft to active"})
		}
	}
	applyEventUpdate(event, update)
	var pruned []string
	if update.MandatoryAttendees != nil {
		pruned = event.PruneAutoRegisteredAttendees()
	}

	msgs := ValidateEvent(event)
	if event.MaximumNumberOfParticipants < event.RegisteredAttendeesCount {
		msgs = append(msgs, "maximum number of participants cannot be less than the registered attendees")
	}
	if err := domain.NewValidationError(msgs); err != nil {
		return nil, err
	}

	var autoRegistered []string
	if event.Status == domain.EventStatusActive {
		autoRegistered = event.AutoRegisterMandatoryAttendees()
	}
	now := s.now().UTC()
	event.UpdatedBy = updatedBy
	event.UpdatedOn = &now
	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}

	if len(pruned) > 0 {
		s.logger.InfoContext(ctx, "attendees no longer mandatory", "event_id", event.ID, "count", len(pruned))
	}
	switch {
	case wasDraft && event.Status == domain.EventStatusActive:
		s.announce(ctx, event, autoRegistered, updatedBy)
	case len(autoRegistered) > 0:
		s.notifyAutoRegistered(ctx, event, autoRegistered)
	}
	return s.enrichOne(ctx, event), nil
}

func applyEventUpdate(e *domain.Event, u *domain.EventUpdate) {
	if u.Name != nil {
		e.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Photo != nil {
		e.Photo = *u.Photo
	}
	if u.StartDate != nil {
		e.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		e.EndDate = *u.EndDate
	}
	if u.StartTime != nil {
		e.StartTime = u.StartTime
	}
	if u.EndTime != nil {
		e.EndTime = u.EndTime
	}
	if u.Type != nil {
		e.Type = *u.Type
	}
	if u.Venue != nil {
		e.Venue = *u.Venue
	}
	if u.MeetingLink != nil {
		e.MeetingLink = *u.MeetingLink
	}
	if u.CategoryID != nil {
		e.CategoryID = *u.CategoryID
	}
	if u.MaximumNumberOfParticipants != nil {
		e.MaximumNumberOfParticipants = *u.MaximumNumberOfParticipants
	}
	if u.Audience != nil {
		e.Audience = *u.Audience
	}
	if u.MandatoryAttendees != nil {
		e.MandatoryAttendees = *u.MandatoryAttendees
	}
	if u.OptionalAttendees != nil {
		e.OptionalAttendees = *u.OptionalAttendees
	}
}

func (s *eventService) CancelEvent(ctx context.Context, teamID, eventID, updatedBy string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.transition(ctx, teamID, eventID, updatedBy, func(e *domain.Event) error {
		if e.Status != domain.EventStatusActive {
			return fmt.Errorf("%w: only active events can be cancelled", domain.ErrConflict)
		}
		e.Status = domain.EventStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	card := s.renderer.CancellationCard(s.enrichOne(ctx, event), s.locale)
	if attendees := event.GetAttendees(); len(attendees) > 0 {
		users, err := s.users.GetByObjectIDs(ctx, attendees)
		if err != nil {
			s.logger.WarnContext(ctx, "cancellation not sent to attendees", "event_id", event.ID, "err", err)
		} else {
			report := s.notifier.SendToUsers(ctx, card, users)
			s.logger.InfoContext(ctx, "cancellation sent", "event_id", event.ID, "sent", len(report.Sent), "failed", len(report.Failed))
		}
	}
	if _, err := s.notifier.SendToTeam(ctx, event.TeamID, card); err != nil {
		s.logger.WarnContext(ctx, "cancellation not posted to team", "event_id", event.ID, "team_id", event.TeamID, "err", err)
	}
	return event, nil
}

func (s *eventService) CloseRegistration(ctx context.Context, teamID, eventID, updatedBy string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.transition(ctx, teamID, eventID, updatedBy, func(e *domain.Event) error {
		if e.Status != domain.EventStatusActive {
			return fmt.Errorf("%w: registration can only be closed on active events", domain.ErrConflict)
		}
		e.IsRegistrationClosed = true
		return nil
	})
}

func (s *eventService) DeleteDraft(ctx context.Context, teamID, eventID, updatedBy string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	_, err := s.transition(ctx, teamID, eventID, updatedBy, func(e *domain.Event) error {
		if e.Status != domain.EventStatusDraft {
			return fmt.Errorf("%w: only draft events can be deleted", domain.ErrConflict)
		}
		e.IsRemoved = true
		return nil
	})
	return err
}

func (s *eventService) SearchEvents(ctx context.Context, params domain.SearchParameters) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if params.Scope.RequiresUser() && params.UserObjectID == "" {
		return nil, fmt.Errorf("%w: scope %s requires a user", domain.ErrInvalidInput, params.Scope)
	}
	events, err := s.searcher.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return s.enrich(ctx, events), nil
}

// transition loads an event, applies change and stores it with fresh provenance.
func (s *eventService) transition(ctx context.Context, teamID, eventID, updatedBy string, change func(*domain.Event) error) (*domain.Event, error) {
	event, err := s.getEvent(ctx, teamID, eventID)
	if err != nil {
		return nil, err
	}
	if err := change(event); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	event.UpdatedBy = updatedBy
	event.UpdatedOn = &now
	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (s *eventService) getEvent(ctx context.Context, teamID, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, teamID, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// announce notifies auto-registered attendees and the team channel that an event was published.
func (s *eventService) announce(ctx context.Context, event *domain.Event, autoRegistered []string, createdBy string) {
	s.notifyAutoRegistered(ctx, event, autoRegistered)

	creator := createdBy
	if found, err := s.users.GetByObjectIDs(ctx, []string{createdBy}); err == nil && len(found) > 0 && found[0].UserPrincipalName != "" {
		creator = found[0].UserPrincipalName
	}
	card := s.renderer.CreationCard(s.enrichOne(ctx, event), creator, s.locale)
	if _, err := s.notifier.SendToTeam(ctx, event.TeamID, card); err != nil {
		s.logger.WarnContext(ctx, "event creation not posted to team", "event_id", event.ID, "team_id", event.TeamID, "err", err)
	}
}

func (s *eventService) notifyAutoRegistered(ctx context.Context, event *domain.Event, ids []string) {
	if len(ids) == 0 {
		return
	}
	users, err := s.users.GetByObjectIDs(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "auto-registration not sent", "event_id", event.ID, "err", err)
		return
	}
	card := s.renderer.AutoRegisteredCard(s.enrichOne(ctx, event), s.locale)
	report := s.notifier.SendToUsers(ctx, card, users)
	s.logger.InfoContext(ctx, "auto-registration sent", "event_id", event.ID, "sent", len(report.Sent), "failed", len(report.Failed))
}

// enrich resolves category names; on failure the events are returned as stored.
func (s *eventService) enrich(ctx context.Context, events []*domain.Event) []*domain.Event {
	if events == nil {
		return []*domain.Event{}
	}
	enriched, err := s.categories.Enrich(ctx, events)
	if err != nil {
		s.logger.WarnContext(ctx, "category enrichment failed", "err", err)
		return events
	}
	return enriched
}

func (s *eventService) enrichOne(ctx context.Context, event *domain.Event) *domain.Event {
	return s.enrich(ctx, []*domain.Event{event})[0]
}
