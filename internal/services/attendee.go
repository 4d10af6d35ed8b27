package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"employeetraining/internal/domain"
)

type attendeeService struct {
	eventRepo  domain.EventRepository
	searcher   domain.EventSearcher
	categories domain.CategoryService
	users      domain.UserConfigurationRepository
	renderer   domain.CardRenderer
	notifier   domain.NotificationService
	logger     *slog.Logger
	locale     string
	now        func() time.Time
}

// NewAttendeeService creates an AttendeeService with the given repositories.
func NewAttendeeService(
	eventRepo domain.EventRepository,
	searcher domain.EventSearcher,
	categories domain.CategoryService,
	users domain.UserConfigurationRepository,
	renderer domain.CardRenderer,
	notifier domain.NotificationService,
	logger *slog.Logger,
	locale string,
) domain.AttendeeService {
	return &attendeeService{
		eventRepo:  eventRepo,
		searcher:   searcher,
		categories: categories,
		users:      users,
		renderer:   renderer,
		notifier:   notifier,
		logger:     logger,
		locale:     locale,
		now:        time.Now,
	}
}

// maxSaveAttempts bounds how often a registration change is replayed after
// losing a race with another writer.
const maxSaveAttempts = 3

func (s *attendeeService) RegisterForEvent(ctx context.Context, teamID, eventID, userID string) (*domain.Event, bool, error) {
	event, created, err := s.modifyEvent(ctx, teamID, eventID, userID, func(event *domain.Event) (bool, error) {
		// Registration is idempotent, including for auto-registered attendees.
		if event.HasAttendee(userID) {
			return false, nil
		}
		if event.Status != domain.EventStatusActive || event.IsRegistrationClosed {
			return false, domain.ErrRegistrationClosed
		}
		if event.IsFull() {
			return false, domain.ErrEventFull
		}
		event.AddRegisteredAttendee(userID)
		return true, nil
	})
	if err != nil || !created {
		return event, false, err
	}

	if users, err := s.users.GetByObjectIDs(ctx, []string{userID}); err != nil {
		s.logger.WarnContext(ctx, "registration confirmation not sent", "event_id", event.ID, "err", err)
	} else if len(users) > 0 {
		card := s.renderer.RegistrationCard(s.enrichOne(ctx, event), s.locale)
		s.notifier.SendToUsers(ctx, card, users)
	}
	return event, true, nil
}

func (s *attendeeService) UnregisterFromEvent(ctx context.Context, teamID, eventID, userID string) (*domain.Event, error) {
	event, _, err := s.modifyEvent(ctx, teamID, eventID, userID, func(event *domain.Event) (bool, error) {
		if !event.IsRegistered(userID) {
			if event.HasAttendee(userID) {
				return false, fmt.Errorf("%w: mandatory attendees cannot unregister", domain.ErrForbidden)
			}
			return false, nil
		}
		if event.Status != domain.EventStatusActive {
			return false, domain.ErrRegistrationClosed
		}
		event.RemoveRegisteredAttendee(userID)
		return true, nil
	})
	return event, err
}

func (s *attendeeService) ListMyEvents(ctx context.Context, userID string, scope domain.SearchScope, page domain.PaginationParams) ([]*domain.Event, error) {
	if !scope.RequiresUser() {
		return nil, fmt.Errorf("%w: scope %s is not a personal scope", domain.ErrInvalidInput, scope)
	}
	events, err := s.searcher.Search(ctx, domain.SearchParameters{
		Scope:         scope,
		UserObjectID:  userID,
		ReferenceDate: s.now(),
		Page:          page,
	})
	if err != nil {
		return nil, fmt.Errorf("search my events: %w", err)
	}
	if len(events) == 0 {
		return []*domain.Event{}, nil
	}
	enriched, err := s.categories.Enrich(ctx, events)
	if err != nil {
		s.logger.WarnContext(ctx, "category enrichment failed", "err", err)
		return events, nil
	}
	return enriched, nil
}

func (s *attendeeService) loadEvent(ctx context.Context, teamID, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, teamID, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// modifyEvent loads the event, applies change and stores the result. change
// reports whether the event needs saving. When another writer stored a newer
// version first, the event is reloaded and change runs again, so capacity and
// status checks always see the latest attendee ledger.
func (s *attendeeService) modifyEvent(ctx context.Context, teamID, eventID, userID string, change func(*domain.Event) (bool, error)) (*domain.Event, bool, error) {
	for attempt := 1; ; attempt++ {
		event, err := s.loadEvent(ctx, teamID, eventID)
		if err != nil {
			return nil, false, err
		}
		changed, err := change(event)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return event, false, nil
		}
		err = s.save(ctx, event, userID)
		if err == nil {
			return event, true, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt == maxSaveAttempts {
			return nil, false, err
		}
		s.logger.DebugContext(ctx, "event changed concurrently, retrying", "event_id", eventID, "attempt", attempt)
	}
}

func (s *attendeeService) save(ctx context.Context, event *domain.Event, userID string) error {
	now := s.now().UTC()
	event.UpdatedBy = userID
	event.UpdatedOn = &now
	if err := s.eventRepo.Update(ctx, event); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update event attendees: %w", err)
	}
	return nil
}

func (s *attendeeService) enrichOne(ctx context.Context, event *domain.Event) *domain.Event {
	enriched, err := s.categories.Enrich(ctx, []*domain.Event{event})
	if err != nil || len(enriched) == 0 {
		return event
	}
	return enriched[0]
}
