package services

import (
	"context"
	"testing"
	"time"

	"employeetraining/internal/cards"
	"employeetraining/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAttendeeService(repo *fakeEventRepo, searcher *fakeSearcher, notifier *fakeNotifier) *attendeeService {
	categories := NewCategoryService(newFakeCategoryRepo(&domain.Category{ID: testCategoryID, Name: "Security"}), time.Minute, testLogger)
	users := newFakeUserConfigRepo(&domain.UserConfiguration{AADObjectID: testUserA, ConversationID: "conv-a"})
	svc := NewAttendeeService(repo, searcher, categories, users, cards.NewRenderer(cards.Options{}), notifier, testLogger, "en-US").(*attendeeService)
	svc.now = func() time.Time { return tuesday }
	return svc
}

func TestRegisterForEvent(t *testing.T) {
	open := storedEvent("ev-open", domain.EventStatusActive)
	closed := storedEvent("ev-closed", domain.EventStatusActive)
	closed.IsRegistrationClosed = true
	draft := storedEvent("ev-draft", domain.EventStatusDraft)
	full := storedEvent("ev-full", domain.EventStatusActive)
	full.MaximumNumberOfParticipants = 1
	full.RegisteredAttendees = testUserB
	full.RegisteredAttendeesCount = 1
	mandatory := storedEvent("ev-mandatory", domain.EventStatusActive)
	mandatory.AutoRegisteredAttendees = testUserA
	mandatory.RegisteredAttendeesCount = 1

	tests := []struct {
		name        string
		eventID     string
		wantErr     error
		wantCreated bool
		wantSends   int
	}{
		{"registers and confirms", "ev-open", nil, true, 1},
		{"registration closed", "ev-closed", domain.ErrRegistrationClosed, false, 0},
		{"draft is closed", "ev-draft", domain.ErrRegistrationClosed, false, 0},
		{"full", "ev-full", domain.ErrEventFull, false, 0},
		{"already auto registered", "ev-mandatory", nil, false, 0},
		{"not found", "missing", domain.ErrNotFound, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeEventRepo(open, closed, draft, full, mandatory)
			notifier := &fakeNotifier{}
			svc := newTestAttendeeService(repo, &fakeSearcher{}, notifier)

			event, created, err := svc.RegisterForEvent(context.Background(), testTeamID, tt.eventID, testUserA)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, repo.updates)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, created)
			assert.True(t, event.HasAttendee(testUserA))
			assert.Equal(t, tt.wantSends, notifier.sendCount())
			if tt.wantCreated {
				assert.Equal(t, 1, repo.updates)
				assert.Equal(t, testUserA, repo.byID[tt.eventID].RegisteredAttendees)
				assert.Equal(t, domain.CardKindRegistration, notifier.userSends[0].card.Kind)
			}
		})
	}
}

func TestRegisterForEvent_Twice(t *testing.T) {
	repo := newFakeEventRepo(storedEvent("ev-open", domain.EventStatusActive))
	svc := newTestAttendeeService(repo, &fakeSearcher{}, &fakeNotifier{})

	_, created, err := svc.RegisterForEvent(context.Background(), testTeamID, "ev-open", testUserA)
	require.NoError(t, err)
	require.True(t, created)

	event, created, err := svc.RegisterForEvent(context.Background(), testTeamID, "ev-open", testUserA)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, event.RegisteredAttendeesCount)
}

func TestRegisterForEvent_ConcurrentWriterTakesLastSeat(t *testing.T) {
	event := storedEvent("ev-open", domain.EventStatusActive)
	event.MaximumNumberOfParticipants = 1
	repo := newFakeEventRepo(event)
	repo.interleave = func(stored *domain.Event) {
		stored.AddRegisteredAttendee(testUserB)
		stored.Version++
	}
	notifier := &fakeNotifier{}
	svc := newTestAttendeeService(repo, &fakeSearcher{}, notifier)

	_, created, err := svc.RegisterForEvent(context.Background(), testTeamID, "ev-open", testUserA)

	require.ErrorIs(t, err, domain.ErrEventFull)
	assert.False(t, created)
	assert.Equal(t, 1, repo.conflicts)
	assert.Zero(t, repo.updates)
	assert.Equal(t, testUserB, repo.byID["ev-open"].RegisteredAttendees)
	assert.Zero(t, notifier.sendCount())
}

func TestRegisterForEvent_KeepsConcurrentRegistration(t *testing.T) {
	repo := newFakeEventRepo(storedEvent("ev-open", domain.EventStatusActive))
	repo.interleave = func(stored *domain.Event) {
		stored.AddRegisteredAttendee(testUserB)
		stored.Version++
	}
	svc := newTestAttendeeService(repo, &fakeSearcher{}, &fakeNotifier{})

	event, created, err := svc.RegisterForEvent(context.Background(), testTeamID, "ev-open", testUserA)

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, repo.conflicts)
	stored := repo.byID["ev-open"]
	assert.Equal(t, testUserB+";"+testUserA, stored.RegisteredAttendees)
	assert.Equal(t, 2, stored.RegisteredAttendeesCount)
	assert.Equal(t, stored.Version, event.Version)
}

func TestUnregisterFromEvent_GivesUpAfterRepeatedConflicts(t *testing.T) {
	event := storedEvent("ev-reg", domain.EventStatusActive)
	event.RegisteredAttendees = testUserA
	event.RegisteredAttendeesCount = 1
	repo := newFakeEventRepo(event)
	var bump func(*domain.Event)
	bump = func(stored *domain.Event) {
		stored.Version++
		repo.interleave = bump
	}
	repo.interleave = bump
	svc := newTestAttendeeService(repo, &fakeSearcher{}, &fakeNotifier{})

	_, err := svc.UnregisterFromEvent(context.Background(), testTeamID, "ev-reg", testUserA)

	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, maxSaveAttempts, repo.conflicts)
	assert.Equal(t, testUserA, repo.byID["ev-reg"].RegisteredAttendees)
}

func TestUnregisterFromEvent(t *testing.T) {
	registered := storedEvent("ev-reg", domain.EventStatusActive)
	registered.RegisteredAttendees = testUserB + ";" + testUserA
	registered.RegisteredAttendeesCount = 2
	mandatory := storedEvent("ev-mandatory", domain.EventStatusActive)
	mandatory.AutoRegisteredAttendees = testUserA
	mandatory.RegisteredAttendeesCount = 1
	repo := newFakeEventRepo(registered, mandatory, storedEvent("ev-other", domain.EventStatusActive))
	svc := newTestAttendeeService(repo, &fakeSearcher{}, &fakeNotifier{})

	event, err := svc.UnregisterFromEvent(context.Background(), testTeamID, "ev-reg", testUserA)
	require.NoError(t, err)
	assert.Equal(t, testUserB, event.RegisteredAttendees)
	assert.Equal(t, 1, repo.byID["ev-reg"].RegisteredAttendeesCount)

	_, err = svc.UnregisterFromEvent(context.Background(), testTeamID, "ev-mandatory", testUserA)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.UnregisterFromEvent(context.Background(), testTeamID, "ev-other", testUserA)
	assert.NoError(t, err, "unregistering when not registered is a no-op")
	assert.Equal(t, 1, repo.updates)
}

func TestListMyEvents(t *testing.T) {
	searcher := &fakeSearcher{results: map[domain.SearchScope][]*domain.Event{
		domain.SearchScopeMandatoryEvents: {storedEvent("ev-1", domain.EventStatusActive)},
	}}
	svc := newTestAttendeeService(newFakeEventRepo(), searcher, &fakeNotifier{})

	events, err := svc.ListMyEvents(context.Background(), testUserA, domain.SearchScopeMandatoryEvents, domain.PaginationParams{Page: 2, PageSize: 5})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Security", events[0].CategoryName)
	require.Len(t, searcher.requests, 1)
	assert.Equal(t, testUserA, searcher.requests[0].UserObjectID)
	assert.Equal(t, domain.PaginationParams{Page: 2, PageSize: 5}, searcher.requests[0].Page)
	assert.Equal(t, tuesday, searcher.requests[0].ReferenceDate)

	events, err = svc.ListMyEvents(context.Background(), testUserA, domain.SearchScopeRegisteredEvents, domain.PaginationParams{})
	require.NoError(t, err)
	assert.NotNil(t, events)

	_, err = svc.ListMyEvents(context.Background(), testUserA, domain.SearchScopeDraftEvents, domain.PaginationParams{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
