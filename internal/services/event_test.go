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

type eventFixture struct {
	svc      *eventService
	repo     *fakeEventRepo
	searcher *fakeSearcher
	notifier *fakeNotifier
	users    *fakeUserConfigRepo
}

func newEventFixture(events ...*domain.Event) *eventFixture {
	f := &eventFixture{
		repo:     newFakeEventRepo(events...),
		searcher: &fakeSearcher{results: map[domain.SearchScope][]*domain.Event{}},
		notifier: &fakeNotifier{},
		users: newFakeUserConfigRepo(
			&domain.UserConfiguration{AADObjectID: testUserA, UserPrincipalName: "ada@contoso.example", ConversationID: "conv-a"},
			&domain.UserConfiguration{AADObjectID: testUserB, ConversationID: "conv-b"},
		),
	}
	categories := NewCategoryService(newFakeCategoryRepo(&domain.Category{ID: testCategoryID, Name: "Security"}), time.Minute, testLogger)
	f.svc = NewEventService(f.repo, f.searcher, categories, f.users, cards.NewRenderer(cards.Options{}), f.notifier, testLogger, "en-US", 5*time.Second).(*eventService)
	f.svc.now = func() time.Time { return tuesday }
	return f
}

func storedEvent(id string, status domain.EventStatus) *domain.Event {
	e := validEvent()
	e.ID = id
	e.Status = status
	e.CreatedBy = testUserA
	return e
}

func TestCreateEvent_Draft(t *testing.T) {
	f := newEventFixture()
	e := validEvent()
	e.MandatoryAttendees = testUserB

	require.NoError(t, f.svc.CreateEvent(context.Background(), e, testUserA))

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, domain.EventStatusDraft, e.Status)
	assert.Equal(t, testUserA, e.CreatedBy)
	assert.Equal(t, tuesday, e.CreatedOn)
	assert.Empty(t, e.AutoRegisteredAttendees, "drafts are not published")
	assert.Empty(t, f.notifier.userSends)
	assert.Empty(t, f.notifier.teamSends)
}

func TestCreateEvent_ActiveAnnounces(t *testing.T) {
	f := newEventFixture()
	e := validEvent()
	e.Status = domain.EventStatusActive
	e.MandatoryAttendees = testUserB
	e.RegisteredAttendees = "smuggled"

	require.NoError(t, f.svc.CreateEvent(context.Background(), e, testUserA))

	stored := f.repo.byID[e.ID]
	require.NotNil(t, stored)
	assert.Equal(t, testUserB, stored.AutoRegisteredAttendees)
	assert.Empty(t, stored.RegisteredAttendees)
	assert.Equal(t, 1, stored.RegisteredAttendeesCount)

	require.Len(t, f.notifier.userSends, 1)
	assert.Equal(t, domain.CardKindAutoRegistered, f.notifier.userSends[0].card.Kind)
	assert.Equal(t, []string{testUserB}, f.notifier.userSends[0].users)
	require.Len(t, f.notifier.teamSends, 1)
	assert.Equal(t, testTeamID, f.notifier.teamSends[0].teamID)
	assert.Equal(t, domain.CardKindCreation, f.notifier.teamSends[0].card.Kind)
	assert.Contains(t, f.notifier.teamSends[0].card.Text, "Secure coding")
}

func TestCreateEvent_Invalid(t *testing.T) {
	f := newEventFixture()
	e := validEvent()
	e.Type = domain.EventTypeLiveEvent
	e.Venue = ""

	err := f.svc.CreateEvent(context.Background(), e, testUserA)

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages, "meeting link required")
	assert.Empty(t, f.repo.byID)

	e = validEvent()
	e.Status = domain.EventStatusCancelled
	assert.ErrorIs(t, f.svc.CreateEvent(context.Background(), e, testUserA), domain.ErrInvalidInput)
}

func TestGetEvent(t *testing.T) {
	f := newEventFixture(storedEvent("ev-1", domain.EventStatusActive))

	got, err := f.svc.GetEvent(context.Background(), testTeamID, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "Security", got.CategoryName)

	_, err = f.svc.GetEvent(context.Background(), "other-team", "ev-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListEvents(t *testing.T) {
	f := newEventFixture(storedEvent("ev-1", domain.EventStatusActive), storedEvent("ev-2", domain.EventStatusDraft))

	events, total, err := f.svc.ListEvents(context.Background(), testTeamID, domain.EventStatusActive, domain.PaginationParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", events[0].ID)

	_, _, err = f.svc.ListEvents(context.Background(), testTeamID, 0, domain.PaginationParams{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateEvent_PublishDraft(t *testing.T) {
	draft := storedEvent("ev-1", domain.EventStatusDraft)
	draft.MandatoryAttendees = testUserA + ";" + testUserB
	f := newEventFixture(draft)
	active := domain.EventStatusActive
	name := "  Secure coding II "

	got, err := f.svc.UpdateEvent(context.Background(), testTeamID, "ev-1", testUserB, &domain.EventUpdate{Status: &active, Name: &name})

	require.NoError(t, err)
	assert.Equal(t, "Secure coding II", got.Name)
	assert.Equal(t, domain.EventStatusActive, got.Status)
	assert.Equal(t, 2, got.RegisteredAttendeesCount)
	assert.Equal(t, testUserB, got.UpdatedBy)
	require.NotNil(t, got.UpdatedOn)
	require.Len(t, f.notifier.userSends, 1)
	assert.ElementsMatch(t, []string{testUserA, testUserB}, f.notifier.userSends[0].users)
	require.Len(t, f.notifier.teamSends, 1)
	assert.Equal(t, domain.CardKindCreation, f.notifier.teamSends[0].card.Kind)
}

func TestUpdateEvent_Rules(t *testing.T) {
	cancelled := storedEvent("ev-c", domain.EventStatusCancelled)
	active := storedEvent("ev-a", domain.EventStatusActive)
	active.RegisteredAttendees = testUserA + ";" + testUserB
	active.RegisteredAttendeesCount = 2
	f := newEventFixture(cancelled, active)

	_, err := f.svc.UpdateEvent(context.Background(), testTeamID, "ev-c", testUserA, &domain.EventUpdate{})
	assert.ErrorIs(t, err, domain.ErrConflict)

	draft := domain.EventStatusDraft
	_, err = f.svc.UpdateEvent(context.Background(), testTeamID, "ev-a", testUserA, &domain.EventUpdate{Status: &draft})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	capacity := 1
	_, err = f.svc.UpdateEvent(context.Background(), testTeamID, "ev-a", testUserA, &domain.EventUpdate{MaximumNumberOfParticipants: &capacity})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.UpdateEvent(context.Background(), testTeamID, "missing", testUserA, &domain.EventUpdate{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.repo.updates)
}

func TestUpdateEvent_NewMandatoryAttendee(t *testing.T) {
	active := storedEvent("ev-a", domain.EventStatusActive)
	active.MandatoryAttendees = testUserA
	active.AutoRegisteredAttendees = testUserA
	active.RegisteredAttendeesCount = 1
	f := newEventFixture(active)
	mandatory := testUserA + ";" + testUserB

	got, err := f.svc.UpdateEvent(context.Background(), testTeamID, "ev-a", testUserA, &domain.EventUpdate{MandatoryAttendees: &mandatory})

	require.NoError(t, err)
	assert.Equal(t, 2, got.RegisteredAttendeesCount)
	require.Len(t, f.notifier.userSends, 1)
	assert.Equal(t, []string{testUserB}, f.notifier.userSends[0].users)
	assert.Empty(t, f.notifier.teamSends, "already published events are not announced again")
}

func TestUpdateEvent_DroppedMandatoryAttendee(t *testing.T) {
	active := storedEvent("ev-a", domain.EventStatusActive)
	active.MandatoryAttendees = testUserA + ";" + testUserB
	active.AutoRegisteredAttendees = testUserA + ";" + testUserB
	active.RegisteredAttendeesCount = 2
	f := newEventFixture(active)
	mandatory := testUserB

	got, err := f.svc.UpdateEvent(context.Background(), testTeamID, "ev-a", testUserA, &domain.EventUpdate{MandatoryAttendees: &mandatory})

	require.NoError(t, err)
	assert.Equal(t, testUserB, got.AutoRegisteredAttendees)
	assert.Equal(t, 1, got.RegisteredAttendeesCount)
	assert.False(t, got.HasAttendee(testUserA))
	assert.Equal(t, testUserB, f.repo.byID["ev-a"].AutoRegisteredAttendees)
	assert.Empty(t, f.notifier.userSends)
}

func TestUpdateEvent_KeepsAutoRegisteredWhenMandatoryUnchanged(t *testing.T) {
	active := storedEvent("ev-a", domain.EventStatusActive)
	active.MandatoryAttendees = testUserB
	active.AutoRegisteredAttendees = testUserA + ";" + testUserB
	active.RegisteredAttendeesCount = 2
	f := newEventFixture(active)
	name := "Renamed"

	got, err := f.svc.UpdateEvent(context.Background(), testTeamID, "ev-a", testUserA, &domain.EventUpdate{Name: &name})

	require.NoError(t, err)
	assert.Equal(t, 2, got.RegisteredAttendeesCount)
}

func TestCancelEvent(t *testing.T) {
	active := storedEvent("ev-a", domain.EventStatusActive)
	active.RegisteredAttendees = testUserA
	active.AutoRegisteredAttendees = testUserB
	active.RegisteredAttendeesCount = 2
	f := newEventFixture(active, storedEvent("ev-d", domain.EventStatusDraft))
	f.notifier.teamErr = domain.ErrTeamNotFound

	got, err := f.svc.CancelEvent(context.Background(), testTeamID, "ev-a", testUserA)

	require.NoError(t, err, "team post failures do not fail the cancellation")
	assert.Equal(t, domain.EventStatusCancelled, got.Status)
	assert.Equal(t, domain.EventStatusCancelled, f.repo.byID["ev-a"].Status)
	require.Len(t, f.notifier.userSends, 1)
	assert.Equal(t, domain.CardKindCancellation, f.notifier.userSends[0].card.Kind)
	assert.ElementsMatch(t, []string{testUserA, testUserB}, f.notifier.userSends[0].users)
	assert.Len(t, f.notifier.teamSends, 1)

	_, err = f.svc.CancelEvent(context.Background(), testTeamID, "ev-d", testUserA)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCloseRegistration(t *testing.T) {
	f := newEventFixture(storedEvent("ev-a", domain.EventStatusActive), storedEvent("ev-d", domain.EventStatusDraft))

	got, err := f.svc.CloseRegistration(context.Background(), testTeamID, "ev-a", testUserA)
	require.NoError(t, err)
	assert.True(t, got.IsRegistrationClosed)
	assert.True(t, f.repo.byID["ev-a"].IsRegistrationClosed)

	_, err = f.svc.CloseRegistration(context.Background(), testTeamID, "ev-d", testUserA)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDeleteDraft(t *testing.T) {
	f := newEventFixture(storedEvent("ev-a", domain.EventStatusActive), storedEvent("ev-d", domain.EventStatusDraft))

	require.NoError(t, f.svc.DeleteDraft(context.Background(), testTeamID, "ev-d", testUserA))
	assert.True(t, f.repo.byID["ev-d"].IsRemoved, "drafts are soft deleted")
	_, err := f.svc.GetEvent(context.Background(), testTeamID, "ev-d")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, f.svc.DeleteDraft(context.Background(), testTeamID, "ev-a", testUserA), domain.ErrConflict)
}

func TestSearchEvents(t *testing.T) {
	f := newEventFixture()
	f.searcher.results[domain.SearchScopeRegisteredEvents] = []*domain.Event{storedEvent("ev-a", domain.EventStatusActive)}

	_, err := f.svc.SearchEvents(context.Background(), domain.SearchParameters{Scope: domain.SearchScopeRegisteredEvents})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err := f.svc.SearchEvents(context.Background(), domain.SearchParameters{Scope: domain.SearchScopeRegisteredEvents, UserObjectID: testUserA})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Security", got[0].CategoryName)

	got, err = f.svc.SearchEvents(context.Background(), domain.SearchParameters{Scope: domain.SearchScopeDraftEvents, TeamID: testTeamID})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
