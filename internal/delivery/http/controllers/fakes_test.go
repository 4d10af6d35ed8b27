package controllers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"employeetraining/internal/delivery/http/middleware"
	"employeetraining/internal/domain"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	testTeamID  = "19:team@thread.skype"
	testEventID = "6f1c2d3e-4a5b-4c6d-8e9f-0a1b2c3d4e5f"
	testUserID  = "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
)

// authed attaches the test caller to the request context as RequireAuth would.
func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.SetUserID(req.Context(), testUserID))
}

// fromConnector marks req as carrying a verified Bot Connector token for serviceURL.
func fromConnector(req *http.Request, serviceURL string) *http.Request {
	return req.WithContext(middleware.SetBotClaims(req.Context(), &domain.BotClaims{ServiceURL: serviceURL}))
}

func jsonRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	err          error
	event        *domain.Event
	events       []*domain.Event
	total        int
	lastCreate   *domain.Event
	lastTeamID   string
	lastEventID  string
	lastUserID   string
	lastStatus   domain.EventStatus
	lastPage     domain.PaginationParams
	lastUpdate   *domain.EventUpdate
	lastSearch   domain.SearchParameters
	deleteCalled bool
}

func (f *fakeEventService) CreateEvent(ctx context.Context, event *domain.Event, createdBy string) error {
	f.lastCreate = event
	f.lastUserID = createdBy
	if f.err != nil {
		return f.err
	}
	event.ID = testEventID
	event.CreatedBy = createdBy
	if event.Status == 0 {
		event.Status = domain.EventStatusDraft
	}
	return nil
}

func (f *fakeEventService) GetEvent(ctx context.Context, teamID, eventID string) (*domain.Event, error) {
	f.lastTeamID, f.lastEventID = teamID, eventID
	return f.event, f.err
}

func (f *fakeEventService) ListEvents(ctx context.Context, teamID string, status domain.EventStatus, page domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastTeamID, f.lastStatus, f.lastPage = teamID, status, page
	return f.events, f.total, f.err
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, teamID, eventID, updatedBy string, update *domain.EventUpdate) (*domain.Event, error) {
	f.lastTeamID, f.lastEventID, f.lastUserID, f.lastUpdate = teamID, eventID, updatedBy, update
	return f.event, f.err
}

func (f *fakeEventService) CancelEvent(ctx context.Context, teamID, eventID, updatedBy string) (*domain.Event, error) {
	f.lastTeamID, f.lastEventID, f.lastUserID = teamID, eventID, updatedBy
	return f.event, f.err
}

func (f *fakeEventService) CloseRegistration(ctx context.Context, teamID, eventID, updatedBy string) (*domain.Event, error) {
	f.lastTeamID, f.lastEventID, f.lastUserID = teamID, eventID, updatedBy
	return f.event, f.err
}

func (f *fakeEventService) DeleteDraft(ctx context.Context, teamID, eventID, updatedBy string) error {
	f.deleteCalled = true
	f.lastTeamID, f.lastEventID, f.lastUserID = teamID, eventID, updatedBy
	return f.err
}

func (f *fakeEventService) SearchEvents(ctx context.Context, params domain.SearchParameters) ([]*domain.Event, error) {
	f.lastSearch = params
	return f.events, f.err
}

// fakeAttendeeService implements domain.AttendeeService.
type fakeAttendeeService struct {
	err         error
	event       *domain.Event
	created     bool
	events      []*domain.Event
	lastTeamID  string
	lastEventID string
	lastUserID  string
	lastScope   domain.SearchScope
}

func (f *fakeAttendeeService) RegisterForEvent(ctx context.Context, teamID, eventID, userID string) (*domain.Event, bool, error) {
	f.lastTeamID, f.lastEventID, f.lastUserID = teamID, eventID, userID
	return f.event, f.created, f.err
}

func (f *fakeAttendeeService) UnregisterFromEvent(ctx context.Context, teamID, eventID, userID string) (*domain.Event, error) {
	f.lastTeamID, f.lastEventID, f.lastUserID = teamID, eventID, userID
	return f.event, f.err
}

func (f *fakeAttendeeService) ListMyEvents(ctx context.Context, userID string, scope domain.SearchScope, page domain.PaginationParams) ([]*domain.Event, error) {
	f.lastUserID, f.lastScope = userID, scope
	return f.events, f.err
}

// fakeCategoryService implements domain.CategoryService.
type fakeCategoryService struct {
	err        error
	categories []*domain.Category
	updated    *domain.Category
	lastID     string
	lastName   string
	lastUserID string
}

func (f *fakeCategoryService) CreateCategory(ctx context.Context, c *domain.Category, createdBy string) error {
	f.lastName, f.lastUserID = c.Name, createdBy
	if f.err != nil {
		return f.err
	}
	c.ID = "0b1c2d3e-4f5a-4b6c-8d7e-9f0a1b2c3d4e"
	return nil
}

func (f *fakeCategoryService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return f.categories, f.err
}

func (f *fakeCategoryService) UpdateCategory(ctx context.Context, id, name, description, updatedBy string) (*domain.Category, error) {
	f.lastID, f.lastName, f.lastUserID = id, name, updatedBy
	return f.updated, f.err
}

func (f *fakeCategoryService) DeleteCategory(ctx context.Context, id string) error {
	f.lastID = id
	return f.err
}

func (f *fakeCategoryService) Enrich(ctx context.Context, events []*domain.Event) ([]*domain.Event, error) {
	return events, nil
}

// fakeBotService implements domain.BotService.
type fakeBotService struct {
	err  error
	last *domain.Activity
}

func (f *fakeBotService) HandleActivity(ctx context.Context, activity *domain.Activity) error {
	f.last = activity
	return f.err
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }
