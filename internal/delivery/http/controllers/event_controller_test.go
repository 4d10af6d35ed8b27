package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"employeetraining/internal/delivery/http/helpers"
	"employeetraining/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *helpers.APIError {
	t.Helper()
	var resp helpers.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestEventController_CreateEvent(t *testing.T) {
	body := `{
		"team_id": "` + testTeamID + `",
		"name": "Go basics",
		"description": "Intro",
		"start_date": "2026-11-02",
		"end_date": "2026-11-02",
		"start_time": "09:00",
		"end_time": "11:30",
		"type": 1,
		"venue": "Room 4",
		"category_id": "0b1c2d3e-4f5a-4b6c-8d7e-9f0a1b2c3d4e",
		"maximum_number_of_participants": 20,
		"audience": 1,
		"mandatory_attendees": [" A1B2C3D4-E5F6-4A7B-8C9D-0E1F2A3B4C5D ", ""]
	}`

	t.Run("created", func(t *testing.T) {
		svc := &fakeEventService{}
		ctrl := NewEventController(testLogger, svc)
		rec := httptest.NewRecorder()

		ctrl.CreateEvent(rec, authed(jsonRequest(http.MethodPost, "/api/events", body)))

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, svc.lastCreate)
		assert.Equal(t, testUserID, svc.lastUserID)
		assert.Equal(t, "Go basics", svc.lastCreate.Name)
		assert.Equal(t, time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), svc.lastCreate.StartDate)
		require.NotNil(t, svc.lastCreate.EndTime)
		assert.Equal(t, 11, svc.lastCreate.EndTime.Hour())
		assert.Equal(t, 30, svc.lastCreate.EndTime.Minute())
		assert.Equal(t, domain.EventTypeInPerson, svc.lastCreate.Type)
		assert.Equal(t, "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d", svc.lastCreate.MandatoryAttendees)

		var resp EventSuccessResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.NotNil(t, resp.Data)
		assert.Equal(t, testEventID, resp.Data.ID)
		assert.Nil(t, resp.Error)
	})

	t.Run("bad date format", func(t *testing.T) {
		svc := &fakeEventService{}
		ctrl := NewEventController(testLogger, svc)
		rec := httptest.NewRecorder()

		ctrl.CreateEvent(rec, authed(jsonRequest(http.MethodPost, "/api/events",
			`{"team_id":"`+testTeamID+`","start_date":"02/11/2026"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "start_date must use the format 2006-01-02")
		assert.Nil(t, svc.lastCreate)
	})

	t.Run("missing team", func(t *testing.T) {
		ctrl := NewEventController(testLogger, &fakeEventService{})
		rec := httptest.NewRecorder()

		ctrl.CreateEvent(rec, authed(jsonRequest(http.MethodPost, "/api/events", `{"name":"x"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "team_id is required")
	})

	t.Run("unknown field", func(t *testing.T) {
		ctrl := NewEventController(testLogger, &fakeEventService{})
		rec := httptest.NewRecorder()

		ctrl.CreateEvent(rec, authed(jsonRequest(http.MethodPost, "/api/events", `{"team_id":"t","owner":"x"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation error from service", func(t *testing.T) {
		svc := &fakeEventService{err: domain.NewValidationError([]string{"venue is required"})}
		ctrl := NewEventController(testLogger, svc)
		rec := httptest.NewRecorder()

		ctrl.CreateEvent(rec, authed(jsonRequest(http.MethodPost, "/api/events", body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		e := decodeError(t, rec)
		assert.Equal(t, helpers.ErrCodeBadRequest, e.Code)
		assert.Contains(t, e.Message, "venue is required")
	})

	t.Run("unauthenticated", func(t *testing.T) {
		ctrl := NewEventController(testLogger, &fakeEventService{})
		rec := httptest.NewRecorder()

		ctrl.CreateEvent(rec, jsonRequest(http.MethodPost, "/api/events", body))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("internal error", func(t *testing.T) {
		ctrl := NewEventController(testLogger, &fakeEventService{err: errors.New("db down")})
		rec := httptest.NewRecorder()

		ctrl.CreateEvent(rec, authed(jsonRequest(http.MethodPost, "/api/events", body)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, helpers.ErrCodeInternalError, decodeError(t, rec).Code)
	})
}

func TestEventController_ListEvents(t *testing.T) {
	t.Run("defaults to active", func(t *testing.T) {
		svc := &fakeEventService{events: []*domain.Event{{ID: testEventID, Name: "Go basics"}}, total: 41}
		ctrl := NewEventController(testLogger, svc)
		rec := httptest.NewRecorder()

		ctrl.ListEvents(rec, authed(jsonRequest(http.MethodGet, "/api/events?team_id="+testTeamID+"&page=2&page_size=20", "")))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testTeamID, svc.lastTeamID)
		assert.Equal(t, domain.EventStatusActive, svc.lastStatus)
		assert.Equal(t, domain.PaginationParams{Page: 2, PageSize: 20}, svc.lastPage)

		var resp EventPageSuccessResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Data.Items, 1)
		assert.Equal(t, 41, resp.Data.Pagination.Total)
		assert.Equal(t, 3, resp.Data.Pagination.TotalPages)
	})

	t.Run("status filter", func(t *testing.T) {
		svc := &fakeEventService{}
		ctrl := NewEventController(testLogger, svc)
		rec := httptest.NewRecorder()

		ctrl.ListEvents(rec, authed(jsonRequest(http.MethodGet, "/api/events?team_id="+testTeamID+"&status=1", "")))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.EventStatusDraft, svc.lastStatus)
	})

	t.Run("bad status", func(t *testing.T) {
		ctrl := NewEventController(testLogger, &fakeEventService{})
		rec := httptest.NewRecorder()

		ctrl.ListEvents(rec, authed(jsonRequest(http.MethodGet, "/api/events?team_id="+testTeamID+"&status=draft", "")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing team", func(t *testing.T) {
		ctrl := NewEventController(testLogger, &fakeEventService{})
		rec := httptest.NewRecorder()

		ctrl.ListEvents(rec, authed(jsonRequest(http.MethodGet, "/api/events", "")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "team_id is required", decodeError(t, rec).Message)
	})
}

func TestEventController_GetEvent(t *testing.T) {
	tests := []struct {
		name     string
		eventID  string
		svcErr   error
		wantCode int
	}{
		{"found", testEventID, nil, http.StatusOK},
		{"not found", testEventID, fmt.Errorf("get event: %w", domain.ErrNotFound), http.StatusNotFound},
		{"invalid id", "not-a-guid", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventService{event: &domain.Event{ID: testEventID}, err: tt.svcErr}
			ctrl := NewEventController(testLogger, svc)
			req := authed(jsonRequest(http.MethodGet, "/api/events/"+tt.eventID+"?team_id="+testTeamID, ""))
			req.SetPathValue("eventID", tt.eventID)
			rec := httptest.NewRecorder()

			ctrl.GetEvent(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusNotFound {
				assert.Equal(t, "event not found", decodeError(t, rec).Message)
			}
		})
	}
}

func TestEventController_UpdateEvent(t *testing.T) {
	t.Run("partial update", func(t *testing.T) {
		svc := &fakeEventService{event: &domain.Event{ID: testEventID, Name: "Renamed"}}
		ctrl := NewEventController(testLogger, svc)
		req := authed(jsonRequest(http.MethodPatch, "/api/events/"+testEventID+"?team_id="+testTeamID,
			`{"name":"Renamed","status":2,"start_time":"14:00","optional_attendees":[]}`))
		req.SetPathValue("eventID", testEventID)
		rec := httptest.NewRecorder()

		ctrl.UpdateEvent(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, svc.lastUpdate)
		require.NotNil(t, svc.lastUpdate.Name)
		assert.Equal(t, "Renamed", *svc.lastUpdate.Name)
		require.NotNil(t, svc.lastUpdate.Status)
		assert.Equal(t, domain.EventStatusActive, *svc.lastUpdate.Status)
		require.NotNil(t, svc.lastUpdate.StartTime)
		assert.Equal(t, 14, svc.lastUpdate.StartTime.Hour())
		assert.Nil(t, svc.lastUpdate.Description)
		assert.Nil(t, svc.lastUpdate.MandatoryAttendees)
		require.NotNil(t, svc.lastUpdate.OptionalAttendees)
		assert.Empty(t, *svc.lastUpdate.OptionalAttendees)
	})

	t.Run("conflict", func(t *testing.T) {
		svc := &fakeEventService{err: fmt.Errorf("%w: event is cancelled", domain.ErrConflict)}
		ctrl := NewEventController(testLogger, svc)
		req := authed(jsonRequest(http.MethodPatch, "/api/events/"+testEventID+"?team_id="+testTeamID, `{"name":"x"}`))
		req.SetPathValue("eventID", testEventID)
		rec := httptest.NewRecorder()

		ctrl.UpdateEvent(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, helpers.ErrCodeConflict, decodeError(t, rec).Code)
	})
}

func TestEventController_Transitions(t *testing.T) {
	cancelled := &domain.Event{ID: testEventID, Status: domain.EventStatusCancelled}
	tests := []struct {
		name     string
		handler  func(c *EventController) http.HandlerFunc
		svcErr   error
		wantCode int
	}{
		{"cancel", func(c *EventController) http.HandlerFunc { return c.CancelEvent }, nil, http.StatusOK},
		{"cancel not active", func(c *EventController) http.HandlerFunc { return c.CancelEvent }, domain.ErrConflict, http.StatusConflict},
		{"close registration", func(c *EventController) http.HandlerFunc { return c.CloseRegistration }, nil, http.StatusOK},
		{"close registration missing", func(c *EventController) http.HandlerFunc { return c.CloseRegistration }, domain.ErrNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEventService{event: cancelled, err: tt.svcErr}
			ctrl := NewEventController(testLogger, svc)
			req := authed(jsonRequest(http.MethodPost, "/api/events/"+testEventID+"/x?team_id="+testTeamID, ""))
			req.SetPathValue("eventID", testEventID)
			rec := httptest.NewRecorder()

			tt.handler(ctrl)(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, testEventID, svc.lastEventID)
			assert.Equal(t, testTeamID, svc.lastTeamID)
			assert.Equal(t, testUserID, svc.lastUserID)
		})
	}
}

func TestEventController_DeleteEvent(t *testing.T) {
	svc := &fakeEventService{}
	ctrl := NewEventController(testLogger, svc)
	req := authed(jsonRequest(http.MethodDelete, "/api/events/"+testEventID+"?team_id="+testTeamID, ""))
	req.SetPathValue("eventID", testEventID)
	rec := httptest.NewRecorder()

	ctrl.DeleteEvent(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.deleteCalled)
	assert.Empty(t, rec.Body.String())
}

func TestEventController_SearchEvents(t *testing.T) {
	t.Run("personal scope uses caller", func(t *testing.T) {
		now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
		svc := &fakeEventService{events: []*domain.Event{{ID: testEventID}}}
		ctrl := NewEventController(testLogger, svc)
		ctrl.now = func() time.Time { return now }
		rec := httptest.NewRecorder()

		ctrl.SearchEvents(rec, authed(jsonRequest(http.MethodGet, "/api/events/search?scope=registered&q=+golang+", "")))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.SearchScopeRegisteredEvents, svc.lastSearch.Scope)
		assert.Equal(t, "golang", svc.lastSearch.Query)
		assert.Equal(t, testUserID, svc.lastSearch.UserObjectID)
		assert.Equal(t, now, svc.lastSearch.ReferenceDate)
	})

	t.Run("unknown scope", func(t *testing.T) {
		ctrl := NewEventController(testLogger, &fakeEventService{})
		rec := httptest.NewRecorder()

		ctrl.SearchEvents(rec, authed(jsonRequest(http.MethodGet, "/api/events/search?scope=someday", "")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
