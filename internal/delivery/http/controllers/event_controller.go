package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"employeetraining/internal/delivery/http/helpers"
	"employeetraining/internal/delivery/http/middleware"
	"employeetraining/internal/domain"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// EventRequest carries the organizer-editable event fields shared by create and update.
// Dates use YYYY-MM-DD and times use HH:MM (24h).
type EventRequest struct {
	Name                        *string  `json:"name"`
	Description                 *string  `json:"description"`
	Photo                       *string  `json:"photo"`
	StartDate                   *string  `json:"start_date"`
	EndDate                     *string  `json:"end_date"`
	StartTime                   *string  `json:"start_time"`
	EndTime                     *string  `json:"end_time"`
	Type                        *int     `json:"type"`
	Venue                       *string  `json:"venue"`
	MeetingLink                 *string  `json:"meeting_link"`
	CategoryID                  *string  `json:"category_id"`
	MaximumNumberOfParticipants *int     `json:"maximum_number_of_participants"`
	Audience                    *int     `json:"audience"`
	MandatoryAttendees          []string `json:"mandatory_attendees"`
	OptionalAttendees           []string `json:"optional_attendees"`
	Status                      *int     `json:"status"`

	startDate, endDate, startTime, endTime *time.Time
}

// Validate implements helpers.Validator. It checks formats only; business rules are enforced by the service.
func (r *EventRequest) Validate() []string {
	var errs []string
	parse := func(field string, v *string, layout string) *time.Time {
		if v == nil || *v == "" {
			return nil
		}
		t, err := time.Parse(layout, *v)
		if err != nil {
			errs = append(errs, field+" must use the format "+layout)
			return nil
		}
		return &t
	}
	r.startDate = parse("start_date", r.StartDate, dateLayout)
	r.endDate = parse("end_date", r.EndDate, dateLayout)
	r.startTime = parse("start_time", r.StartTime, timeLayout)
	r.endTime = parse("end_time", r.EndTime, timeLayout)
	return errs
}

// CreateEventRequest is the request body for POST /api/events.
type CreateEventRequest struct {
	TeamID string `json:"team_id"`
	EventRequest
}

// Validate implements helpers.Validator.
func (r *CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(r.TeamID) == "" {
		errs = append(errs, "team_id is required")
	}
	return append(errs, r.EventRequest.Validate()...)
}

func (r *CreateEventRequest) toEvent() *domain.Event {
	e := &domain.Event{
		TeamID:             r.TeamID,
		Name:               strings.TrimSpace(deref(r.Name)),
		Description:        deref(r.Description),
		Photo:              deref(r.Photo),
		StartTime:          r.startTime,
		EndTime:            r.endTime,
		Type:               domain.EventType(derefInt(r.Type)),
		Venue:              deref(r.Venue),
		MeetingLink:        deref(r.MeetingLink),
		CategoryID:         deref(r.CategoryID),
		Audience:           domain.EventAudience(derefInt(r.Audience)),
		Status:             domain.EventStatus(derefInt(r.Status)),
		MandatoryAttendees: joinIDs(r.MandatoryAttendees),
		OptionalAttendees:  joinIDs(r.OptionalAttendees),
	}
	e.MaximumNumberOfParticipants = derefInt(r.MaximumNumberOfParticipants)
	if r.startDate != nil {
		e.StartDate = *r.startDate
	}
	if r.endDate != nil {
		e.EndDate = *r.endDate
	}
	return e
}

// UpdateEventRequest is the request body for PATCH /api/events/{eventID}. Omitted fields are unchanged.
type UpdateEventRequest struct {
	EventRequest
}

func (r *UpdateEventRequest) toUpdate() *domain.EventUpdate {
	u := &domain.EventUpdate{
		Name:                        r.Name,
		Description:                 r.Description,
		Photo:                       r.Photo,
		StartDate:                   r.startDate,
		EndDate:                     r.endDate,
		StartTime:                   r.startTime,
		EndTime:                     r.endTime,
		Venue:                       r.Venue,
		MeetingLink:                 r.MeetingLink,
		CategoryID:                  r.CategoryID,
		MaximumNumberOfParticipants: r.MaximumNumberOfParticipants,
	}
	if r.Type != nil {
		t := domain.EventType(*r.Type)
		u.Type = &t
	}
	if r.Audience != nil {
		a := domain.EventAudience(*r.Audience)
		u.Audience = &a
	}
	if r.Status != nil {
		s := domain.EventStatus(*r.Status)
		u.Status = &s
	}
	if r.MandatoryAttendees != nil {
		v := joinIDs(r.MandatoryAttendees)
		u.MandatoryAttendees = &v
	}
	if r.OptionalAttendees != nil {
		v := joinIDs(r.OptionalAttendees)
		u.OptionalAttendees = &v
	}
	return u
}

// EventSuccessResponse is the success envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventPageSuccessResponse is the success envelope for GET /api/events.
type EventPageSuccessResponse struct {
	Data  helpers.Page[*domain.Event] `json:"data"`
	Error *helpers.APIError           `json:"error"`
}

// EventListSuccessResponse is the success envelope for search endpoints.
type EventListSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	now     func() time.Time
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		now:     time.Now,
	}
}

// CreateEvent godoc
// @Summary Create a training event
// @Description Creates a draft (status 1, default) or publishes an active event (status 2). Publishing auto-registers mandatory attendees and posts a card to the team channel.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event := req.toEvent()
	if err := c.Service.CreateEvent(r.Context(), event, userID); err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List a team's events
// @Description Lists events of a team with the given status (default 2, active), newest first.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param team_id query string true "Team ID"
// @Param status query int false "1 draft, 2 active, 3 cancelled, 4 completed"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.EventPageSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	teamID, ok := helpers.RequiredQuery(w, r, "team_id")
	if !ok {
		return
	}
	status := domain.EventStatusActive
	if s := r.URL.Query().Get("status"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "status must be a number")
			return
		}
		status = domain.EventStatus(v)
	}
	params := helpers.ParsePagination(r)
	events, total, err := c.Service.ListEvents(r.Context(), teamID, status, params)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, helpers.NewPage(events, params, total))
}

// GetEvent godoc
// @Summary Get an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param team_id query string true "Team ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, teamID, ok := eventTarget(w, r)
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), teamID, eventID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Edits a draft or active event. Setting status 2 on a draft publishes it.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param team_id query string true "Team ID"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, teamID, ok := eventTarget(w, r)
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), teamID, eventID, userID, req.toUpdate())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CancelEvent godoc
// @Summary Cancel an active event
// @Description Cancels the event and notifies its attendees and the team channel.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param team_id query string true "Team ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/events/{eventID}/cancel [post]
func (c *EventController) CancelEvent(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.Service.CancelEvent)
}

// CloseRegistration godoc
// @Summary Close registration for an active event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param team_id query string true "Team ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/events/{eventID}/close-registration [post]
func (c *EventController) CloseRegistration(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, c.Service.CloseRegistration)
}

// DeleteEvent godoc
// @Summary Delete a draft event
// @Description Soft-deletes a draft. Published events must be cancelled instead.
// @Tags events
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param team_id query string true "Team ID"
// @Success 204 "No Content"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, teamID, ok := eventTarget(w, r)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	if err := c.Service.DeleteDraft(r.Context(), teamID, eventID, userID); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchEvents godoc
// @Summary Search events
// @Description Free-text search within a scope: all, upcoming, completed, draft, cancelled, mandatory, registered, more. Personal scopes use the caller's identity.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param scope query string false "Search scope (default all)"
// @Param q query string false "Free text"
// @Param team_id query string false "Team ID"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/events/search [get]
func (c *EventController) SearchEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	q := r.URL.Query()
	scope, err := domain.ParseSearchScope(q.Get("scope"))
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	events, err := c.Service.SearchEvents(r.Context(), domain.SearchParameters{
		Scope:         scope,
		Query:         strings.TrimSpace(q.Get("q")),
		TeamID:        q.Get("team_id"),
		UserObjectID:  userID,
		ReferenceDate: c.now(),
		Page:          helpers.ParsePagination(r),
	})
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// transition runs a status change that takes no body and returns the updated event.
func (c *EventController) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, teamID, eventID, updatedBy string) (*domain.Event, error)) {
	eventID, teamID, ok := eventTarget(w, r)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := apply(r.Context(), teamID, eventID, userID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

func (c *EventController) fail(w http.ResponseWriter, r *http.Request, err error) {
	if helpers.WriteDomainError(w, err, "event not found") {
		return
	}
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
}

// eventTarget reads the event id path value and the team_id query parameter.
func eventTarget(w http.ResponseWriter, r *http.Request) (eventID, teamID string, ok bool) {
	if eventID, ok = helpers.PathGUID(w, r, "eventID"); !ok {
		return "", "", false
	}
	if teamID, ok = helpers.RequiredQuery(w, r, "team_id"); !ok {
		return "", "", false
	}
	return eventID, teamID, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func joinIDs(ids []string) string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, strings.ToLower(id))
		}
	}
	return domain.JoinAttendees(out)
}
