package controllers

import (
	"log/slog"
	"net/http"

	"employeetraining/internal/delivery/http/helpers"
	"employeetraining/internal/delivery/http/middleware"
	"employeetraining/internal/domain"
)

type AttendeeController struct {
	Logger  *slog.Logger
	Service domain.AttendeeService
}

func NewAttendeeController(logger *slog.Logger, svc domain.AttendeeService) *AttendeeController {
	return &AttendeeController{
		Logger:  logger,
		Service: svc,
	}
}

// RegisterForEvent godoc
// @Summary Register the caller for an event
// @Description Idempotent: returns 201 when the caller is newly registered, 200 when already registered (explicitly or as a mandatory attendee).
// @Tags attendee
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param team_id query string true "Team ID"
// @Success 200 {object} controllers.EventSuccessResponse "Already registered"
// @Success 201 {object} controllers.EventSuccessResponse "Registered"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (registration closed or event full)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/events/{eventID}/registrations [post]
func (c *AttendeeController) RegisterForEvent(w http.ResponseWriter, r *http.Request) {
	eventID, teamID, ok := eventTarget(w, r)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}

	event, created, err := c.Service.RegisterForEvent(r.Context(), teamID, eventID, userID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if created {
		helpers.WriteJSONSuccess(w, http.StatusCreated, event)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UnregisterFromEvent godoc
// @Summary Unregister the caller from an event
// @Description Mandatory attendees cannot unregister. Unregistering when not registered is a no-op.
// @Tags attendee
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param team_id query string true "Team ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (mandatory attendee)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/events/{eventID}/registrations [delete]
func (c *AttendeeController) UnregisterFromEvent(w http.ResponseWriter, r *http.Request) {
	eventID, teamID, ok := eventTarget(w, r)
	if !ok {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Service.UnregisterFromEvent(r.Context(), teamID, eventID, userID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListMyEvents godoc
// @Summary List the caller's events
// @Description Scope is one of mandatory, registered (default) or more (open events the caller has not joined).
// @Tags attendee
// @Produce json
// @Security BearerAuth
// @Param scope query string false "mandatory | registered | more"
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/me/events [get]
func (c *AttendeeController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	scope := domain.SearchScopeRegisteredEvents
	if s := r.URL.Query().Get("scope"); s != "" {
		parsed, err := domain.ParseSearchScope(s)
		if err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		scope = parsed
	}
	events, err := c.Service.ListMyEvents(r.Context(), userID, scope, helpers.ParsePagination(r))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

func (c *AttendeeController) fail(w http.ResponseWriter, r *http.Request, err error) {
	if helpers.WriteDomainError(w, err, "event not found") {
		return
	}
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
}
