package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"employeetraining/internal/delivery/http/helpers"
	"employeetraining/internal/delivery/http/middleware"
	"employeetraining/internal/domain"
)

type BotController struct {
	Logger  *slog.Logger
	Service domain.BotService
}

func NewBotController(logger *slog.Logger, svc domain.BotService) *BotController {
	return &BotController{Logger: logger, Service: svc}
}

// Messages godoc
// @Summary Bot messaging endpoint
// @Description Receives Bot Framework activities and binds the sending user or team to its conversation for later notifications.
// @Description Requests must carry a Bot Connector token whose serviceurl claim matches the activity.
// @Tags bot
// @Accept json
// @Param activity body domain.Activity true "Bot Framework activity"
// @Success 200 "OK"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /api/messages [post]
func (c *BotController) Messages(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.BotClaimsFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "bot token required")
		return
	}
	var activity domain.Activity
	// Activities carry many more fields than we bind, so unknown fields are allowed here.
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, helpers.MaxBodyBytes)).Decode(&activity); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	// The token is bound to one connector endpoint; an activity naming another one is forged.
	if !sameServiceURL(claims.ServiceURL, activity.ServiceURL) {
		c.Logger.WarnContext(r.Context(), "activity service url does not match token", "service_url", activity.ServiceURL)
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "service url does not match token")
		return
	}
	if err := c.Service.HandleActivity(r.Context(), &activity); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
			return
		}
		c.Logger.ErrorContext(r.Context(), "activity failed", "type", activity.Type, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func sameServiceURL(claimed, actual string) bool {
	claimed = strings.TrimSuffix(strings.TrimSpace(claimed), "/")
	actual = strings.TrimSuffix(strings.TrimSpace(actual), "/")
	return claimed != "" && strings.EqualFold(claimed, actual)
}
