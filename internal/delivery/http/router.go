package http

import (
	"log/slog"
	"net/http"

	"employeetraining/internal/delivery/http/controllers"
	"employeetraining/internal/delivery/http/middleware"
	"employeetraining/internal/domain"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Controllers groups the handlers served by the router.
type Controllers struct {
	Events     *controllers.EventController
	Attendees  *controllers.AttendeeController
	Categories *controllers.CategoryController
	Bot        *controllers.BotController
	Health     *controllers.HealthController
}

// NewRouter initializes the HTTP router with all application routes.
// Every /api route requires a Bearer token: a user token checked by verifier, or
// for the bot messaging endpoint a Bot Connector token checked by botVerifier.
func NewRouter(c Controllers, verifier domain.TokenVerifier, botVerifier domain.BotTokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)
	botAuth := middleware.RequireBotAuth(botVerifier, logger)

	// Events
	mux.HandleFunc("GET /api/events", auth(c.Events.ListEvents))
	mux.HandleFunc("POST /api/events", auth(c.Events.CreateEvent))
	mux.HandleFunc("GET /api/events/search", auth(c.Events.SearchEvents))
	mux.HandleFunc("GET /api/events/{eventID}", auth(c.Events.GetEvent))
	mux.HandleFunc("PATCH /api/events/{eventID}", auth(c.Events.UpdateEvent))
	mux.HandleFunc("DELETE /api/events/{eventID}", auth(c.Events.DeleteEvent))
	mux.HandleFunc("POST /api/events/{eventID}/cancel", auth(c.Events.CancelEvent))
	mux.HandleFunc("POST /api/events/{eventID}/close-registration", auth(c.Events.CloseRegistration))

	// Registrations
	mux.HandleFunc("POST /api/events/{eventID}/registrations", auth(c.Attendees.RegisterForEvent))
	mux.HandleFunc("DELETE /api/events/{eventID}/registrations", auth(c.Attendees.UnregisterFromEvent))
	mux.HandleFunc("GET /api/me/events", auth(c.Attendees.ListMyEvents))

	// Categories
	mux.HandleFunc("GET /api/categories", auth(c.Categories.ListCategories))
	mux.HandleFunc("POST /api/categories", auth(c.Categories.CreateCategory))
	mux.HandleFunc("PATCH /api/categories/{categoryID}", auth(c.Categories.UpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{categoryID}", auth(c.Categories.DeleteCategory))

	// Bot
	mux.HandleFunc("POST /api/messages", botAuth(c.Bot.Messages))

	mux.HandleFunc("GET /healthz", c.Health.Health)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with the server-wide middleware chain.
func NewHandler(mux *http.ServeMux, allowedOrigins []string, logger *slog.Logger) http.Handler {
	var h http.Handler = mux
	h = middleware.CORS(allowedOrigins, h)
	h = middleware.Recover(logger, h)
	return middleware.LoggingMiddleware(logger, h)
}
