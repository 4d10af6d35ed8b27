package middleware

import (
	"context"
	"log/slog"
	"net/http"

	h "employeetraining/internal/delivery/http/helpers"
	"employeetraining/internal/domain"
)

const botClaimsKey contextKey = "botClaims"

// SetBotClaims returns a context carrying verified Bot Connector claims.
func SetBotClaims(ctx context.Context, claims *domain.BotClaims) context.Context {
	return context.WithValue(ctx, botClaimsKey, claims)
}

// BotClaimsFromContext returns the claims stored by RequireBotAuth, if present.
func BotClaimsFromContext(ctx context.Context) (*domain.BotClaims, bool) {
	claims, ok := ctx.Value(botClaimsKey).(*domain.BotClaims)
	return claims, ok && claims != nil
}

// RequireBotAuth admits only requests carrying a token issued by the Bot Connector.
func RequireBotAuth(verifier domain.BotTokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, problem := bearerToken(r)
			if problem != "" {
				logger.WarnContext(r.Context(), "bot activity rejected", "reason", problem)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, problem)
				return
			}
			claims, err := verifier.VerifyBotToken(r.Context(), token)
			if err != nil {
				logger.WarnContext(r.Context(), "bot token rejected", "err", err)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid bot token")
				return
			}
			next(w, r.WithContext(SetBotClaims(r.Context(), claims)))
		}
	}
}
