package domain

import (
	"context"
	"time"
)

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user object id.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// BotClaims are the verified claims of a token the Bot Connector attaches to an inbound activity.
type BotClaims struct {
	// ServiceURL is the connector endpoint the token was issued for.
	ServiceURL string
}

// BotTokenVerifier verifies Bot Connector tokens against the connector's published signing keys.
type BotTokenVerifier interface {
	VerifyBotToken(ctx context.Context, token string) (*BotClaims, error)
}
