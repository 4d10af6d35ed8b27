package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// CardEmailData holds data for the card notification email.
type CardEmailData struct {
	Summary string
	Text    string
}
