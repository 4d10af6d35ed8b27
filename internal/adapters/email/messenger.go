package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"employeetraining/internal/domain"
)

// Messenger delivers cards by email. It implements domain.Messenger for users without a bot conversation.
type Messenger struct {
	mailer    domain.Mailer
	templates *cardTemplates
}

// NewMessenger returns a Messenger that renders cards with the embedded card templates and sends them with mailer.
func NewMessenger(mailer domain.Mailer) *Messenger {
	return &Messenger{mailer: mailer, templates: defaultCardTemplates}
}

// Send emails the plain-text rendition of card to ref.Email and returns a generated message id.
func (m *Messenger) Send(ctx context.Context, ref domain.ConversationReference, card *domain.Card) (string, error) {
	if ref.Email == "" {
		return "", fmt.Errorf("%w: recipient has no email address", domain.ErrInvalidInput)
	}
	msg, err := m.templates.render(card)
	if err != nil {
		return "", fmt.Errorf("failed to render card email: %w", err)
	}
	if err := m.mailer.Send(ctx, ref.Email, msg.Subject, msg.HTML, msg.Text); err != nil {
		return "", fmt.Errorf("failed to send card email: %w", err)
	}
	return uuid.NewString(), nil
}

// Update cannot edit a sent email, so it sends the new card as a fresh message.
func (m *Messenger) Update(ctx context.Context, ref domain.ConversationReference, activityID string, card *domain.Card) (string, error) {
	if activityID == "" {
		return "", domain.ErrActivityIDRequired
	}
	return m.Send(ctx, ref, card)
}

// NoopMessenger logs cards instead of delivering them. It needs no recipient address.
type NoopMessenger struct {
	logger *slog.Logger
}

// NewNoopMessenger returns a Messenger for local runs without a bot or mail provider.
func NewNoopMessenger(logger *slog.Logger) *NoopMessenger {
	return &NoopMessenger{logger: logger}
}

func (m *NoopMessenger) Send(ctx context.Context, ref domain.ConversationReference, card *domain.Card) (string, error) {
	id := uuid.NewString()
	m.logger.InfoContext(ctx, "card not delivered (noop messenger)",
		"conversation_id", ref.ConversationID, "kind", card.Kind, "summary", card.Summary, "activity_id", id)
	return id, nil
}

func (m *NoopMessenger) Update(ctx context.Context, ref domain.ConversationReference, activityID string, card *domain.Card) (string, error) {
	if activityID == "" {
		return "", domain.ErrActivityIDRequired
	}
	m.logger.InfoContext(ctx, "card update not delivered (noop messenger)",
		"conversation_id", ref.ConversationID, "kind", card.Kind, "activity_id", activityID)
	return activityID, nil
}
