package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"employeetraining/internal/domain"
)

const (
	// defaultMaxRetries is the number of extra attempts after the first send.
	defaultMaxRetries = 2
	// defaultRetryBase gives a first retry between 1s and 2s (median 1.5s).
	defaultRetryBase = time.Second
)

type notificationService struct {
	messenger  domain.Messenger
	teamRepo   domain.TeamConfigurationRepository
	logger     *slog.Logger
	maxRetries int
	retryBase  time.Duration
	// sleep and jitter are replaced in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewNotificationService returns the notification dispatcher. Sends are retried only for transient transport errors.
func NewNotificationService(messenger domain.Messenger, teamRepo domain.TeamConfigurationRepository, logger *slog.Logger) domain.NotificationService {
	return &notificationService{
		messenger:  messenger,
		teamRepo:   teamRepo,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		retryBase:  defaultRetryBase,
		sleep:      sleepContext,
		jitter:     rand.Float64,
	}
}

func (s *notificationService) SendToUsers(ctx context.Context, card *domain.Card, users []*domain.UserConfiguration) domain.DispatchReport {
	report := domain.DispatchReport{Sent: []string{}, Failed: []domain.DispatchFailure{}}
	for _, user := range users {
		if user == nil {
			continue
		}
		ref := domain.ConversationReference{
			ConversationID: user.ConversationID,
			ServiceURL:     user.ServiceURL,
			TenantID:       user.TenantID,
			Email:          user.Email,
		}
		_, err := s.withRetry(ctx, func() (string, error) {
			return s.messenger.Send(ctx, ref, card)
		})
		if err != nil {
			s.logger.WarnContext(ctx, "card delivery failed", "user", user.AADObjectID, "err", err)
			report.Failed = append(report.Failed, domain.DispatchFailure{UserObjectID: user.AADObjectID, Err: err})
			continue
		}
		report.Sent = append(report.Sent, user.AADObjectID)
	}
	return report
}

func (s *notificationService) SendToTeam(ctx context.Context, teamID string, card *domain.Card) (string, error) {
	ref, err := s.teamReference(ctx, teamID)
	if err != nil {
		return "", err
	}
	id, err := s.withRetry(ctx, func() (string, error) {
		return s.messenger.Send(ctx, ref, card)
	})
	if err != nil {
		return "", fmt.Errorf("send card to team %s: %w", teamID, err)
	}
	return id, nil
}

func (s *notificationService) UpdateTeamCard(ctx context.Context, teamID, activityID string, card *domain.Card) (string, error) {
	if activityID == "" {
		return "", domain.ErrActivityIDRequired
	}
	ref, err := s.teamReference(ctx, teamID)
	if err != nil {
		return "", err
	}
	id, err := s.withRetry(ctx, func() (string, error) {
		return s.messenger.Update(ctx, ref, activityID, card)
	})
	if err != nil {
		return "", fmt.Errorf("update card %s in team %s: %w", activityID, teamID, err)
	}
	return id, nil
}

func (s *notificationService) teamReference(ctx context.Context, teamID string) (domain.ConversationReference, error) {
	team, err := s.teamRepo.GetByTeamID(ctx, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ConversationReference{}, fmt.Errorf("%w: %s", domain.ErrTeamNotFound, teamID)
		}
		return domain.ConversationReference{}, fmt.Errorf("get team configuration: %w", err)
	}
	return domain.ConversationReference{
		ConversationID: team.ConversationID,
		ServiceURL:     team.ServiceURL,
		TenantID:       team.TenantID,
	}, nil
}

// withRetry runs send once and then up to maxRetries more times while the error is transient.
func (s *notificationService) withRetry(ctx context.Context, send func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.backoff(attempt)); err != nil {
				return "", errors.Join(lastErr, err)
			}
		}
		id, err := send()
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !domain.IsTransient(err) {
			return "", err
		}
	}
	return "", lastErr
}

// backoff returns base * 2^(attempt-1) scaled by a random factor in [1, 2).
func (s *notificationService) backoff(attempt int) time.Duration {
	d := s.retryBase << (attempt - 1)
	return time.Duration(float64(d) * (1 + s.jitter()))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
