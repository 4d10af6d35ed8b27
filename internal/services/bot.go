package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"employeetraining/internal/domain"
)

// Bot activity types and channel events that affect conversation bindings.
const (
	activityMessage            = "message"
	activityConversationUpdate = "conversationUpdate"
	activityInstallationUpdate = "installationUpdate"

	channelEventTeamDeleted = "teamDeleted"
)

type botService struct {
	users   domain.UserConfigurationRepository
	teams   domain.TeamConfigurationRepository
	members domain.MemberResolver
	logger  *slog.Logger
	now     func() time.Time
}

// NewBotService returns the BotService that binds users and teams to their bot conversations.
// members fills in the user principal name and email of newly bound users; it may be nil.
func NewBotService(users domain.UserConfigurationRepository, teams domain.TeamConfigurationRepository, members domain.MemberResolver, logger *slog.Logger) domain.BotService {
	return &botService{users: users, teams: teams, members: members, logger: logger, now: time.Now}
}

func (s *botService) HandleActivity(ctx context.Context, a *domain.Activity) error {
	if a == nil {
		return fmt.Errorf("%w: activity is required", domain.ErrInvalidInput)
	}
	switch a.Type {
	case activityMessage, activityConversationUpdate, activityInstallationUpdate:
	default:
		s.logger.DebugContext(ctx, "activity ignored", "type", a.Type)
		return nil
	}
	if a.ServiceURL == "" || a.Conversation.ID == "" {
		return fmt.Errorf("%w: activity has no conversation reference", domain.ErrInvalidInput)
	}

	tenantID := a.Conversation.TenantID
	if tenantID == "" && a.ChannelData.Tenant != nil {
		tenantID = a.ChannelData.Tenant.ID
	}

	if team := a.ChannelData.Team; team != nil && team.ID != "" {
		return s.bindTeam(ctx, a, team.ID, tenantID)
	}
	return s.bindUser(ctx, a, tenantID)
}

func (s *botService) bindTeam(ctx context.Context, a *domain.Activity, teamID, tenantID string) error {
	if a.ChannelData.EventType == channelEventTeamDeleted || botRemoved(a) {
		if err := s.teams.Delete(ctx, teamID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete team configuration: %w", err)
		}
		s.logger.InfoContext(ctx, "team unbound", "team_id", teamID, "event", a.ChannelData.EventType)
		return nil
	}
	// Channel posts go to the team's root conversation, not the thread the activity came from.
	conversationID, _, _ := strings.Cut(a.Conversation.ID, ";")
	cfg := &domain.TeamConfiguration{
		TeamID:         teamID,
		ConversationID: conversationID,
		ServiceURL:     a.ServiceURL,
		TenantID:       tenantID,
		UpdatedOn:      s.now().UTC(),
	}
	if err := s.teams.Upsert(ctx, cfg); err != nil {
		return fmt.Errorf("upsert team configuration: %w", err)
	}
	return nil
}

func (s *botService) bindUser(ctx context.Context, a *domain.Activity, tenantID string) error {
	if a.From.AADObjectID == "" {
		return fmt.Errorf("%w: activity sender has no directory object id", domain.ErrInvalidInput)
	}
	cfg := &domain.UserConfiguration{
		AADObjectID:    a.From.AADObjectID,
		ConversationID: a.Conversation.ID,
		ServiceURL:     a.ServiceURL,
		TenantID:       tenantID,
		UpdatedOn:      s.now().UTC(),
	}
	s.resolveProfile(ctx, a, cfg)
	if err := s.users.Upsert(ctx, cfg); err != nil {
		return fmt.Errorf("upsert user configuration: %w", err)
	}
	return nil
}

// resolveProfile copies the user principal name and email onto cfg. Users whose
// stored binding already has both are not looked up again. Lookup failures are
// logged and leave the fields empty, which the upsert treats as unchanged.
func (s *botService) resolveProfile(ctx context.Context, a *domain.Activity, cfg *domain.UserConfiguration) {
	if s.members == nil {
		return
	}
	stored, err := s.users.GetByObjectIDs(ctx, []string{cfg.AADObjectID})
	if err == nil && len(stored) > 0 && stored[0].UserPrincipalName != "" && stored[0].Email != "" {
		return
	}
	memberID := a.From.ID
	if memberID == "" {
		memberID = a.From.AADObjectID
	}
	ref := domain.ConversationReference{ConversationID: cfg.ConversationID, ServiceURL: cfg.ServiceURL, TenantID: cfg.TenantID}
	member, err := s.members.GetMember(ctx, ref, memberID)
	if err != nil {
		s.logger.WarnContext(ctx, "member profile lookup failed", "aad_object_id", cfg.AADObjectID, "err", err)
		return
	}
	cfg.UserPrincipalName = member.UserPrincipalName
	cfg.Email = member.Email
	if cfg.Email == "" && strings.Contains(member.UserPrincipalName, "@") {
		cfg.Email = member.UserPrincipalName
	}
}

func botRemoved(a *domain.Activity) bool {
	for _, m := range a.MembersRemoved {
		if m.ID != "" && m.ID == a.Recipient.ID {
			return true
		}
	}
	return false
}
