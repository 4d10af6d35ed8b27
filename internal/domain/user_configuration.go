package domain

import (
	"context"
	"time"
)

// UserConfiguration binds a directory identity to the conversation the bot uses to reach it.
// swagger:model UserConfiguration
type UserConfiguration struct {
	AADObjectID       string    `json:"aad_object_id"`
	UserPrincipalName string    `json:"user_principal_name,omitempty"`
	Email             string    `json:"email,omitempty"`
	ConversationID    string    `json:"conversation_id"`
	ServiceURL        string    `json:"service_url"`
	TenantID          string    `json:"tenant_id,omitempty"`
	UpdatedOn         time.Time `json:"updated_on"`
}

// TeamConfiguration binds a team to the channel conversation the bot posts into.
type TeamConfiguration struct {
	TeamID         string    `json:"team_id"`
	ConversationID string    `json:"conversation_id"`
	ServiceURL     string    `json:"service_url"`
	TenantID       string    `json:"tenant_id,omitempty"`
	UpdatedOn      time.Time `json:"updated_on"`
}

// UserConfigurationRepository stores user conversation bindings.
type UserConfigurationRepository interface {
	Upsert(ctx context.Context, cfg *UserConfiguration) error
	// GetByObjectIDs returns the records that exist; unknown ids are skipped.
	GetByObjectIDs(ctx context.Context, objectIDs []string) ([]*UserConfiguration, error)
}

// TeamConfigurationRepository stores team conversation bindings.
type TeamConfigurationRepository interface {
	Upsert(ctx context.Context, cfg *TeamConfiguration) error
	GetByTeamID(ctx context.Context, teamID string) (*TeamConfiguration, error)
	Delete(ctx context.Context, teamID string) error
}

// Activity is the subset of an inbound bot activity used to bind conversations.
type Activity struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	ServiceURL   string `json:"serviceUrl"`
	ChannelID    string `json:"channelId"`
	Text         string `json:"text,omitempty"`
	From         struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		AADObjectID string `json:"aadObjectId"`
	} `json:"from"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	MembersRemoved []struct {
		ID string `json:"id"`
	} `json:"membersRemoved,omitempty"`
	Conversation struct {
		ID               string `json:"id"`
		ConversationType string `json:"conversationType"`
		TenantID         string `json:"tenantId"`
	} `json:"conversation"`
	ChannelData struct {
		Team *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"team,omitempty"`
		EventType string `json:"eventType,omitempty"`
		Tenant    *struct {
			ID string `json:"id"`
		} `json:"tenant,omitempty"`
	} `json:"channelData"`
}

// BotService handles inbound bot activities.
type BotService interface {
	HandleActivity(ctx context.Context, activity *Activity) error
}

// Member is the directory profile of a conversation member.
type Member struct {
	ID                string
	Name              string
	AADObjectID       string
	Email             string
	UserPrincipalName string
}

// MemberResolver looks up conversation members on the messaging platform.
type MemberResolver interface {
	GetMember(ctx context.Context, ref ConversationReference, memberID string) (*Member, error)
}
