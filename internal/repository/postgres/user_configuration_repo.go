package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	"employeetraining/internal/domain"
)

type userConfigurationRepository struct {
	DB *sql.DB
}

func NewUserConfigurationRepository(db *sql.DB) domain.UserConfigurationRepository {
	return &userConfigurationRepository{DB: db}
}

func (r *userConfigurationRepository) Upsert(ctx context.Context, c *domain.UserConfiguration) error {
	query := `
		INSERT INTO user_configurations (aad_object_id, user_principal_name, email, conversation_id, service_url, tenant_id, updated_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (aad_object_id) DO UPDATE SET
			user_principal_name = COALESCE(NULLIF(EXCLUDED.user_principal_name, ''), user_configurations.user_principal_name),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), user_configurations.email),
			conversation_id = EXCLUDED.conversation_id,
			service_url = EXCLUDED.service_url,
			tenant_id = EXCLUDED.tenant_id,
			updated_on = EXCLUDED.updated_on
	`
	_, err := r.DB.ExecContext(ctx, query,
		strings.ToLower(c.AADObjectID), c.UserPrincipalName, c.Email, c.ConversationID, c.ServiceURL, c.TenantID, c.UpdatedOn)
	return err
}

func (r *userConfigurationRepository) GetByObjectIDs(ctx context.Context, objectIDs []string) ([]*domain.UserConfiguration, error) {
	if len(objectIDs) == 0 {
		return []*domain.UserConfiguration{}, nil
	}
	lowered := make([]string, len(objectIDs))
	for i, id := range objectIDs {
		lowered[i] = strings.ToLower(id)
	}
	query := `
		SELECT aad_object_id, user_principal_name, email, conversation_id, service_url, tenant_id, updated_on
		FROM user_configurations
		WHERE aad_object_id = ANY($1)
		ORDER BY aad_object_id
	`
	rows, err := r.DB.QueryContext(ctx, query, pq.Array(lowered))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.UserConfiguration, 0, len(objectIDs))
	for rows.Next() {
		c := &domain.UserConfiguration{}
		if err := rows.Scan(&c.AADObjectID, &c.UserPrincipalName, &c.Email, &c.ConversationID, &c.ServiceURL, &c.TenantID, &c.UpdatedOn); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type teamConfigurationRepository struct {
	DB *sql.DB
}

func NewTeamConfigurationRepository(db *sql.DB) domain.TeamConfigurationRepository {
	return &teamConfigurationRepository{DB: db}
}

func (r *teamConfigurationRepository) Upsert(ctx context.Context, c *domain.TeamConfiguration) error {
	query := `
		INSERT INTO team_configurations (team_id, conversation_id, service_url, tenant_id, updated_on)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (team_id) DO UPDATE SET
			conversation_id = EXCLUDED.conversation_id,
			service_url = EXCLUDED.service_url,
			tenant_id = EXCLUDED.tenant_id,
			updated_on = EXCLUDED.updated_on
	`
	_, err := r.DB.ExecContext(ctx, query, c.TeamID, c.ConversationID, c.ServiceURL, c.TenantID, c.UpdatedOn)
	return err
}

func (r *teamConfigurationRepository) GetByTeamID(ctx context.Context, teamID string) (*domain.TeamConfiguration, error) {
	query := `
		SELECT team_id, conversation_id, service_url, tenant_id, updated_on
		FROM team_configurations
		WHERE team_id = $1
	`
	c := &domain.TeamConfiguration{}
	err := r.DB.QueryRowContext(ctx, query, teamID).Scan(&c.TeamID, &c.ConversationID, &c.ServiceURL, &c.TenantID, &c.UpdatedOn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *teamConfigurationRepository) Delete(ctx context.Context, teamID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM team_configurations WHERE team_id = $1`, teamID)
	return err
}
