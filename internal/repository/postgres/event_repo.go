package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"employeetraining/internal/domain"
)

const eventColumns = `id, team_id, name, description, photo, start_date, end_date, start_time, end_time,
	type, venue, meeting_link, category_id, maximum_number_of_participants, audience, status,
	mandatory_attendees, optional_attendees, registered_attendees, auto_registered_attendees,
	registered_attendees_count, is_registration_closed, is_removed,
	created_by, created_on, updated_by, updated_on, version`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var startTime, endTime, updatedOn sql.NullTime
	var updatedBy sql.NullString
	err := row.Scan(
		&e.ID, &e.TeamID, &e.Name, &e.Description, &e.Photo, &e.StartDate, &e.EndDate, &startTime, &endTime,
		&e.Type, &e.Venue, &e.MeetingLink, &e.CategoryID, &e.MaximumNumberOfParticipants, &e.Audience, &e.Status,
		&e.MandatoryAttendees, &e.OptionalAttendees, &e.RegisteredAttendees, &e.AutoRegisteredAttendees,
		&e.RegisteredAttendeesCount, &e.IsRegistrationClosed, &e.IsRemoved,
		&e.CreatedBy, &e.CreatedOn, &updatedBy, &updatedOn, &e.Version,
	)
	if err != nil {
		return nil, err
	}
	if startTime.Valid {
		e.StartTime = &startTime.Time
	}
	if endTime.Valid {
		e.EndTime = &endTime.Time
	}
	if updatedBy.Valid {
		e.UpdatedBy = updatedBy.String
	}
	if updatedOn.Valid {
		e.UpdatedOn = &updatedOn.Time
	}
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]*domain.Event, error) {
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`
	if e.Version == 0 {
		e.Version = 1
	}
	_, err := r.DB.ExecContext(ctx, query,
		e.ID, e.TeamID, e.Name, e.Description, e.Photo, e.StartDate, e.EndDate, nullTime(e.StartTime), nullTime(e.EndTime),
		e.Type, e.Venue, e.MeetingLink, e.CategoryID, e.MaximumNumberOfParticipants, e.Audience, e.Status,
		e.MandatoryAttendees, e.OptionalAttendees, e.RegisteredAttendees, e.AutoRegisteredAttendees,
		e.RegisteredAttendeesCount, e.IsRegistrationClosed, e.IsRemoved,
		e.CreatedBy, e.CreatedOn, nullString(e.UpdatedBy), nullTime(e.UpdatedOn), e.Version,
	)
	return err
}

func (r *eventRepository) GetByID(ctx context.Context, teamID, eventID string) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE team_id = $1 AND id = $2 AND is_removed = FALSE
	`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, teamID, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Update writes every mutable column when the stored version still matches
// e.Version, then advances e.Version. A stale version yields ErrConflict.
// Soft deletion is an update with IsRemoved set.
func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events SET
			name = $1, description = $2, photo = $3, start_date = $4, end_date = $5, start_time = $6, end_time = $7,
			type = $8, venue = $9, meeting_link = $10, category_id = $11, maximum_number_of_participants = $12,
			audience = $13, status = $14, mandatory_attendees = $15, optional_attendees = $16,
			registered_attendees = $17, auto_registered_attendees = $18, registered_attendees_count = $19,
			is_registration_closed = $20, is_removed = $21, updated_by = $22, updated_on = $23,
			version = version + 1
		WHERE team_id = $24 AND id = $25 AND version = $26
	`
	result, err := r.DB.ExecContext(ctx, query,
		e.Name, e.Description, e.Photo, e.StartDate, e.EndDate, nullTime(e.StartTime), nullTime(e.EndTime),
		e.Type, e.Venue, e.MeetingLink, e.CategoryID, e.MaximumNumberOfParticipants,
		e.Audience, e.Status, e.MandatoryAttendees, e.OptionalAttendees,
		e.RegisteredAttendees, e.AutoRegisteredAttendees, e.RegisteredAttendeesCount,
		e.IsRegistrationClosed, e.IsRemoved, nullString(e.UpdatedBy), nullTime(e.UpdatedOn),
		e.TeamID, e.ID, e.Version,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var exists bool
		existsQuery := `SELECT EXISTS (SELECT 1 FROM events WHERE team_id = $1 AND id = $2)`
		if err := r.DB.QueryRowContext(ctx, existsQuery, e.TeamID, e.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return domain.ErrConflict
		}
		return domain.ErrNotFound
	}
	e.Version++
	return nil
}

func (r *eventRepository) ListByTeam(ctx context.Context, teamID string, status domain.EventStatus, page domain.PaginationParams) ([]*domain.Event, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM events WHERE team_id = $1 AND status = $2 AND is_removed = FALSE`
	if err := r.DB.QueryRowContext(ctx, countQuery, teamID, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE team_id = $1 AND status = $2 AND is_removed = FALSE
		ORDER BY start_date ASC, created_on DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.DB.QueryContext(ctx, query, teamID, status, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
