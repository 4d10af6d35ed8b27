package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"employeetraining/internal/domain"
)

// dayFormat is how reference dates are bound; the column type is DATE.
const dayFormat = "2006-01-02"

type eventSearch struct {
	DB  *sql.DB
	now func() time.Time
}

// NewEventSearch returns the search query gateway over the events table.
func NewEventSearch(db *sql.DB) domain.EventSearcher {
	return &eventSearch{DB: db, now: time.Now}
}

// searchQuery accumulates WHERE clauses with positional arguments.
type searchQuery struct {
	clauses []string
	args    []any
}

func (q *searchQuery) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *searchQuery) where(clause string) {
	q.clauses = append(q.clauses, clause)
}

// ledgerContains matches userArg against a semicolon ledger column, ignoring case.
func ledgerContains(column, userArg string) string {
	return fmt.Sprintf("LOWER(%s) = ANY(string_to_array(LOWER(%s), ';'))", userArg, column)
}

func (s *eventSearch) buildQuery(params domain.SearchParameters) (string, []any, error) {
	if params.Scope.RequiresUser() && params.UserObjectID == "" {
		return "", nil, fmt.Errorf("%w: scope %s requires a user", domain.ErrInvalidInput, params.Scope)
	}
	ref := params.ReferenceDate
	if ref.IsZero() {
		ref = s.now()
	}
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)

	q := &searchQuery{}
	q.where("is_removed = FALSE")
	if params.TeamID != "" {
		q.where("team_id = " + q.arg(params.TeamID))
	}
	if text := strings.TrimSpace(params.Query); text != "" && text != "*" {
		q.where("name ILIKE " + q.arg("%"+escapeLike(text)+"%"))
	}

	active := fmt.Sprintf("status = %d", domain.EventStatusActive)
	switch params.Scope {
	case domain.SearchScopeAllEvents:
	case domain.SearchScopeUpcomingEvents:
		q.where(active)
		q.where("end_date >= " + q.arg(day.Format(dayFormat)))
	case domain.SearchScopeCompletedEvents:
		today := q.arg(day.Format(dayFormat))
		q.where(fmt.Sprintf("(status = %d OR (%s AND end_date < %s))", domain.EventStatusCompleted, active, today))
	case domain.SearchScopeDraftEvents:
		q.where(fmt.Sprintf("status = %d", domain.EventStatusDraft))
	case domain.SearchScopeCancelledEvents:
		q.where(fmt.Sprintf("status = %d", domain.EventStatusCancelled))
	case domain.SearchScopeDayBeforeReminder:
		q.where(active)
		q.where("start_date = " + q.arg(day.AddDate(0, 0, 1).Format(dayFormat)))
	case domain.SearchScopeOneWeekBeforeReminder:
		q.where(active)
		q.where("start_date > " + q.arg(day.AddDate(0, 0, 1).Format(dayFormat)))
		q.where("start_date <= " + q.arg(day.AddDate(0, 0, 7).Format(dayFormat)))
	case domain.SearchScopeMandatoryEvents:
		user := q.arg(params.UserObjectID)
		q.where(active)
		q.where("end_date >= " + q.arg(day.Format(dayFormat)))
		q.where(ledgerContains("mandatory_attendees", user))
	case domain.SearchScopeRegisteredEvents:
		user := q.arg(params.UserObjectID)
		q.where(active)
		q.where("end_date >= " + q.arg(day.Format(dayFormat)))
		q.where(fmt.Sprintf("(%s OR %s)", ledgerContains("registered_attendees", user), ledgerContains("auto_registered_attendees", user)))
	case domain.SearchScopeMoreEvents:
		user := q.arg(params.UserObjectID)
		q.where(active)
		q.where(fmt.Sprintf("audience = %d", domain.AudiencePublic))
		q.where("is_registration_closed = FALSE")
		q.where("end_date >= " + q.arg(day.Format(dayFormat)))
		q.where(fmt.Sprintf("NOT (%s OR %s)", ledgerContains("registered_attendees", user), ledgerContains("auto_registered_attendees", user)))
	default:
		return "", nil, fmt.Errorf("%w: unsupported search scope %s", domain.ErrInvalidInput, params.Scope)
	}

	query := "SELECT " + eventColumns + " FROM events WHERE " + strings.Join(q.clauses, " AND ") +
		" ORDER BY start_date ASC, name ASC"
	if params.Page.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT %s OFFSET %s", q.arg(params.Page.Limit()), q.arg(params.Page.Offset()))
	}
	return query, q.args, nil
}

func (s *eventSearch) Search(ctx context.Context, params domain.SearchParameters) ([]*domain.Event, error) {
	query, args, err := s.buildQuery(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search events (%s): %w", params.Scope, err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("scan search results: %w", err)
	}
	return events, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
