package domain

import (
	"context"
	"strings"
	"time"
)

// EventType is how an event is held.
type EventType int

const (
	EventTypeInPerson     EventType = 1
	EventTypeTeamsMeeting EventType = 2
	EventTypeLiveEvent    EventType = 3
)

func (t EventType) Valid() bool {
	return t >= EventTypeInPerson && t <= EventTypeLiveEvent
}

// EventAudience controls who can discover an event.
type EventAudience int

const (
	AudiencePublic  EventAudience = 1
	AudiencePrivate EventAudience = 2
)

func (a EventAudience) Valid() bool {
	return a == AudiencePublic || a == AudiencePrivate
}

// EventStatus is the lifecycle state of an event.
type EventStatus int

const (
	EventStatusDraft     EventStatus = 1
	EventStatusActive    EventStatus = 2
	EventStatusCancelled EventStatus = 3
	EventStatusCompleted EventStatus = 4
)

func (s EventStatus) Valid() bool {
	return s >= EventStatusDraft && s <= EventStatusCompleted
}

// AttendeeSeparator delimits identifiers inside the attendee ledger fields.
const AttendeeSeparator = ";"

// Event represents a training event owned by a team.
// swagger:model Event
type Event struct {
	ID                          string        `json:"id"`
	TeamID                      string        `json:"team_id"`
	Name                        string        `json:"name"`
	Description                 string        `json:"description"`
	Photo                       string        `json:"photo,omitempty"`
	StartDate                   time.Time     `json:"start_date"`
	EndDate                     time.Time     `json:"end_date"`
	StartTime                   *time.Time    `json:"start_time,omitempty"`
	EndTime                     *time.Time    `json:"end_time,omitempty"`
	Type                        EventType     `json:"type"`
	Venue                       string        `json:"venue,omitempty"`
	MeetingLink                 string        `json:"meeting_link,omitempty"`
	CategoryID                  string        `json:"category_id"`
	CategoryName                string        `json:"category_name,omitempty"`
	MaximumNumberOfParticipants int           `json:"maximum_number_of_participants"`
	Audience                    EventAudience `json:"audience"`
	Status                      EventStatus   `json:"status"`
	MandatoryAttendees          string        `json:"mandatory_attendees,omitempty"`
	OptionalAttendees           string        `json:"optional_attendees,omitempty"`
	RegisteredAttendees         string        `json:"registered_attendees,omitempty"`
	AutoRegisteredAttendees     string        `json:"auto_registered_attendees,omitempty"`
	RegisteredAttendeesCount    int           `json:"registered_attendees_count"`
	IsRegistrationClosed        bool          `json:"is_registration_closed"`
	IsRemoved                   bool          `json:"is_removed"`
	CreatedBy                   string        `json:"created_by"`
	CreatedOn                   time.Time     `json:"created_on"`
	UpdatedBy                   string        `json:"updated_by,omitempty"`
	UpdatedOn                   *time.Time    `json:"updated_on,omitempty"`
	// Version increments on every stored update and guards concurrent writers.
	Version int `json:"-"`
}

// SplitAttendees splits a ledger field into identifiers, dropping empty segments.
func SplitAttendees(ledger string) []string {
	if strings.TrimSpace(ledger) == "" {
		return nil
	}
	parts := strings.Split(ledger, AttendeeSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinAttendees is the inverse of SplitAttendees.
func JoinAttendees(ids []string) string {
	return strings.Join(ids, AttendeeSeparator)
}

// GetAttendees returns registered followed by auto-registered identifiers, in ledger order
// and with duplicates retained. It is empty when RegisteredAttendeesCount is zero.
func (e *Event) GetAttendees() []string {
	if e.RegisteredAttendeesCount == 0 {
		return []string{}
	}
	attendees := SplitAttendees(e.RegisteredAttendees)
	attendees = append(attendees, SplitAttendees(e.AutoRegisteredAttendees)...)
	if attendees == nil {
		return []string{}
	}
	return attendees
}

// HasAttendee reports whether userID is in the registered or auto-registered ledger, ignoring case.
func (e *Event) HasAttendee(userID string) bool {
	return containsFold(SplitAttendees(e.AutoRegisteredAttendees), userID) ||
		containsFold(SplitAttendees(e.RegisteredAttendees), userID)
}

// IsRegistered reports whether userID registered explicitly.
func (e *Event) IsRegistered(userID string) bool {
	return containsFold(SplitAttendees(e.RegisteredAttendees), userID)
}

// AddRegisteredAttendee appends userID to the registered ledger. It returns false if already present.
func (e *Event) AddRegisteredAttendee(userID string) bool {
	if e.HasAttendee(userID) {
		return false
	}
	e.RegisteredAttendees = JoinAttendees(append(SplitAttendees(e.RegisteredAttendees), userID))
	e.recount()
	return true
}

// RemoveRegisteredAttendee drops userID from the registered ledger. It returns false if absent.
func (e *Event) RemoveRegisteredAttendee(userID string) bool {
	ids := SplitAttendees(e.RegisteredAttendees)
	kept := ids[:0]
	removed := false
	for _, id := range ids {
		if strings.EqualFold(id, userID) {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	if !removed {
		return false
	}
	e.RegisteredAttendees = JoinAttendees(kept)
	e.recount()
	return true
}

// AutoRegisterMandatoryAttendees copies mandatory attendees into the auto-registered ledger.
func (e *Event) AutoRegisterMandatoryAttendees() []string {
	mandatory := SplitAttendees(e.MandatoryAttendees)
	auto := SplitAttendees(e.AutoRegisteredAttendees)
	var added []string
	for _, id := range mandatory {
		if containsFold(auto, id) {
			continue
		}
		auto = append(auto, id)
		added = append(added, id)
	}
	e.AutoRegisteredAttendees = JoinAttendees(auto)
	e.recount()
	return added
}

// PruneAutoRegisteredAttendees drops auto-registered attendees that are no
// longer mandatory and returns them.
func (e *Event) PruneAutoRegisteredAttendees() []string {
	mandatory := SplitAttendees(e.MandatoryAttendees)
	var kept, removed []string
	for _, id := range SplitAttendees(e.AutoRegisteredAttendees) {
		if containsFold(mandatory, id) {
			kept = append(kept, id)
			continue
		}
		removed = append(removed, id)
	}
	if len(removed) == 0 {
		return nil
	}
	e.AutoRegisteredAttendees = JoinAttendees(kept)
	e.recount()
	return removed
}

// IsFull reports whether the event reached its capacity.
func (e *Event) IsFull() bool {
	return e.MaximumNumberOfParticipants > 0 && e.RegisteredAttendeesCount >= e.MaximumNumberOfParticipants
}

func (e *Event) recount() {
	e.RegisteredAttendeesCount = len(SplitAttendees(e.RegisteredAttendees)) + len(SplitAttendees(e.AutoRegisteredAttendees))
}

func containsFold(ids []string, id string) bool {
	for _, candidate := range ids {
		if strings.EqualFold(candidate, id) {
			return true
		}
	}
	return false
}

// EventRepository defines storage operations for events. Events are never hard-deleted.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, teamID, eventID string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	ListByTeam(ctx context.Context, teamID string, status EventStatus, page PaginationParams) ([]*Event, int, error)
}

// EventUpdate holds the editable fields of an event; nil means unchanged.
type EventUpdate struct {
	Name                        *string
	Description                 *string
	Photo                       *string
	StartDate                   *time.Time
	EndDate                     *time.Time
	StartTime                   *time.Time
	EndTime                     *time.Time
	Type                        *EventType
	Venue                       *string
	MeetingLink                 *string
	CategoryID                  *string
	MaximumNumberOfParticipants *int
	Audience                    *EventAudience
	MandatoryAttendees          *string
	OptionalAttendees           *string
	Status                      *EventStatus
}

// EventService defines organizer-facing event operations.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event, createdBy string) error
	GetEvent(ctx context.Context, teamID, eventID string) (*Event, error)
	ListEvents(ctx context.Context, teamID string, status EventStatus, page PaginationParams) ([]*Event, int, error)
	UpdateEvent(ctx context.Context, teamID, eventID, updatedBy string, update *EventUpdate) (*Event, error)
	CancelEvent(ctx context.Context, teamID, eventID, updatedBy string) (*Event, error)
	CloseRegistration(ctx context.Context, teamID, eventID, updatedBy string) (*Event, error)
	DeleteDraft(ctx context.Context, teamID, eventID, updatedBy string) error
	SearchEvents(ctx context.Context, params SearchParameters) ([]*Event, error)
}
