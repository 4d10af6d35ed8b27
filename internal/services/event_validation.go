package services

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"employeetraining/internal/domain"
)

const (
	eventNameMaxLength        = 100
	eventDescriptionMaxLength = 1000
	eventVenueMaxLength       = 200
)

// ValidateEvent checks the organizer-supplied fields of an event. An empty result means valid.
func ValidateEvent(e *domain.Event) []string {
	var errs []string
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, "name is required")
	} else if utf8.RuneCountInString(e.Name) > eventNameMaxLength {
		errs = append(errs, fmt.Sprintf("name must be at most %d characters", eventNameMaxLength))
	}
	if strings.TrimSpace(e.Description) == "" {
		errs = append(errs, "description is required")
	} else if utf8.RuneCountInString(e.Description) > eventDescriptionMaxLength {
		errs = append(errs, fmt.Sprintf("description must be at most %d characters", eventDescriptionMaxLength))
	}
	if !isGUID(e.TeamID) {
		errs = append(errs, "team id must be a valid GUID")
	}
	if !isGUID(e.CategoryID) {
		errs = append(errs, "category id must be a valid GUID")
	}
	if !e.Audience.Valid() {
		errs = append(errs, "audience must be 1 (public) or 2 (private)")
	}

	switch e.Type {
	case domain.EventTypeInPerson:
		if strings.TrimSpace(e.Venue) == "" {
			errs = append(errs, "venue is required for in-person events")
		} else if utf8.RuneCountInString(e.Venue) > eventVenueMaxLength {
			errs = append(errs, fmt.Sprintf("venue must be at most %d characters", eventVenueMaxLength))
		}
		if e.MeetingLink != "" {
			errs = append(errs, "meeting link must be empty for in-person events")
		}
	case domain.EventTypeLiveEvent:
		if strings.TrimSpace(e.MeetingLink) == "" {
			errs = append(errs, "meeting link required")
		} else if !isHTTPURL(e.MeetingLink) {
			errs = append(errs, "meeting link must be an absolute http or https URL")
		}
		if e.Venue != "" {
			errs = append(errs, "venue must be empty for live events")
		}
	case domain.EventTypeTeamsMeeting:
	default:
		errs = append(errs, "type must be 1 (in person), 2 (Teams meeting) or 3 (live event)")
	}

	if e.MaximumNumberOfParticipants < 1 {
		errs = append(errs, "maximum number of participants must be at least 1")
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		errs = append(errs, "start date and end date are required")
	} else if dayOf(e.StartDate).After(dayOf(e.EndDate)) {
		errs = append(errs, "start date must be on or before end date")
	} else if dayOf(e.StartDate).Equal(dayOf(e.EndDate)) && e.StartTime != nil && e.EndTime != nil && clockOf(*e.StartTime) > clockOf(*e.EndTime) {
		errs = append(errs, "start time must be before end time")
	}

	for _, id := range domain.SplitAttendees(e.MandatoryAttendees) {
		if !isGUID(id) {
			errs = append(errs, fmt.Sprintf("mandatory attendee %q is not a valid GUID", id))
		}
	}
	for _, id := range domain.SplitAttendees(e.OptionalAttendees) {
		if !isGUID(id) {
			errs = append(errs, fmt.Sprintf("optional attendee %q is not a valid GUID", id))
		}
	}
	return errs
}

func isGUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clockOf(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
