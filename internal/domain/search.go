package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SearchScope is the intent of an event search. It is translated into a backend query.
type SearchScope int

const (
	SearchScopeAllEvents SearchScope = iota
	SearchScopeUpcomingEvents
	SearchScopeCompletedEvents
	SearchScopeDraftEvents
	SearchScopeCancelledEvents
	SearchScopeDayBeforeReminder
	SearchScopeOneWeekBeforeReminder
	SearchScopeMandatoryEvents
	SearchScopeRegisteredEvents
	SearchScopeMoreEvents
)

var searchScopeNames = map[SearchScope]string{
	SearchScopeAllEvents:             "all",
	SearchScopeUpcomingEvents:        "upcoming",
	SearchScopeCompletedEvents:       "completed",
	SearchScopeDraftEvents:           "draft",
	SearchScopeCancelledEvents:       "cancelled",
	SearchScopeDayBeforeReminder:     "day-before-reminder",
	SearchScopeOneWeekBeforeReminder: "week-before-reminder",
	SearchScopeMandatoryEvents:       "mandatory",
	SearchScopeRegisteredEvents:      "registered",
	SearchScopeMoreEvents:            "more",
}

func (s SearchScope) String() string {
	if name, ok := searchScopeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SearchScope(%d)", int(s))
}

// ParseSearchScope resolves a scope from its name. An empty name means all events.
func ParseSearchScope(name string) (SearchScope, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return SearchScopeAllEvents, nil
	}
	for scope, n := range searchScopeNames {
		if n == name {
			return scope, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown search scope %q", ErrInvalidInput, name)
}

// RequiresUser reports whether the scope filters by the requesting user.
func (s SearchScope) RequiresUser() bool {
	switch s {
	case SearchScopeMandatoryEvents, SearchScopeRegisteredEvents, SearchScopeMoreEvents:
		return true
	}
	return false
}

// SearchParameters is one search request.
type SearchParameters struct {
	Scope        SearchScope
	Query        string
	TeamID       string
	UserObjectID string
	// ReferenceDate anchors date-relative scopes; zero means today.
	ReferenceDate time.Time
	// Page limits the result set; a zero PageSize returns every match.
	Page PaginationParams
}

// EventSearcher is the search query gateway over the event index.
type EventSearcher interface {
	Search(ctx context.Context, params SearchParameters) ([]*Event, error)
}
