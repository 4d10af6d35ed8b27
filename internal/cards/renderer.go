package cards

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"employeetraining/internal/domain"
)

const (
	dateLayout = "Mon, Jan 2, 2006"
	timeLayout = "3:04 PM"
)

// Options configures deep links and defaults of rendered cards.
type Options struct {
	// ManifestID is the Teams app id used in task module deep links.
	ManifestID string
	// AppBaseURL is where the web app serves the event details page.
	AppBaseURL string
	// DefaultPhotoURL is shown when an event has no photo.
	DefaultPhotoURL string
	// DefaultLocale is used when the caller passes an empty locale.
	DefaultLocale string
}

type renderer struct {
	opts Options
}

// NewRenderer returns a domain.CardRenderer producing Adaptive Cards.
func NewRenderer(opts Options) domain.CardRenderer {
	if opts.DefaultLocale == "" {
		opts.DefaultLocale = DefaultLocale
	}
	return &renderer{opts: opts}
}

func (r *renderer) localized(locale string) Strings {
	if locale == "" {
		locale = r.opts.DefaultLocale
	}
	return Lookup(locale)
}

func (r *renderer) AutoRegisteredCard(event *domain.Event, locale string) *domain.Card {
	s := r.localized(locale)
	body := []Element{
		heading(s.AutoRegisteredTitle),
		subtle(s.AutoRegisteredSubtitle),
	}
	body = append(body, r.eventSection(event, s, true)...)
	return &domain.Card{
		Kind:    domain.CardKindAutoRegistered,
		Summary: s.AutoRegisteredTitle + ": " + event.Name,
		Text:    plainText(s.AutoRegisteredTitle, []*domain.Event{event}, s),
		Content: newCard(body, r.eventActions(event, s)),
	}
}

func (r *renderer) ReminderCard(events []*domain.Event, kind domain.ReminderKind, locale string) *domain.Card {
	s := r.localized(locale)
	title := s.ReminderDailyTitle
	if kind == domain.ReminderWeekly {
		title = s.ReminderWeeklyTitle
	}
	body := []Element{heading(title), subtle(s.ReminderSubtitle)}
	for i, event := range events {
		section := Element{Type: "Container", Items: r.eventSection(event, s, false), Spacing: "Medium"}
		if i > 0 {
			section.Separator = true
		}
		body = append(body, section)
	}
	var actions []Action
	if len(events) == 1 {
		actions = r.eventActions(events[0], s)
	}
	return &domain.Card{
		Kind:    domain.CardKindReminder,
		Summary: title,
		Text:    plainText(title, events, s),
		Content: newCard(body, actions),
	}
}

func (r *renderer) CancellationCard(event *domain.Event, locale string) *domain.Card {
	s := r.localized(locale)
	body := []Element{
		heading(s.CancellationTitle),
		subtle(s.CancellationSubtitle),
	}
	body = append(body, r.eventSection(event, s, false)...)
	return &domain.Card{
		Kind:    domain.CardKindCancellation,
		Summary: s.CancellationTitle + ": " + event.Name,
		Text:    plainText(s.CancellationTitle, []*domain.Event{event}, s),
		Content: newCard(body, nil),
	}
}

func (r *renderer) CreationCard(event *domain.Event, createdByName, locale string) *domain.Card {
	s := r.localized(locale)
	body := []Element{heading(s.CreationTitle)}
	if createdByName != "" {
		body = append(body, subtle(fmt.Sprintf(s.CreationSubtitle, createdByName)))
	}
	body = append(body, r.eventSection(event, s, true)...)
	facts := body[len(body)-1]
	facts.Facts = append(facts.Facts, Fact{
		Title: s.SeatsLabel,
		Value: seats(event),
	})
	body[len(body)-1] = facts
	return &domain.Card{
		Kind:    domain.CardKindCreation,
		Summary: s.CreationTitle + ": " + event.Name,
		Text:    plainText(s.CreationTitle, []*domain.Event{event}, s),
		Content: newCard(body, r.eventActions(event, s)),
	}
}

func (r *renderer) RegistrationCard(event *domain.Event, locale string) *domain.Card {
	s := r.localized(locale)
	body := []Element{heading(s.RegistrationTitle)}
	body = append(body, r.eventSection(event, s, false)...)
	return &domain.Card{
		Kind:    domain.CardKindRegistration,
		Summary: s.RegistrationTitle + ": " + event.Name,
		Text:    plainText(s.RegistrationTitle, []*domain.Event{event}, s),
		Content: newCard(body, r.eventActions(event, s)),
	}
}

// eventSection renders name, optional photo and the fact set. The fact set is always last.
func (r *renderer) eventSection(event *domain.Event, s Strings, withPhoto bool) []Element {
	var out []Element
	if withPhoto {
		photo := event.Photo
		if photo == "" {
			photo = r.opts.DefaultPhotoURL
		}
		if photo != "" {
			out = append(out, Element{Type: "Image", URL: photo, AltText: event.Name, Size: "Stretch"})
		}
	}
	out = append(out, Element{Type: "TextBlock", Text: event.Name, Weight: "Bolder", Size: "Medium", Wrap: true})
	if event.Description != "" {
		out = append(out, Element{Type: "TextBlock", Text: event.Description, Wrap: true, IsSubtle: true})
	}
	facts := []Fact{
		{Title: s.DateLabel, Value: formatDates(event)},
	}
	if t := formatTimes(event); t != "" {
		facts = append(facts, Fact{Title: s.TimeLabel, Value: t})
	}
	facts = append(facts, Fact{Title: s.VenueLabel, Value: location(event, s)})
	if event.CategoryName != "" {
		facts = append(facts, Fact{Title: s.CategoryLabel, Value: event.CategoryName})
	}
	out = append(out, Element{Type: "FactSet", Facts: facts})
	return out
}

func (r *renderer) eventActions(event *domain.Event, s Strings) []Action {
	var actions []Action
	if link := r.detailsLink(event); link != "" {
		actions = append(actions, openURL(s.ViewDetails, link))
	}
	if event.Type == domain.EventTypeLiveEvent || event.Type == domain.EventTypeTeamsMeeting {
		if event.MeetingLink != "" {
			actions = append(actions, openURL(s.JoinMeeting, event.MeetingLink))
		}
	}
	return actions
}

// detailsLink builds a Teams task module deep link to the event details page.
func (r *renderer) detailsLink(event *domain.Event) string {
	if r.opts.ManifestID == "" || r.opts.AppBaseURL == "" {
		return ""
	}
	page := strings.TrimSuffix(r.opts.AppBaseURL, "/") + "/event-details?" + url.Values{
		"eventId": {event.ID},
		"teamId":  {event.TeamID},
	}.Encode()
	q := url.Values{
		"url":    {page},
		"title":  {event.Name},
		"height": {"large"},
		"width":  {"large"},
	}
	return "https://teams.microsoft.com/l/task/" + url.PathEscape(r.opts.ManifestID) + "?" + q.Encode()
}

func formatDates(event *domain.Event) string {
	start := event.StartDate.Format(dateLayout)
	if event.EndDate.IsZero() || sameDay(event.StartDate, event.EndDate) {
		return start
	}
	return start + " - " + event.EndDate.Format(dateLayout)
}

func formatTimes(event *domain.Event) string {
	if event.StartTime == nil {
		return ""
	}
	out := event.StartTime.Format(timeLayout)
	if event.EndTime != nil {
		out += " - " + event.EndTime.Format(timeLayout)
	}
	return out
}

func location(event *domain.Event, s Strings) string {
	switch event.Type {
	case domain.EventTypeInPerson:
		if event.Venue != "" {
			return event.Venue
		}
		return s.InPerson
	case domain.EventTypeLiveEvent:
		return s.LiveEvent
	default:
		return s.TeamsMeeting
	}
}

func seats(event *domain.Event) string {
	if event.MaximumNumberOfParticipants <= 0 {
		return strconv.Itoa(event.RegisteredAttendeesCount)
	}
	return strconv.Itoa(event.RegisteredAttendeesCount) + "/" + strconv.Itoa(event.MaximumNumberOfParticipants)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func plainText(title string, events []*domain.Event, s Strings) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, event := range events {
		b.WriteString("\n")
		b.WriteString(event.Name)
		b.WriteString("\n")
		b.WriteString(s.DateLabel + ": " + formatDates(event) + "\n")
		if t := formatTimes(event); t != "" {
			b.WriteString(s.TimeLabel + ": " + t + "\n")
		}
		b.WriteString(s.VenueLabel + ": " + location(event, s) + "\n")
		if event.MeetingLink != "" {
			b.WriteString(event.MeetingLink + "\n")
		}
	}
	return b.String()
}
