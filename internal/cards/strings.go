package cards

import "strings"

// Strings are the localized texts used on cards.
type Strings struct {
	ReminderDailyTitle     string
	ReminderWeeklyTitle    string
	ReminderSubtitle       string
	AutoRegisteredTitle    string
	AutoRegisteredSubtitle string
	CancellationTitle      string
	CancellationSubtitle   string
	CreationTitle          string
	CreationSubtitle       string
	RegistrationTitle      string
	DateLabel              string
	TimeLabel              string
	VenueLabel             string
	CategoryLabel          string
	SeatsLabel             string
	ViewDetails            string
	JoinMeeting            string
	InPerson               string
	TeamsMeeting           string
	LiveEvent              string
}

// DefaultLocale is used when a requested locale has no translation.
const DefaultLocale = "en-US"

var catalog = map[string]Strings{
	"en-US": {
		ReminderDailyTitle:     "Reminder: your training starts tomorrow",
		ReminderWeeklyTitle:    "Your trainings this week",
		ReminderSubtitle:       "You are registered for the following events.",
		AutoRegisteredTitle:    "You have been registered for a training",
		AutoRegisteredSubtitle: "Your organizer marked this event as mandatory for you.",
		CancellationTitle:      "Training cancelled",
		CancellationSubtitle:   "The following event has been cancelled by the organizer.",
		CreationTitle:          "New training available",
		CreationSubtitle:       "Created by %s",
		RegistrationTitle:      "Registration confirmed",
		DateLabel:              "Date",
		TimeLabel:              "Time",
		VenueLabel:             "Venue",
		CategoryLabel:          "Category",
		SeatsLabel:             "Seats",
		ViewDetails:            "View details",
		JoinMeeting:            "Join meeting",
		InPerson:               "In person",
		TeamsMeeting:           "Teams meeting",
		LiveEvent:              "Live event",
	},
	"fr-FR": {
		ReminderDailyTitle:     "Rappel : votre formation commence demain",
		ReminderWeeklyTitle:    "Vos formations de la semaine",
		ReminderSubtitle:       "Vous êtes inscrit aux événements suivants.",
		AutoRegisteredTitle:    "Vous avez été inscrit à une formation",
		AutoRegisteredSubtitle: "L'organisateur a rendu cet événement obligatoire pour vous.",
		CancellationTitle:      "Formation annulée",
		CancellationSubtitle:   "L'événement suivant a été annulé par l'organisateur.",
		CreationTitle:          "Nouvelle formation disponible",
		CreationSubtitle:       "Créée par %s",
		RegistrationTitle:      "Inscription confirmée",
		DateLabel:              "Date",
		TimeLabel:              "Heure",
		VenueLabel:             "Lieu",
		CategoryLabel:          "Catégorie",
		SeatsLabel:             "Places",
		ViewDetails:            "Voir les détails",
		JoinMeeting:            "Rejoindre la réunion",
		InPerson:               "En présentiel",
		TeamsMeeting:           "Réunion Teams",
		LiveEvent:              "Événement en direct",
	},
}

// Lookup returns the strings for locale. It tries the exact tag, then the language, then DefaultLocale.
func Lookup(locale string) Strings {
	if s, ok := catalog[locale]; ok {
		return s
	}
	lang, _, _ := strings.Cut(strings.ToLower(locale), "-")
	if lang != "" {
		for tag, s := range catalog {
			if strings.HasPrefix(strings.ToLower(tag), lang+"-") {
				return s
			}
		}
	}
	return catalog[DefaultLocale]
}
