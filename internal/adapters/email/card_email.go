package email

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"strings"
	texttemplate "text/template"

	"employeetraining/internal/domain"
)

//go:embed templates/card_subject.txt templates/card.txt templates/card.html
var cardFS embed.FS

var defaultCardTemplates = mustParseCardTemplates(cardFS)

// cardTemplates is the parsed subject, plain-text and HTML rendition of a card email.
type cardTemplates struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// cardEmail is a card rendered for the mailer.
type cardEmail struct {
	Subject string
	Text    string
	HTML    string
}

func parseCardTemplates(fsys fs.FS) (*cardTemplates, error) {
	subject, err := texttemplate.ParseFS(fsys, "templates/card_subject.txt")
	if err != nil {
		return nil, fmt.Errorf("parse card subject: %w", err)
	}
	text, err := texttemplate.ParseFS(fsys, "templates/card.txt")
	if err != nil {
		return nil, fmt.Errorf("parse card text: %w", err)
	}
	html, err := htmltemplate.ParseFS(fsys, "templates/card.html")
	if err != nil {
		return nil, fmt.Errorf("parse card html: %w", err)
	}
	return &cardTemplates{subject: subject, text: text, html: html}, nil
}

func mustParseCardTemplates(fsys fs.FS) *cardTemplates {
	t, err := parseCardTemplates(fsys)
	if err != nil {
		panic(err)
	}
	return t
}

// render fills the templates with card. The subject is folded onto one line
// and falls back to the first line of the card text when the card has no summary.
func (t *cardTemplates) render(card *domain.Card) (*cardEmail, error) {
	data := domain.CardEmailData{Summary: card.Summary, Text: card.Text}
	if strings.TrimSpace(data.Summary) == "" {
		data.Summary, _, _ = strings.Cut(strings.TrimSpace(card.Text), "\n")
	}

	var subject, text, html strings.Builder
	if err := t.subject.Execute(&subject, data); err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("render text: %w", err)
	}
	if err := t.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return &cardEmail{
		Subject: strings.Join(strings.Fields(subject.String()), " "),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
