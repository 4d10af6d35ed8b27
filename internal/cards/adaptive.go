package cards

// Adaptive Card document types. Only the elements the notification cards use are modelled.

const (
	adaptiveCardSchema  = "http://adaptivecards.io/schemas/adaptive-card.json"
	adaptiveCardVersion = "1.2"

	// ContentType is the attachment content type of an Adaptive Card.
	ContentType = "application/vnd.microsoft.card.adaptive"
)

// AdaptiveCard is the root of a card document.
type AdaptiveCard struct {
	Type    string    `json:"type"`
	Schema  string    `json:"$schema"`
	Version string    `json:"version"`
	Body    []Element `json:"body"`
	Actions []Action  `json:"actions,omitempty"`
}

// Element is a body element (TextBlock, Image, Container, ColumnSet, Column, FactSet).
type Element struct {
	Type      string    `json:"type"`
	Text      string    `json:"text,omitempty"`
	Weight    string    `json:"weight,omitempty"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
	Wrap      bool      `json:"wrap,omitempty"`
	IsSubtle  bool      `json:"isSubtle,omitempty"`
	Spacing   string    `json:"spacing,omitempty"`
	Separator bool      `json:"separator,omitempty"`
	URL       string    `json:"url,omitempty"`
	AltText   string    `json:"altText,omitempty"`
	Width     string    `json:"width,omitempty"`
	Items     []Element `json:"items,omitempty"`
	Columns   []Element `json:"columns,omitempty"`
	Facts     []Fact    `json:"facts,omitempty"`
}

// Fact is a title/value row of a FactSet.
type Fact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// Action is a card action.
type Action struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

func newCard(body []Element, actions []Action) *AdaptiveCard {
	return &AdaptiveCard{
		Type:    "AdaptiveCard",
		Schema:  adaptiveCardSchema,
		Version: adaptiveCardVersion,
		Body:    body,
		Actions: actions,
	}
}

func textBlock(text string) Element {
	return Element{Type: "TextBlock", Text: text, Wrap: true}
}

func heading(text string) Element {
	return Element{Type: "TextBlock", Text: text, Weight: "Bolder", Size: "Large", Wrap: true}
}

func subtle(text string) Element {
	return Element{Type: "TextBlock", Text: text, IsSubtle: true, Spacing: "None", Wrap: true}
}

func openURL(title, url string) Action {
	return Action{Type: "Action.OpenUrl", Title: title, URL: url}
}
