package botframework

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"employeetraining/internal/domain"
)

const (
	DefaultTokenURL = "https://login.microsoftonline.com/botframework.com/oauth2/v2.0/token"
	DefaultScope    = "https://api.botframework.com/.default"

	cardContentType = "application/vnd.microsoft.card.adaptive"
	maxErrorBody    = 4 << 10
)

// DefaultServiceHosts are the Bot Connector endpoints Teams hands out as serviceUrl.
// Entries starting with a dot match any subdomain.
var DefaultServiceHosts = []string{
	"smba.trafficmanager.net",
	".botframework.com",
	".botframework.us",
	".botframework.azure.us",
	".teams.microsoft.com",
	".teams.microsoft.us",
}

// ErrUntrustedServiceURL rejects a conversation reference that points outside the Bot Connector.
var ErrUntrustedServiceURL = fmt.Errorf("%w: service url is not a trusted bot connector endpoint", domain.ErrInvalidInput)

// Config holds the bot registration credentials.
type Config struct {
	AppID       string
	AppPassword string
	TokenURL    string
	Scope       string
	// AllowedServiceHosts restricts where the bot token is sent. Nil means DefaultServiceHosts.
	AllowedServiceHosts []string
}

// APIError is a non-2xx answer of the Bot Connector service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bot connector returned status %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the request may succeed when retried.
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client sends activities through the Bot Connector REST API. It implements
// domain.Messenger and domain.MemberResolver.
type Client struct {
	httpClient   *http.Client
	allowedHosts []string
}

// NewClient returns a client authenticating with the client credentials flow.
// Without an AppID (local emulator) requests are sent unauthenticated with base.
func NewClient(ctx context.Context, cfg Config, base *http.Client) *Client {
	if base == nil {
		base = http.DefaultClient
	}
	hosts := cfg.AllowedServiceHosts
	if hosts == nil {
		hosts = DefaultServiceHosts
	}
	allowed := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed = append(allowed, h)
		}
	}
	if cfg.AppID == "" {
		return &Client{httpClient: base, allowedHosts: allowed}
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.AppID,
		ClientSecret: cfg.AppPassword,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{cfg.Scope},
	}
	return &Client{httpClient: cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base)), allowedHosts: allowed}
}

type attachment struct {
	ContentType string `json:"contentType"`
	Content     any    `json:"content"`
}

type conversationAccount struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId,omitempty"`
}

type activity struct {
	Type         string              `json:"type"`
	ID           string              `json:"id,omitempty"`
	Summary      string              `json:"summary,omitempty"`
	Text         string              `json:"text,omitempty"`
	Conversation conversationAccount `json:"conversation"`
	Attachments  []attachment        `json:"attachments,omitempty"`
}

type resourceResponse struct {
	ID string `json:"id"`
}

// teamsChannelAccount is a conversation member as returned by the Teams flavour of the connector.
type teamsChannelAccount struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	AADObjectID       string `json:"aadObjectId"`
	Email             string `json:"email"`
	UserPrincipalName string `json:"userPrincipalName"`
}

func newActivity(ref domain.ConversationReference, card *domain.Card) activity {
	a := activity{
		Type:         "message",
		Summary:      card.Summary,
		Conversation: conversationAccount{ID: ref.ConversationID, TenantID: ref.TenantID},
	}
	if card.Content != nil {
		a.Attachments = []attachment{{ContentType: cardContentType, Content: card.Content}}
	} else {
		a.Text = card.Text
	}
	return a
}

// conversationURL returns the conversation resource on the reference's connector.
// The service url must be https on an allowed host; plain http is accepted for
// allowed loopback hosts only, which is what the local emulator uses.
func (c *Client) conversationURL(ref domain.ConversationReference) (string, error) {
	if ref.ServiceURL == "" || ref.ConversationID == "" {
		return "", fmt.Errorf("%w: conversation reference needs service url and conversation id", domain.ErrInvalidInput)
	}
	u, err := url.Parse(ref.ServiceURL)
	if err != nil || u.Host == "" || u.User != nil {
		return "", ErrUntrustedServiceURL
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case u.Scheme == "https":
	case u.Scheme == "http" && isLoopback(host):
	default:
		return "", ErrUntrustedServiceURL
	}
	if !c.hostAllowed(host) {
		return "", fmt.Errorf("%w: %s", ErrUntrustedServiceURL, host)
	}
	return strings.TrimSuffix(ref.ServiceURL, "/") + "/v3/conversations/" + url.PathEscape(ref.ConversationID), nil
}

func (c *Client) hostAllowed(host string) bool {
	for _, allowed := range c.allowedHosts {
		if strings.HasPrefix(allowed, ".") {
			if strings.HasSuffix(host, allowed) {
				return true
			}
			continue
		}
		if host == allowed {
			return true
		}
	}
	return false
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Send posts card as a new activity and returns its id.
func (c *Client) Send(ctx context.Context, ref domain.ConversationReference, card *domain.Card) (string, error) {
	conv, err := c.conversationURL(ref)
	if err != nil {
		return "", err
	}
	var rr resourceResponse
	if err := c.do(ctx, http.MethodPost, conv+"/activities", newActivity(ref, card), &rr); err != nil {
		return "", err
	}
	return rr.ID, nil
}

// Update replaces the activity activityID with card.
func (c *Client) Update(ctx context.Context, ref domain.ConversationReference, activityID string, card *domain.Card) (string, error) {
	if activityID == "" {
		return "", domain.ErrActivityIDRequired
	}
	conv, err := c.conversationURL(ref)
	if err != nil {
		return "", err
	}
	a := newActivity(ref, card)
	a.ID = activityID
	var rr resourceResponse
	if err := c.do(ctx, http.MethodPut, conv+"/activities/"+url.PathEscape(activityID), a, &rr); err != nil {
		return "", err
	}
	if rr.ID == "" {
		return activityID, nil
	}
	return rr.ID, nil
}

// GetMember fetches the profile of memberID in the referenced conversation.
// memberID may be the channel account id or the directory object id.
func (c *Client) GetMember(ctx context.Context, ref domain.ConversationReference, memberID string) (*domain.Member, error) {
	if memberID == "" {
		return nil, fmt.Errorf("%w: member id is required", domain.ErrInvalidInput)
	}
	conv, err := c.conversationURL(ref)
	if err != nil {
		return nil, err
	}
	var account teamsChannelAccount
	if err := c.do(ctx, http.MethodGet, conv+"/members/"+url.PathEscape(memberID), nil, &account); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.Member{
		ID:                account.ID,
		Name:              account.Name,
		AADObjectID:       account.AADObjectID,
		Email:             account.Email,
		UserPrincipalName: account.UserPrincipalName,
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode activity: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach bot connector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode bot connector response: %w", err)
	}
	return nil
}
