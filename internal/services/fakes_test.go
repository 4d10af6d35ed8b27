package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"employeetraining/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeEventRepo is an in-memory EventRepository keyed by event id.
type fakeEventRepo struct {
	byID      map[string]*domain.Event
	createErr error
	updateErr error
	updates   int
	conflicts int
	// interleave runs once against the stored row before the next update,
	// standing in for a writer that commits between load and save.
	interleave func(stored *domain.Event)
}

func newFakeEventRepo(events ...*domain.Event) *fakeEventRepo {
	f := &fakeEventRepo{byID: make(map[string]*domain.Event)}
	for _, e := range events {
		f.byID[e.ID] = e
	}
	return f
}

func (f *fakeEventRepo) Create(_ context.Context, e *domain.Event) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f *fakeEventRepo) GetByID(_ context.Context, teamID, eventID string) (*domain.Event, error) {
	e, ok := f.byID[eventID]
	if !ok || e.TeamID != teamID || e.IsRemoved {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEventRepo) Update(_ context.Context, e *domain.Event) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.byID[e.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if hook := f.interleave; hook != nil {
		f.interleave = nil
		hook(stored)
	}
	if stored.Version != e.Version {
		f.conflicts++
		return domain.ErrConflict
	}
	f.updates++
	e.Version++
	cp := *e
	f.byID[e.ID] = &cp
	return nil
}

func (f *fakeEventRepo) ListByTeam(_ context.Context, teamID string, status domain.EventStatus, _ domain.PaginationParams) ([]*domain.Event, int, error) {
	var out []*domain.Event
	for _, e := range f.byID {
		if e.TeamID == teamID && e.Status == status && !e.IsRemoved {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

// fakeSearcher returns canned results per scope and records every request.
type fakeSearcher struct {
	mu       sync.Mutex
	results  map[domain.SearchScope][]*domain.Event
	err      error
	requests []domain.SearchParameters
}

func (f *fakeSearcher) Search(_ context.Context, params domain.SearchParameters) ([]*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[params.Scope], nil
}

func (f *fakeSearcher) scopes() []domain.SearchScope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SearchScope, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Scope)
	}
	return out
}

// fakeUserConfigRepo stores configurations by lower-cased object id.
type fakeUserConfigRepo struct {
	byID      map[string]*domain.UserConfiguration
	lookups   [][]string
	upserted  []*domain.UserConfiguration
	upsertErr error
}

func newFakeUserConfigRepo(users ...*domain.UserConfiguration) *fakeUserConfigRepo {
	f := &fakeUserConfigRepo{byID: make(map[string]*domain.UserConfiguration)}
	for _, u := range users {
		f.byID[strings.ToLower(u.AADObjectID)] = u
	}
	return f
}

func (f *fakeUserConfigRepo) Upsert(_ context.Context, cfg *domain.UserConfiguration) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, cfg)
	f.byID[strings.ToLower(cfg.AADObjectID)] = cfg
	return nil
}

func (f *fakeUserConfigRepo) GetByObjectIDs(_ context.Context, ids []string) ([]*domain.UserConfiguration, error) {
	f.lookups = append(f.lookups, ids)
	var out []*domain.UserConfiguration
	for _, id := range ids {
		if u, ok := f.byID[strings.ToLower(id)]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeTeamConfigRepo stores team bindings by team id.
type fakeTeamConfigRepo struct {
	byID    map[string]*domain.TeamConfiguration
	deleted []string
}

func newFakeTeamConfigRepo(teams ...*domain.TeamConfiguration) *fakeTeamConfigRepo {
	f := &fakeTeamConfigRepo{byID: make(map[string]*domain.TeamConfiguration)}
	for _, t := range teams {
		f.byID[t.TeamID] = t
	}
	return f
}

func (f *fakeTeamConfigRepo) Upsert(_ context.Context, cfg *domain.TeamConfiguration) error {
	f.byID[cfg.TeamID] = cfg
	return nil
}

func (f *fakeTeamConfigRepo) GetByTeamID(_ context.Context, teamID string) (*domain.TeamConfiguration, error) {
	if t, ok := f.byID[teamID]; ok {
		return t, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTeamConfigRepo) Delete(_ context.Context, teamID string) error {
	if _, ok := f.byID[teamID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, teamID)
	f.deleted = append(f.deleted, teamID)
	return nil
}

// fakeCategoryRepo is an in-memory CategoryRepository that counts lookups.
type fakeCategoryRepo struct {
	byID       map[string]*domain.Category
	getByIDs   int
	lastLookup []string
	deleteErr  error
}

func newFakeCategoryRepo(cats ...*domain.Category) *fakeCategoryRepo {
	f := &fakeCategoryRepo{byID: make(map[string]*domain.Category)}
	for _, c := range cats {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCategoryRepo) Create(_ context.Context, c *domain.Category) error {
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Name, c.Name) {
			return domain.ErrConflict
		}
	}
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCategoryRepo) GetByIDs(_ context.Context, ids []string) ([]*domain.Category, error) {
	f.getByIDs++
	f.lastLookup = ids
	var out []*domain.Category
	for _, id := range ids {
		if c, ok := f.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]*domain.Category, error) {
	var out []*domain.Category
	for _, c := range f.byID {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCategoryRepo) Update(_ context.Context, c *domain.Category) error {
	if _, ok := f.byID[c.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCategoryRepo) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// sentCard is one call recorded by fakeMessenger or fakeNotifier.
type sentCard struct {
	ref        domain.ConversationReference
	activityID string
	card       *domain.Card
	users      []string
	teamID     string
}

// fakeMessenger fails per conversation id with the queued errors before succeeding.
type fakeMessenger struct {
	errs    map[string][]error
	sends   []sentCard
	updates []sentCard
}

func (f *fakeMessenger) next(conversationID string) error {
	queue := f.errs[conversationID]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	if len(queue) > 1 {
		f.errs[conversationID] = queue[1:]
	}
	return err
}

func (f *fakeMessenger) Send(_ context.Context, ref domain.ConversationReference, card *domain.Card) (string, error) {
	f.sends = append(f.sends, sentCard{ref: ref, card: card})
	if err := f.next(ref.ConversationID); err != nil {
		return "", err
	}
	return "activity-" + ref.ConversationID, nil
}

func (f *fakeMessenger) Update(_ context.Context, ref domain.ConversationReference, activityID string, card *domain.Card) (string, error) {
	f.updates = append(f.updates, sentCard{ref: ref, activityID: activityID, card: card})
	if err := f.next(ref.ConversationID); err != nil {
		return "", err
	}
	return activityID, nil
}

// fakeNotifier records cards handed to the dispatcher.
type fakeNotifier struct {
	mu        sync.Mutex
	userSends []sentCard
	teamSends []sentCard
	teamErr   error
}

func (f *fakeNotifier) SendToUsers(_ context.Context, card *domain.Card, users []*domain.UserConfiguration) domain.DispatchReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.AADObjectID)
	}
	f.userSends = append(f.userSends, sentCard{card: card, users: ids})
	return domain.DispatchReport{Sent: ids}
}

func (f *fakeNotifier) SendToTeam(_ context.Context, teamID string, card *domain.Card) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teamSends = append(f.teamSends, sentCard{teamID: teamID, card: card})
	if f.teamErr != nil {
		return "", f.teamErr
	}
	return "team-activity", nil
}

func (f *fakeNotifier) UpdateTeamCard(_ context.Context, teamID, activityID string, card *domain.Card) (string, error) {
	if activityID == "" {
		return "", domain.ErrActivityIDRequired
	}
	return activityID, nil
}

func (f *fakeNotifier) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.userSends)
}

// transientErr mimics a rate-limited transport response.
type transientErr struct{ status int }

func (e *transientErr) Error() string   { return "transport status " + strconv.Itoa(e.status) }
func (e *transientErr) Transient() bool { return e.status == 429 || e.status >= 502 }

var errRejected = errors.New("card rejected")

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
