package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hongminglow/timecard-be/internal/models"
)

// Section is the view the app is showing.
type Section string

const (
	SectionAnonymous Section = "anonymous"
	SectionDashboard Section = "dashboard"
	SectionProfile   Section = "profile"
	SectionAbout     Section = "about"
)

var (
	ErrNotAuthenticated = errors.New("please login")
	ErrNoPerson         = errors.New("set person name first")
	ErrNoEntries        = errors.New("no entries to save")
	ErrUnknownSection   = errors.New("unknown section")
	ErrMissingFields    = errors.New("email and password required")
)

// EntriesView is the dashboard's entry list for the current person.
type EntriesView struct {
	Person       string
	Filter       string
	Entries      []models.Entry
	TotalMinutes int
}

// App drives the client views. Every mutation re-fetches the entry list from
// the server instead of patching local state.
type App struct {
	api     *API
	session *SessionState

	section Section
	entries EntriesView
	saved   []models.SavedSummary
}

func NewApp(api *API, session *SessionState) *App {
	return &App{api: api, session: session, section: SectionAnonymous}
}

func (a *App) Section() Section                      { return a.section }
func (a *App) Entries() EntriesView                  { return a.entries }
func (a *App) SavedSummaries() []models.SavedSummary { return a.saved }
func (a *App) Session() *SessionState                { return a.session }

// Bootstrap restores a stored session. With a token and identity present the
// app lands on the dashboard without contacting the auth endpoints.
func (a *App) Bootstrap(ctx context.Context) error {
	if !a.session.Authenticated() {
		a.reset()
		return nil
	}
	a.section = SectionDashboard
	return a.RefreshEntries(ctx, "")
}

// Signup registers and signs in. An empty username defaults to the local part
// of the email.
func (a *App) Signup(ctx context.Context, username, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return ErrMissingFields
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	resp, err := a.api.Signup(ctx, username, email, password)
	if err != nil {
		return err
	}
	return a.startSession(ctx, resp.Token, UserInfo{Username: resp.Username, Email: resp.Email})
}

func (a *App) Login(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return ErrMissingFields
	}
	resp, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return a.startSession(ctx, resp.Token, UserInfo{Username: resp.Username, Email: resp.Email})
}

func (a *App) startSession(ctx context.Context, token string, user UserInfo) error {
	if err := a.session.SetSession(token, user); err != nil {
		return err
	}
	return a.Bootstrap(ctx)
}

func (a *App) Logout() error {
	if err := a.session.Clear(); err != nil {
		return err
	}
	a.reset()
	return nil
}

func (a *App) reset() {
	a.section = SectionAnonymous
	a.entries = EntriesView{}
	a.saved = nil
}

// SetPerson selects the person new entries are logged against.
func (a *App) SetPerson(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("enter a name")
	}
	if err := a.session.SetCurrentPerson(name); err != nil {
		return err
	}
	return a.RefreshEntries(ctx, a.entries.Filter)
}

// AddEntry logs time for the current person. Minutes are checked locally
// before any request is sent.
func (a *App) AddEntry(ctx context.Context, hours, minutes int) error {
	token := a.session.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	person := a.session.CurrentPerson()
	if person == "" {
		return ErrNoPerson
	}
	if err := models.ValidateDuration(hours, minutes); err != nil {
		return err
	}
	if _, err := a.api.AddEntry(ctx, token, person, hours, minutes); err != nil {
		return err
	}
	return a.RefreshEntries(ctx, a.entries.Filter)
}

// DeleteEntry removes a single entry by id.
func (a *App) DeleteEntry(ctx context.Context, entryID string) error {
	token := a.session.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	if err := a.api.DeleteEntry(ctx, token, entryID); err != nil {
		return err
	}
	return a.RefreshEntries(ctx, a.entries.Filter)
}

// ResetPerson deletes every entry for the current person and clears the selection.
func (a *App) ResetPerson(ctx context.Context) (int64, error) {
	token := a.session.Token()
	person := a.session.CurrentPerson()
	if token == "" {
		return 0, ErrNotAuthenticated
	}
	if person == "" {
		return 0, ErrNoPerson
	}
	n, err := a.api.DeleteEntries(ctx, token, person)
	if err != nil {
		return 0, err
	}
	if err := a.session.ClearCurrentPerson(); err != nil {
		return n, err
	}
	return n, a.RefreshEntries(ctx, a.entries.Filter)
}

// SavePerson snapshots the current person's server-side entries into a saved summary.
func (a *App) SavePerson(ctx context.Context) (models.SavedSummary, error) {
	token := a.session.Token()
	if token == "" {
		return models.SavedSummary{}, ErrNotAuthenticated
	}
	person := a.session.CurrentPerson()
	if person == "" {
		return models.SavedSummary{}, ErrNoPerson
	}
	entries, err := a.api.ListEntries(ctx, token, person)
	if err != nil {
		return models.SavedSummary{}, err
	}
	if len(entries) == 0 {
		return models.SavedSummary{}, ErrNoEntries
	}
	saved, err := a.api.SavePerson(ctx, token, person, models.SnapshotOf(entries))
	if err != nil {
		return models.SavedSummary{}, err
	}
	if err := a.loadSaved(ctx); err != nil {
		return saved, err
	}
	return saved, nil
}

// ShowSection switches views. Every section except anonymous needs a session;
// entering about loads the saved summaries.
func (a *App) ShowSection(ctx context.Context, s Section) error {
	switch s {
	case SectionAnonymous:
		a.section = s
		return nil
	case SectionDashboard, SectionProfile, SectionAbout:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSection, s)
	}
	if !a.session.Authenticated() {
		return ErrNotAuthenticated
	}
	a.section = s
	if s == SectionAbout {
		return a.loadSaved(ctx)
	}
	return nil
}

// RefreshEntries re-fetches the current person's entries. filter narrows the
// view by a case-insensitive substring of the person name; the total covers
// only what is shown. Without a session or person the view is emptied.
func (a *App) RefreshEntries(ctx context.Context, filter string) error {
	person := a.session.CurrentPerson()
	view := EntriesView{Person: person, Filter: filter}
	token := a.session.Token()
	if token == "" || person == "" {
		a.entries = view
		return nil
	}

	entries, err := a.api.ListEntries(ctx, token, person)
	if err != nil {
		return err
	}
	q := strings.ToLower(strings.TrimSpace(filter))
	view.Entries = make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if q != "" && !strings.Contains(strings.ToLower(e.PersonName), q) {
			continue
		}
		view.Entries = append(view.Entries, e)
	}
	view.TotalMinutes = models.TotalEntryMinutes(view.Entries)
	a.entries = view
	return nil
}

func (a *App) loadSaved(ctx context.Context) error {
	token := a.session.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	saved, err := a.api.SavedPersons(ctx, token)
	if err != nil {
		return err
	}
	a.saved = saved
	return nil
}

// SavedPersons reloads and returns the caller's saved summaries.
func (a *App) SavedPersons(ctx context.Context) ([]models.SavedSummary, error) {
	if err := a.loadSaved(ctx); err != nil {
		return nil, err
	}
	return a.saved, nil
}
