// Package memory is an in-process Store used for local development and tests.
// All data is lost when the process exits.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/timecard-be/internal/models"
	"github.com/hongminglow/timecard-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for createdAt/savedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type summaryKey struct {
	owner  string
	person string
}

// Store keeps users, entries and summaries in maps guarded by one mutex.
type Store struct {
	mu        sync.RWMutex
	now       func() time.Time
	users     map[string]models.User // keyed by normalized email
	entries   []models.Entry         // insertion order
	summaries map[summaryKey]models.SavedSummary
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:       func() time.Time { return time.Now().UTC() },
		users:     make(map[string]models.User),
		summaries: make(map[summaryKey]models.SavedSummary),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

// CreateUser inserts a user; the email is normalized before the uniqueness check.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.Email = models.NormalizeEmail(user.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return models.User{}, storage.ErrAlreadyExists
	}
	user.ID = uuid.NewString()
	user.CreatedAt = s.now()
	s.users[user.Email] = user
	return user, nil
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[models.NormalizeEmail(email)]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) AddEntry(ctx context.Context, ownerID, personName string, hours, minutes int) (models.Entry, error) {
	if err := models.ValidateEntry(personName, hours, minutes); err != nil {
		return models.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := models.Entry{
		ID:          uuid.NewString(),
		OwnerUserID: ownerID,
		PersonName:  personName,
		Hours:       hours,
		Minutes:     minutes,
		CreatedAt:   s.now(),
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *Store) ListEntries(ctx context.Context, ownerID, personName string) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Entry, 0)
	for _, e := range s.entries {
		if matches(e, ownerID, personName) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DeleteEntries(ctx context.Context, ownerID, personName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if matches(e, ownerID, personName) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

func (s *Store) DeleteEntry(ctx context.Context, ownerID, entryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == entryID && e.OwnerUserID == ownerID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// UpsertSummary replaces the snapshot for (ownerID, personName) under the write lock.
func (s *Store) UpsertSummary(ctx context.Context, ownerID, personName string, entries []models.SavedEntry) (models.SavedSummary, error) {
	if err := models.ValidatePersonName(personName); err != nil {
		return models.SavedSummary{}, err
	}
	now := s.now()
	prepared, err := models.PrepareSavedEntries(entries, now)
	if err != nil {
		return models.SavedSummary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := summaryKey{owner: ownerID, person: personName}
	summary, ok := s.summaries[key]
	if !ok {
		summary = models.SavedSummary{ID: uuid.NewString(), OwnerUserID: ownerID, PersonName: personName}
	}
	summary.Entries = prepared
	summary.TotalMinutes = models.TotalMinutes(prepared)
	summary.SavedAt = now
	s.summaries[key] = summary
	return cloneSummary(summary), nil
}

func (s *Store) ListSummaries(ctx context.Context, ownerID string) ([]models.SavedSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SavedSummary, 0)
	for key, summary := range s.summaries {
		if key.owner == ownerID {
			out = append(out, cloneSummary(summary))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].PersonName < out[j].PersonName
		}
		return out[i].SavedAt.After(out[j].SavedAt)
	})
	return out, nil
}

// cloneSummary detaches the Entries slice so callers cannot mutate stored state.
func cloneSummary(s models.SavedSummary) models.SavedSummary {
	s.Entries = slices.Clone(s.Entries)
	return s
}

func matches(e models.Entry, ownerID, personName string) bool {
	if e.OwnerUserID != ownerID {
		return false
	}
	return personName == "" || e.PersonName == personName
}
