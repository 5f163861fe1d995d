// Package storagetest holds the behavioural suite every storage.Store backend
// must pass. Backends call Run from their own _test.go files.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/timecard-be/internal/models"
	"github.com/hongminglow/timecard-be/internal/storage"
)

// Factory builds a fresh, empty store that reads time from now.
type Factory func(t *testing.T, now func() time.Time) storage.Store

// Clock returns a time source that advances one second per call, starting
// from a fixed UTC instant, so ordering assertions are deterministic.
func Clock() func() time.Time {
	var mu sync.Mutex
	current := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore) })
	t.Run("entries", func(t *testing.T) { testEntries(t, newStore) })
	t.Run("entry isolation", func(t *testing.T) { testEntryIsolation(t, newStore) })
	t.Run("delete", func(t *testing.T) { testDelete(t, newStore) })
	t.Run("summaries", func(t *testing.T) { testSummaries(t, newStore) })
	t.Run("concurrent upsert", func(t *testing.T) { testConcurrentUpsert(t, newStore) })
	t.Run("hour bounds", func(t *testing.T) { testHourBounds(t, newStore) })
	t.Run("summary results are copies", func(t *testing.T) { testSummaryCopies(t, newStore) })
}

// CreateUser inserts a user with a placeholder hash and fails the test on error.
func CreateUser(t *testing.T, store storage.UserStore, username, email string) models.User {
	t.Helper()
	user, err := store.CreateUser(context.Background(), models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$10$placeholder",
	})
	require.NoError(t, err)
	return user
}

func testUsers(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store := newStore(t, Clock())

	alice := CreateUser(t, store, "alice", "  Alice@Example.com ")
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, "alice@example.com", alice.Email)
	assert.False(t, alice.CreatedAt.IsZero())

	_, err := store.CreateUser(ctx, models.User{Username: "other", Email: "ALICE@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	found, err := store.FindByEmail(ctx, "alice@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)
	assert.Equal(t, "alice", found.Username)
	assert.Equal(t, "$2a$10$placeholder", found.PasswordHash)

	_, err = store.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testEntries(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store := newStore(t, Clock())
	owner := CreateUser(t, store, "alice", "a@x.com")

	first, err := store.AddEntry(ctx, owner.ID, "Bob", 1, 30)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, owner.ID, first.OwnerUserID)
	assert.Equal(t, "Bob", first.PersonName)

	_, err = store.AddEntry(ctx, owner.ID, "Bob", 0, 45)
	require.NoError(t, err)
	_, err = store.AddEntry(ctx, owner.ID, "Carol", 2, 0)
	require.NoError(t, err)

	_, err = store.AddEntry(ctx, owner.ID, "Bob", 1, 75)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = store.AddEntry(ctx, owner.ID, "Bob", 0, -1)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = store.AddEntry(ctx, owner.ID, " ", 1, 0)
	assert.ErrorIs(t, err, models.ErrValidation)

	bob, err := store.ListEntries(ctx, owner.ID, "Bob")
	require.NoError(t, err)
	require.Len(t, bob, 2)
	assert.Equal(t, first.ID, bob[0].ID)
	assert.Equal(t, 1, bob[0].Hours)
	assert.Equal(t, 30, bob[0].Minutes)
	assert.Equal(t, 45, bob[1].Minutes)
	assert.True(t, bob[0].CreatedAt.Before(bob[1].CreatedAt))
	assert.Equal(t, 135, models.TotalEntryMinutes(bob))

	all, err := store.ListEntries(ctx, owner.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Carol", all[2].PersonName)
}

func testEntryIsolation(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store := newStore(t, Clock())
	alice := CreateUser(t, store, "alice", "a@x.com")
	bob := CreateUser(t, store, "bob", "b@x.com")

	_, err := store.AddEntry(ctx, alice.ID, "Bob", 1, 0)
	require.NoError(t, err)
	theirs, err := store.AddEntry(ctx, bob.ID, "Bob", 2, 0)
	require.NoError(t, err)

	list, err := store.ListEntries(ctx, alice.ID, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	for _, e := range list {
		assert.Equal(t, alice.ID, e.OwnerUserID)
	}

	ok, err := store.DeleteEntry(ctx, alice.ID, theirs.ID)
	require.NoError(t, err)
	assert.False(t, ok, "must not delete another owner's entry")

	n, err := store.DeleteEntries(ctx, alice.ID, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, err := store.ListEntries(ctx, bob.ID, "Bob")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func testDelete(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store := newStore(t, Clock())
	owner := CreateUser(t, store, "alice", "a@x.com")

	for i := 0; i < 3; i++ {
		_, err := store.AddEntry(ctx, owner.ID, "Bob", i, 0)
		require.NoError(t, err)
	}
	carol, err := store.AddEntry(ctx, owner.ID, "Carol", 0, 5)
	require.NoError(t, err)

	n, err := store.DeleteEntries(ctx, owner.ID, "Bob")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	bob, err := store.ListEntries(ctx, owner.ID, "Bob")
	require.NoError(t, err)
	assert.Empty(t, bob)

	n, err = store.DeleteEntries(ctx, owner.ID, "Bob")
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err := store.DeleteEntry(ctx, owner.ID, carol.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.DeleteEntry(ctx, owner.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testSummaries(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store := newStore(t, Clock())
	owner := CreateUser(t, store, "alice", "a@x.com")
	other := CreateUser(t, store, "eve", "e@x.com")
	stamp := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	first, err := store.UpsertSummary(ctx, owner.ID, "Bob", []models.SavedEntry{
		{Hours: 1, Minutes: 30, CreatedAt: stamp},
		{Hours: 0, Minutes: 45},
	})
	require.NoError(t, err)
	assert.Equal(t, 135, first.TotalMinutes)
	require.Len(t, first.Entries, 2)
	assert.True(t, first.Entries[0].CreatedAt.Equal(stamp))
	assert.False(t, first.Entries[1].CreatedAt.IsZero())

	_, err = store.UpsertSummary(ctx, owner.ID, "Carol", []models.SavedEntry{{Hours: 2}})
	require.NoError(t, err)

	second, err := store.UpsertSummary(ctx, owner.ID, "Bob", []models.SavedEntry{{Hours: 3, Minutes: 5}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 185, second.TotalMinutes)
	assert.True(t, second.SavedAt.After(first.SavedAt))

	_, err = store.UpsertSummary(ctx, other.ID, "Bob", []models.SavedEntry{{Hours: 9}})
	require.NoError(t, err)

	_, err = store.UpsertSummary(ctx, owner.ID, "Bob", []models.SavedEntry{{Minutes: 61}})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = store.UpsertSummary(ctx, owner.ID, "", []models.SavedEntry{{Minutes: 1}})
	assert.ErrorIs(t, err, models.ErrValidation)

	list, err := store.ListSummaries(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bob", list[0].PersonName, "most recently saved first")
	assert.Equal(t, 185, list[0].TotalMinutes)
	require.Len(t, list[0].Entries, 1)
	assert.Equal(t, "Carol", list[1].PersonName)
	assert.Equal(t, 120, list[1].TotalMinutes)
	for _, s := range list {
		assert.Equal(t, owner.ID, s.OwnerUserID)
	}

	none, err := store.ListSummaries(ctx, "no-such-owner")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testConcurrentUpsert(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store := newStore(t, Clock())
	owner := CreateUser(t, store, "alice", "a@x.com")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.UpsertSummary(ctx, owner.ID, "Bob", []models.SavedEntry{{Hours: i}})
			if err != nil {
				errs <- fmt.Errorf("upsert %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	list, err := store.ListSummaries(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testHourBounds(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store := newStore(t, Clock())
	owner := CreateUser(t, store, "alice", "a@x.com")

	e, err := store.AddEntry(ctx, owner.ID, "Bob", models.MaxHours, 59)
	require.NoError(t, err)
	assert.Equal(t, models.MaxHours, e.Hours)

	for _, hours := range []int{models.MaxHours + 1, 1 << 62, -1} {
		_, err = store.AddEntry(ctx, owner.ID, "Bob", hours, 0)
		assert.ErrorIs(t, err, models.ErrValidation, "hours=%d", hours)
		_, err = store.UpsertSummary(ctx, owner.ID, "Bob", []models.SavedEntry{{Hours: hours}})
		assert.ErrorIs(t, err, models.ErrValidation, "hours=%d", hours)
	}

	// A large summary's total exceeds 32 bits and must survive storage intact.
	entries := make([]models.SavedEntry, 400)
	for i := range entries {
		entries[i] = models.SavedEntry{Hours: models.MaxHours, Minutes: 59}
	}
	want := 400 * (models.MaxHours*60 + 59)
	saved, err := store.UpsertSummary(ctx, owner.ID, "Big", entries)
	require.NoError(t, err)
	assert.Equal(t, want, saved.TotalMinutes)

	list, err := store.ListSummaries(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, want, list[0].TotalMinutes)
	assert.Equal(t, models.TotalMinutes(list[0].Entries), list[0].TotalMinutes)
}

func testSummaryCopies(t *testing.T, newStore Factory) {
	ctx := context.Background()
	store := newStore(t, Clock())
	owner := CreateUser(t, store, "alice", "a@x.com")

	saved, err := store.UpsertSummary(ctx, owner.ID, "Bob", []models.SavedEntry{{Hours: 1, Minutes: 30}})
	require.NoError(t, err)
	saved.Entries[0].Hours = 99

	list, err := store.ListSummaries(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	list[0].Entries[0].Minutes = 0

	again, err := store.ListSummaries(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, 1, again[0].Entries[0].Hours)
	assert.Equal(t, 30, again[0].Entries[0].Minutes)
	assert.Equal(t, 90, again[0].TotalMinutes)
}
