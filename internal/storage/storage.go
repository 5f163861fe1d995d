package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/timecard-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore holds user identity records. Emails are unique after normalization.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// EntryStore holds time-log records scoped to an owner. An empty personName
// means "all persons" for List and Delete.
type EntryStore interface {
	AddEntry(ctx context.Context, ownerID, personName string, hours, minutes int) (models.Entry, error)
	ListEntries(ctx context.Context, ownerID, personName string) ([]models.Entry, error)
	DeleteEntries(ctx context.Context, ownerID, personName string) (int64, error)
	DeleteEntry(ctx context.Context, ownerID, entryID string) (bool, error)
}

// SummaryStore holds at most one saved snapshot per (owner, person).
type SummaryStore interface {
	UpsertSummary(ctx context.Context, ownerID, personName string, entries []models.SavedEntry) (models.SavedSummary, error)
	ListSummaries(ctx context.Context, ownerID string) ([]models.SavedSummary, error)
}

// Store is the full persistence surface used by the API layer.
type Store interface {
	UserStore
	EntryStore
	SummaryStore
	Ping(ctx context.Context) error
	Close() error
}
