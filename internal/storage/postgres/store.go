package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/hongminglow/timecard-be/internal/models"
	"github.com/hongminglow/timecard-be/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for createdAt/savedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store provides Postgres-backed persistence for users, entries and saved summaries.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Ping checks that a pooled connection is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases database resources.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, email, password_hash, created_at;
		`
	row := s.pool.QueryRow(ctx, query, uuid.NewString(), user.Username, models.NormalizeEmail(user.Email), user.PasswordHash, s.now())
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `
	SELECT id, username, email, password_hash, created_at
	FROM users
	WHERE email = $1;
	`
	row := s.pool.QueryRow(ctx, query, models.NormalizeEmail(email))
	return scanUser(row)
}

// AddEntry validates and inserts one entry.
func (s *Store) AddEntry(ctx context.Context, ownerID, personName string, hours, minutes int) (models.Entry, error) {
	if err := models.ValidateEntry(personName, hours, minutes); err != nil {
		return models.Entry{}, err
	}
	const query = `
	INSERT INTO entries (id, user_id, person_name, hours, minutes, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, user_id, person_name, hours, minutes, created_at;
	`
	row := s.pool.QueryRow(ctx, query, uuid.NewString(), ownerID, personName, hours, minutes, s.now())
	entry, err := scanEntry(row)
	if err != nil {
		return models.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns the owner's entries oldest first, optionally narrowed to one person.
func (s *Store) ListEntries(ctx context.Context, ownerID, personName string) ([]models.Entry, error) {
	const query = `
	SELECT id, user_id, person_name, hours, minutes, created_at
	FROM entries
	WHERE user_id = $1 AND ($2::text = '' OR person_name = $2)
	ORDER BY created_at ASC, seq ASC;
	`
	rows, err := s.pool.Query(ctx, query, ownerID, personName)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Entry, error) {
		return scanEntry(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	return entries, nil
}

// DeleteEntries removes the owner's entries, optionally only for one person.
func (s *Store) DeleteEntries(ctx context.Context, ownerID, personName string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM entries WHERE user_id = $1 AND ($2::text = '' OR person_name = $2)`, ownerID, personName)
	if err != nil {
		return 0, fmt.Errorf("delete entries: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteEntry removes a single entry if the owner matches.
func (s *Store) DeleteEntry(ctx context.Context, ownerID, entryID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM entries WHERE id = $1 AND user_id = $2`, entryID, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpsertSummary overwrites the snapshot for (ownerID, personName) in one statement.
func (s *Store) UpsertSummary(ctx context.Context, ownerID, personName string, entries []models.SavedEntry) (models.SavedSummary, error) {
	if err := models.ValidatePersonName(personName); err != nil {
		return models.SavedSummary{}, err
	}
	now := s.now()
	prepared, err := models.PrepareSavedEntries(entries, now)
	if err != nil {
		return models.SavedSummary{}, err
	}
	payload, err := json.Marshal(prepared)
	if err != nil {
		return models.SavedSummary{}, fmt.Errorf("encode entries: %w", err)
	}
	const query = `
	INSERT INTO saved_summaries (id, user_id, person_name, entries, total_minutes, saved_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT ON CONSTRAINT saved_summaries_owner_person_key DO UPDATE SET
		entries = EXCLUDED.entries,
		total_minutes = EXCLUDED.total_minutes,
		saved_at = EXCLUDED.saved_at
	RETURNING id, user_id, person_name, entries, total_minutes, saved_at;
	`
	row := s.pool.QueryRow(ctx, query, uuid.NewString(), ownerID, personName, payload, models.TotalMinutes(prepared), now)
	summary, err := scanSummary(row)
	if err != nil {
		return models.SavedSummary{}, fmt.Errorf("upsert summary: %w", err)
	}
	return summary, nil
}

// ListSummaries returns the owner's snapshots, most recently saved first.
func (s *Store) ListSummaries(ctx context.Context, ownerID string) ([]models.SavedSummary, error) {
	const query = `
	SELECT id, user_id, person_name, entries, total_minutes, saved_at
	FROM saved_summaries
	WHERE user_id = $1
	ORDER BY saved_at DESC, person_name ASC;
	`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SavedSummary, error) {
		return scanSummary(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	if summaries == nil {
		summaries = []models.SavedSummary{}
	}
	return summaries, nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func scanEntry(row pgx.Row) (models.Entry, error) {
	var e models.Entry
	if err := row.Scan(&e.ID, &e.OwnerUserID, &e.PersonName, &e.Hours, &e.Minutes, &e.CreatedAt); err != nil {
		return models.Entry{}, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func scanSummary(row pgx.Row) (models.SavedSummary, error) {
	var summary models.SavedSummary
	var payload []byte
	if err := row.Scan(&summary.ID, &summary.OwnerUserID, &summary.PersonName, &payload, &summary.TotalMinutes, &summary.SavedAt); err != nil {
		return models.SavedSummary{}, err
	}
	if err := json.Unmarshal(payload, &summary.Entries); err != nil {
		return models.SavedSummary{}, fmt.Errorf("decode entries: %w", err)
	}
	summary.SavedAt = summary.SavedAt.UTC()
	return summary, nil
}
