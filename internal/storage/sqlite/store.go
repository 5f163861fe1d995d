// Package sqlite is a single-file Store for local runs without Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hongminglow/timecard-be/internal/models"
	"github.com/hongminglow/timecard-be/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for createdAt/savedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store provides SQLite-backed persistence. Timestamps are stored as unix nanoseconds.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates (if needed) the database file at path and applies migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer keeps upserts serialized and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.ID = uuid.NewString()
	user.Email = models.NormalizeEmail(user.Email)
	user.CreatedAt = s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt.UnixNano())
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE email = ?`,
		models.NormalizeEmail(email))
	var user models.User
	var createdAt int64
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	user.CreatedAt = fromNanos(createdAt)
	return user, nil
}

func (s *Store) AddEntry(ctx context.Context, ownerID, personName string, hours, minutes int) (models.Entry, error) {
	if err := models.ValidateEntry(personName, hours, minutes); err != nil {
		return models.Entry{}, err
	}
	entry := models.Entry{
		ID:          uuid.NewString(),
		OwnerUserID: ownerID,
		PersonName:  personName,
		Hours:       hours,
		Minutes:     minutes,
		CreatedAt:   s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (id, user_id, person_name, hours, minutes, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.OwnerUserID, entry.PersonName, entry.Hours, entry.Minutes, entry.CreatedAt.UnixNano())
	if err != nil {
		return models.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return entry, nil
}

func (s *Store) ListEntries(ctx context.Context, ownerID, personName string) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, person_name, hours, minutes, created_at
		FROM entries
		WHERE user_id = ? AND (? = '' OR person_name = ?)
		ORDER BY created_at ASC, rowid ASC`,
		ownerID, personName, personName)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.Entry, 0)
	for rows.Next() {
		var e models.Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.OwnerUserID, &e.PersonName, &e.Hours, &e.Minutes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.CreatedAt = fromNanos(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteEntries(ctx context.Context, ownerID, personName string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE user_id = ? AND (? = '' OR person_name = ?)`,
		ownerID, personName, personName)
	if err != nil {
		return 0, fmt.Errorf("delete entries: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) DeleteEntry(ctx context.Context, ownerID, entryID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ? AND user_id = ?`, entryID, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpsertSummary relies on ON CONFLICT so concurrent saves for one person never duplicate.
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
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO saved_summaries (id, user_id, person_name, entries, total_minutes, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, person_name) DO UPDATE SET
			entries = excluded.entries,
			total_minutes = excluded.total_minutes,
			saved_at = excluded.saved_at
		RETURNING id, user_id, person_name, entries, total_minutes, saved_at`,
		uuid.NewString(), ownerID, personName, string(payload), models.TotalMinutes(prepared), now.UnixNano())
	summary, err := scanSummary(row)
	if err != nil {
		return models.SavedSummary{}, fmt.Errorf("upsert summary: %w", err)
	}
	return summary, nil
}

func (s *Store) ListSummaries(ctx context.Context, ownerID string) ([]models.SavedSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, person_name, entries, total_minutes, saved_at
		FROM saved_summaries
		WHERE user_id = ?
		ORDER BY saved_at DESC, person_name ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	out := make([]models.SavedSummary, 0)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (models.SavedSummary, error) {
	var summary models.SavedSummary
	var payload string
	var savedAt int64
	if err := row.Scan(&summary.ID, &summary.OwnerUserID, &summary.PersonName, &payload, &summary.TotalMinutes, &savedAt); err != nil {
		return models.SavedSummary{}, err
	}
	if err := json.Unmarshal([]byte(payload), &summary.Entries); err != nil {
		return models.SavedSummary{}, fmt.Errorf("decode entries: %w", err)
	}
	summary.SavedAt = fromNanos(savedAt)
	return summary, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
