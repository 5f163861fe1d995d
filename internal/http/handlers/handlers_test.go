package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/timecard-be/internal/auth"
	"github.com/hongminglow/timecard-be/internal/http/respond"
	"github.com/hongminglow/timecard-be/internal/middleware"
	"github.com/hongminglow/timecard-be/internal/models"
	"github.com/hongminglow/timecard-be/internal/models/dto"
	"github.com/hongminglow/timecard-be/internal/storage"
	"github.com/hongminglow/timecard-be/internal/storage/memory"
	"github.com/hongminglow/timecard-be/internal/storage/storagetest"
)

// newTestAPI mounts the /api routes the way the server does, minus rate
// limiting and transport middleware.
func newTestAPI(t *testing.T) (http.Handler, storage.Store) {
	t.Helper()
	store := memory.New(memory.WithClock(storagetest.Clock()))
	tokens := auth.NewTokenManager("test-secret", "timecard-test", 7*24*time.Hour)
	log := zerolog.Nop()

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		NewAuthHandler(store, tokens, 4, log).Register(api)
		api.Group(func(priv chi.Router) {
			priv.Use(middleware.RequireAuth(tokens))
			NewEntriesHandler(store, log).Register(priv)
			NewSummariesHandler(store, log).Register(priv)
		})
	})
	return r, store
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func signup(t *testing.T, h http.Handler, username, email string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/signup", "", map[string]string{
		"username": username, "email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[dto.AuthResponse](t, rec)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestSignupAndLogin(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := do(t, h, http.MethodPost, "/api/signup", "", map[string]string{
		"username": "alice", "email": "Alice@Example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	signed := decode[dto.AuthResponse](t, rec)
	assert.Equal(t, "alice", signed.Username)
	assert.Equal(t, "alice@example.com", signed.Email)

	rec = do(t, h, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ALICE@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	logged := decode[dto.AuthResponse](t, rec)
	assert.NotEmpty(t, logged.Token)
	assert.Equal(t, "alice", logged.Username)

	// The login token opens the session gate.
	rec = do(t, h, http.MethodGet, "/api/entries", logged.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupRejections(t *testing.T) {
	h, _ := newTestAPI(t)
	signup(t, h, "alice", "alice@example.com")

	tests := []struct {
		name string
		body map[string]string
		code string
	}{
		{"duplicate email differing in case", map[string]string{"username": "al", "email": "ALICE@example.com", "password": "x"}, respond.CodeConflict},
		{"missing password", map[string]string{"username": "bob", "email": "bob@example.com"}, respond.CodeInvalidRequest},
		{"missing username", map[string]string{"email": "bob@example.com", "password": "x"}, respond.CodeInvalidRequest},
		{"blank username", map[string]string{"username": "   ", "email": "bob@example.com", "password": "x"}, respond.CodeInvalidRequest},
		{"invalid email", map[string]string{"username": "bob", "email": "not-an-email", "password": "x"}, respond.CodeInvalidRequest},
		{"password longer than bcrypt accepts", map[string]string{"username": "bob", "email": "bob@example.com", "password": strings.Repeat("p", 100)}, respond.CodeInvalidRequest},
		{"multibyte password over 72 bytes", map[string]string{"username": "bob", "email": "bob@example.com", "password": strings.Repeat("é", 40)}, respond.CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[respond.ErrorBody](t, rec)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestSignupMalformedJSON(t *testing.T) {
	h, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/api/signup", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFailures(t *testing.T) {
	h, _ := newTestAPI(t)
	signup(t, h, "alice", "alice@example.com")

	rec := do(t, h, http.MethodPost, "/api/login", "", map[string]string{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, respond.CodeInvalidCredentials, body["code"])
	assert.NotContains(t, body, "token")

	rec = do(t, h, http.MethodPost, "/api/login", "", map[string]string{"email": "nobody@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/login", "", map[string]string{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEntriesRequireSession(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := do(t, h, http.MethodGet, "/api/entries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, respond.CodeMissingAuthorization, decode[respond.ErrorBody](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/saved-persons", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, respond.CodeInvalidToken, decode[respond.ErrorBody](t, rec).Code)
}

func TestAddAndListEntries(t *testing.T) {
	h, _ := newTestAPI(t)
	token := signup(t, h, "alice", "alice@example.com")

	rec := do(t, h, http.MethodPost, "/api/entries", token, map[string]any{"personName": "Bob", "hours": 1, "minutes": 30})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[models.Entry](t, rec)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Bob", first.PersonName)

	rec = do(t, h, http.MethodPost, "/api/entries", token, map[string]any{"personName": "Bob", "hours": 0, "minutes": 45})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/entries", token, map[string]any{"personName": "Carol", "hours": 2, "minutes": 0})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/entries?personName=Bob", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]models.Entry](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, 30, entries[0].Minutes)
	assert.Equal(t, 45, entries[1].Minutes)
	assert.Equal(t, 135, models.TotalEntryMinutes(entries))
	assert.Equal(t, "2h 15m", models.FormatDuration(models.TotalEntryMinutes(entries)))

	rec = do(t, h, http.MethodGet, "/api/entries", token, nil)
	assert.Len(t, decode[[]models.Entry](t, rec), 3)
}

func TestListEntriesEmptyIsArray(t *testing.T) {
	h, _ := newTestAPI(t)
	token := signup(t, h, "alice", "alice@example.com")

	rec := do(t, h, http.MethodGet, "/api/entries?personName=Nobody", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAddEntryRejectsBadMinutes(t *testing.T) {
	h, _ := newTestAPI(t)
	token := signup(t, h, "alice", "alice@example.com")

	for _, body := range []map[string]any{
		{"personName": "Bob", "hours": 1, "minutes": 75},
		{"personName": "Bob", "hours": 0, "minutes": -1},
		{"personName": "", "hours": 1, "minutes": 0},
		{"personName": "Bob", "hours": -1, "minutes": 0},
		{"personName": "Bob", "hours": models.MaxHours + 1, "minutes": 0},
		{"personName": "Bob", "hours": int64(1) << 62, "minutes": 0},
	} {
		rec := do(t, h, http.MethodPost, "/api/entries", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%v", body)
		assert.Equal(t, respond.CodeInvalidRequest, decode[respond.ErrorBody](t, rec).Code)
	}

	rec := do(t, h, http.MethodGet, "/api/entries", token, nil)
	assert.Empty(t, decode[[]models.Entry](t, rec))
}

func TestEntriesAreScopedToOwner(t *testing.T) {
	h, _ := newTestAPI(t)
	alice := signup(t, h, "alice", "alice@example.com")
	bob := signup(t, h, "bob", "bob@example.com")

	rec := do(t, h, http.MethodPost, "/api/entries", alice, map[string]any{"personName": "Bob", "hours": 1, "minutes": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[models.Entry](t, rec)

	rec = do(t, h, http.MethodGet, "/api/entries?personName=Bob", bob, nil)
	assert.Empty(t, decode[[]models.Entry](t, rec))

	rec = do(t, h, http.MethodDelete, "/api/entries?personName=Bob", bob, nil)
	assert.Equal(t, int64(0), decode[dto.DeleteEntriesResponse](t, rec).DeletedCount)

	rec = do(t, h, http.MethodDelete, "/api/entries/"+entry.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/entries", alice, nil)
	assert.Len(t, decode[[]models.Entry](t, rec), 1)
}

func TestDeleteEntries(t *testing.T) {
	h, _ := newTestAPI(t)
	token := signup(t, h, "alice", "alice@example.com")
	for _, m := range []int{10, 20} {
		rec := do(t, h, http.MethodPost, "/api/entries", token, map[string]any{"personName": "Bob", "hours": 0, "minutes": m})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/entries", token, map[string]any{"personName": "Carol", "hours": 0, "minutes": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	carol := decode[models.Entry](t, rec)

	rec = do(t, h, http.MethodDelete, "/api/entries?personName=Bob", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), decode[dto.DeleteEntriesResponse](t, rec).DeletedCount)

	rec = do(t, h, http.MethodGet, "/api/entries?personName=Bob", token, nil)
	assert.Empty(t, decode[[]models.Entry](t, rec))

	rec = do(t, h, http.MethodDelete, "/api/entries/"+carol.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[dto.DeleteEntriesResponse](t, rec).DeletedCount)

	rec = do(t, h, http.MethodDelete, "/api/entries/"+carol.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, respond.CodeNotFound, decode[respond.ErrorBody](t, rec).Code)
}

func TestSavePersonUpserts(t *testing.T) {
	h, _ := newTestAPI(t)
	token := signup(t, h, "alice", "alice@example.com")

	rec := do(t, h, http.MethodPost, "/api/save-person", token, map[string]any{
		"personName": "Bob",
		"entries":    []map[string]any{{"hours": 1, "minutes": 30}, {"hours": 0, "minutes": 45}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[models.SavedSummary](t, rec)
	assert.Equal(t, 135, saved.TotalMinutes)
	assert.Equal(t, "Bob", saved.PersonName)
	for _, e := range saved.Entries {
		assert.False(t, e.CreatedAt.IsZero())
	}

	rec = do(t, h, http.MethodPost, "/api/save-person", token, map[string]any{
		"personName": "Bob",
		"entries":    []map[string]any{{"hours": 3, "minutes": 0}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/saved-persons", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.SavedSummary](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, 180, list[0].TotalMinutes)
	assert.Len(t, list[0].Entries, 1)
}

func TestSavePersonRejectsInvalidPayloads(t *testing.T) {
	h, _ := newTestAPI(t)
	token := signup(t, h, "alice", "alice@example.com")

	for _, body := range []map[string]any{
		{"personName": "Bob", "entries": []map[string]any{}},
		{"personName": "Bob"},
		{"personName": "", "entries": []map[string]any{{"hours": 1, "minutes": 0}}},
		{"personName": "Bob", "entries": []map[string]any{{"hours": 1, "minutes": 60}}},
		{"personName": "Bob", "entries": []map[string]any{{"hours": int64(1) << 62, "minutes": 0}}},
		{"personName": "Bob", "entries": []map[string]any{{"hours": models.MaxHours + 1, "minutes": 0}}},
	} {
		rec := do(t, h, http.MethodPost, "/api/save-person", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%v", body)
	}

	rec := do(t, h, http.MethodGet, "/api/saved-persons", token, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAddEntryAcceptsMaxHours(t *testing.T) {
	h, _ := newTestAPI(t)
	token := signup(t, h, "alice", "alice@example.com")

	rec := do(t, h, http.MethodPost, "/api/entries", token, map[string]any{"personName": "Bob", "hours": models.MaxHours, "minutes": 59})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/entries", token, map[string]any{"personName": "Bob", "hours": models.MaxHours + 1, "minutes": 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[respond.ErrorBody](t, rec).Error, "Hours must be 0-")
}

func TestHealth(t *testing.T) {
	r := chi.NewRouter()
	NewHealthHandler(time.Now(), memory.New(), nil).Register(r)

	rec := do(t, r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.NotContains(t, body.Checks, "redis")
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>timecard</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))
	h := NewStaticHandler(dir)

	rec := do(t, h, http.MethodGet, "/app.js", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/dashboard", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "timecard")

	rec = do(t, h, http.MethodGet, "/../../etc/passwd", "", nil)
	assert.Contains(t, rec.Body.String(), "timecard")

	rec = do(t, h, http.MethodGet, "/api/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, respond.CodeNotFound, decode[respond.ErrorBody](t, rec).Code)

	rec = do(t, h, http.MethodPost, "/dashboard", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, NewStaticHandler(""), http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
