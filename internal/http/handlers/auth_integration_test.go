package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/timecard-be/internal/auth"
	"github.com/hongminglow/timecard-be/internal/middleware"
	"github.com/hongminglow/timecard-be/internal/models"
	"github.com/hongminglow/timecard-be/internal/models/dto"
	"github.com/hongminglow/timecard-be/internal/storage/postgres"
)

// TestAuthIntegration exercises signup, login and an authenticated entry round
// trip against a live Postgres database.
func TestAuthIntegration(t *testing.T) {
	if os.Getenv("RUN_AUTH_INTEGRATION") != "true" {
		t.Skip("set RUN_AUTH_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	require.NotEmpty(t, dbURL, "DATABASE_URL is required")

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, dbURL)
	require.NoError(t, err)
	defer store.Close()

	tokens := auth.NewTokenManager("integration-secret", "timecard-integration", time.Hour)
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		NewAuthHandler(store, tokens, 4, zerolog.Nop()).Register(api)
		api.With(middleware.RequireAuth(tokens)).Group(func(priv chi.Router) {
			NewEntriesHandler(store, zerolog.Nop()).Register(priv)
		})
	})

	username := fmt.Sprintf("apitest_%d", time.Now().UnixNano())
	email := username + "@example.com"
	password := fmt.Sprintf("Pass!%d", time.Now().UnixNano())

	rec := do(t, r, http.MethodPost, "/api/signup", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loggedIn := decode[dto.AuthResponse](t, rec)
	require.NotEmpty(t, loggedIn.Token)
	assert.Equal(t, username, loggedIn.Username)

	rec = do(t, r, http.MethodPost, "/api/entries", loggedIn.Token, map[string]any{"personName": "Bob", "hours": 1, "minutes": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/api/entries?personName=Bob", loggedIn.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Entry](t, rec), 1)

	t.Logf("created user %s and logged one entry via /api/entries", email)
}

func loadDotEnv() {
	for _, path := range []string{".env", "../.env", "../../.env", "../../../.env"} {
		_ = godotenv.Overload(path)
	}
}
