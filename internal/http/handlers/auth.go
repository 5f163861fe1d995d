package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hongminglow/timecard-be/internal/auth"
	"github.com/hongminglow/timecard-be/internal/http/respond"
	"github.com/hongminglow/timecard-be/internal/middleware"
	"github.com/hongminglow/timecard-be/internal/models"
	"github.com/hongminglow/timecard-be/internal/models/dto"
	"github.com/hongminglow/timecard-be/internal/storage"
)

// AuthHandler owns the signup/login endpoints.
type AuthHandler struct {
	store      storage.UserStore
	tokens     *auth.TokenManager
	bcryptCost int
	log        zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.UserStore, tokens *auth.TokenManager, bcryptCost int, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, bcryptCost: bcryptCost, log: log}
}

// Register attaches auth routes to the router.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
}

func (h *AuthHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	username := strings.TrimSpace(req.Username)
	email := models.NormalizeEmail(req.Email)
	if username == "" || email == "" || strings.TrimSpace(req.Password) == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "Missing fields")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password, h.bcryptCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "password is too long")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("hash password")
		respond.ServerError(w)
		return
	}

	created, err := h.store.CreateUser(r.Context(), models.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		middleware.RecordAuthAttempt("signup", false)
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusBadRequest, respond.CodeConflict, "Email already used")
			return
		}
		h.log.Error().Err(err).Msg("create user")
		respond.ServerError(w)
		return
	}
	middleware.RecordAuthAttempt("signup", true)
	h.respondWithToken(w, created)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := models.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "Missing fields")
		return
	}

	user, err := h.store.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.RecordAuthAttempt("login", false)
			respond.Error(w, http.StatusUnauthorized, respond.CodeInvalidCredentials, "Invalid credentials")
			return
		}
		h.log.Error().Err(err).Msg("find user")
		respond.ServerError(w)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		middleware.RecordAuthAttempt("login", false)
		respond.Error(w, http.StatusUnauthorized, respond.CodeInvalidCredentials, "Invalid credentials")
		return
	}
	middleware.RecordAuthAttempt("login", true)
	h.respondWithToken(w, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, user models.User) {
	token, err := h.tokens.Generate(user)
	if err != nil {
		h.log.Error().Err(err).Msg("generate token")
		respond.ServerError(w)
		return
	}
	respond.JSON(w, http.StatusOK, dto.AuthResponse{Token: token, Username: user.Username, Email: user.Email})
}
