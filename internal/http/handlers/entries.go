package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hongminglow/timecard-be/internal/auth"
	"github.com/hongminglow/timecard-be/internal/http/respond"
	"github.com/hongminglow/timecard-be/internal/models"
	"github.com/hongminglow/timecard-be/internal/models/dto"
	"github.com/hongminglow/timecard-be/internal/storage"
)

// EntriesHandler serves the caller's time entries. It must sit behind the session gate.
type EntriesHandler struct {
	store storage.EntryStore
	log   zerolog.Logger
}

// NewEntriesHandler constructs the handler.
func NewEntriesHandler(store storage.EntryStore, log zerolog.Logger) *EntriesHandler {
	return &EntriesHandler{store: store, log: log}
}

// Register attaches entry routes to the router.
func (h *EntriesHandler) Register(r chi.Router) {
	r.Post("/entries", h.handleAdd)
	r.Get("/entries", h.handleList)
	r.Delete("/entries", h.handleDeleteAll)
	r.Delete("/entries/{id}", h.handleDeleteOne)
}

func (h *EntriesHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req dto.AddEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := h.store.AddEntry(r.Context(), id.UserID, req.PersonName, req.Hours, req.Minutes)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("user_id", id.UserID).Msg("add entry")
		respond.ServerError(w)
		return
	}
	respond.JSON(w, http.StatusOK, entry)
}

func (h *EntriesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	entries, err := h.store.ListEntries(r.Context(), id.UserID, r.URL.Query().Get("personName"))
	if err != nil {
		h.log.Error().Err(err).Str("user_id", id.UserID).Msg("list entries")
		respond.ServerError(w)
		return
	}
	respond.JSON(w, http.StatusOK, entries)
}

func (h *EntriesHandler) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	n, err := h.store.DeleteEntries(r.Context(), id.UserID, r.URL.Query().Get("personName"))
	if err != nil {
		h.log.Error().Err(err).Str("user_id", id.UserID).Msg("delete entries")
		respond.ServerError(w)
		return
	}
	respond.JSON(w, http.StatusOK, dto.DeleteEntriesResponse{DeletedCount: n})
}

func (h *EntriesHandler) handleDeleteOne(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	deleted, err := h.store.DeleteEntry(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		h.log.Error().Err(err).Str("user_id", id.UserID).Msg("delete entry")
		respond.ServerError(w)
		return
	}
	if !deleted {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "entry not found")
		return
	}
	respond.JSON(w, http.StatusOK, dto.DeleteEntriesResponse{DeletedCount: 1})
}

// callerIdentity reads the identity attached by the session gate.
func callerIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, respond.CodeMissingAuthorization, "Missing authorization header")
	}
	return id, ok
}
