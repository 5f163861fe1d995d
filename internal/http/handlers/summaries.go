package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hongminglow/timecard-be/internal/http/respond"
	"github.com/hongminglow/timecard-be/internal/models"
	"github.com/hongminglow/timecard-be/internal/models/dto"
	"github.com/hongminglow/timecard-be/internal/storage"
)

// SummariesHandler saves and lists per-person snapshots.
type SummariesHandler struct {
	store storage.SummaryStore
	log   zerolog.Logger
}

// NewSummariesHandler constructs the handler.
func NewSummariesHandler(store storage.SummaryStore, log zerolog.Logger) *SummariesHandler {
	return &SummariesHandler{store: store, log: log}
}

// Register attaches the save-person and saved-persons routes to the router.
func (h *SummariesHandler) Register(r chi.Router) {
	r.Post("/save-person", h.handleSave)
	r.Get("/saved-persons", h.handleList)
}

func (h *SummariesHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req dto.SavePersonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	saved, err := h.store.UpsertSummary(r.Context(), id.UserID, req.PersonName, req.Entries)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "Invalid payload")
			return
		}
		h.log.Error().Err(err).Str("user_id", id.UserID).Msg("save person")
		respond.ServerError(w)
		return
	}
	respond.JSON(w, http.StatusOK, saved)
}

func (h *SummariesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	id, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	summaries, err := h.store.ListSummaries(r.Context(), id.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", id.UserID).Msg("list saved persons")
		respond.ServerError(w)
		return
	}
	respond.JSON(w, http.StatusOK, summaries)
}
