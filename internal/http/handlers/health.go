package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/hongminglow/timecard-be/internal/http/respond"
)

// Pinger is satisfied by every storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler returns uptime and dependency status.
type HealthHandler struct {
	startedAt time.Time
	store     Pinger
	redis     *redis.Client
}

// NewHealthHandler creates a health endpoint handler; redisClient may be nil.
func NewHealthHandler(startedAt time.Time, store Pinger, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, store: store, redis: redisClient}
}

// Register wires the handler into a router.
func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/health", h.handle)
}

type healthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		checks["database"] = "down"
		status = http.StatusServiceUnavailable
	}
	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
			status = http.StatusServiceUnavailable
		}
	}

	body := healthResponse{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Truncate(time.Second).String(),
		Checks: checks,
	}
	if status != http.StatusOK {
		body.Status = "unhealthy"
	}
	respond.JSON(w, status, body)
}
