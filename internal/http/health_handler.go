package http

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type CartCounter interface {
	CountCarts(ctx context.Context) (int, error)
}

type SessionCounter interface {
	CountSessions(ctx context.Context) (int, error)
}

type HealthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	ActiveSessions int    `json:"active_sessions"`
	ActiveCarts    int    `json:"active_carts"`
}

type HealthHandler struct {
	carts    CartCounter
	sessions SessionCounter
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewHealthHandler(carts CartCounter, sessions SessionCounter, log logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{carts: carts, sessions: sessions, log: log, now: time.Now}
}

// Health reports "degraded" when the stores can't be counted.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Timestamp: h.now().Format(time.RFC3339Nano)}

	sessions, err := h.sessions.CountSessions(ctx)
	if err != nil {
		h.log.WithError(err).Warn("count sessions failed")
		resp.Status = "degraded"
	}
	carts, err := h.carts.CountCarts(ctx)
	if err != nil {
		h.log.WithError(err).Warn("count carts failed")
		resp.Status = "degraded"
	}
	resp.ActiveSessions = sessions
	resp.ActiveCarts = carts

	respondJSON(requestLog(h.log, r), w, http.StatusOK, resp)
}
