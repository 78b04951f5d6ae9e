package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/miniapp/internal/domain"
	"github.com/fjod/miniapp/internal/repository"
	"github.com/fjod/miniapp/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type SessionService interface {
	SetAddress(ctx context.Context, userID, address, comment string) error
	GetSession(ctx context.Context, userID string) (*domain.Session, error)
	NearbyStores(ctx context.Context, userID string, radius int) json.RawMessage
}

type SessionHandler struct {
	sessions     SessionService
	timeout      time.Duration
	maxBodyBytes int64
	log          logrus.FieldLogger
}

func NewSessionHandler(sessions SessionService, timeout time.Duration, maxBodyBytes int64, log logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{
		sessions:     sessions,
		timeout:      timeout,
		maxBodyBytes: maxBodyBytes,
		log:          log,
	}
}

type SetAddressRequestDTO struct {
	UserID  flexString `json:"user_id"`
	Address string     `json:"address"`
	Comment string     `json:"comment"`
}

type SessionResponse struct {
	Success bool            `json:"success"`
	Session *domain.Session `json:"session"`
}

func (h *SessionHandler) SetAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetAddressRequestDTO
	if err := decodeBody(w, r, h.maxBodyBytes, &req); err != nil {
		h.log.WithError(err).WithField("request_id", getRequestID(ctx)).Warn("invalid set-address body")
		respondResult(requestLog(h.log, r), w, false, msgBadRequest)
		return
	}

	err := h.sessions.SetAddress(ctx, userIDOrDemo(req.UserID), req.Address, req.Comment)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			respondResult(requestLog(h.log, r), w, false, verr.Message)
			return
		}
		respondResult(requestLog(h.log, r), w, false, msgAddressFailed)
		return
	}
	respondResult(requestLog(h.log, r), w, true, msgAddressSet)
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "user_id")
	session, err := h.sessions.GetSession(ctx, userID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		respondResult(requestLog(h.log, r), w, false, msgSessionNotFound)
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("get session failed")
		respondResult(requestLog(h.log, r), w, false, msgSessionFailed)
		return
	}
	respondJSON(requestLog(h.log, r), w, http.StatusOK, SessionResponse{Success: true, Session: session})
}
