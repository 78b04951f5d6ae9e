package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/miniapp/internal/domain"
	"github.com/fjod/miniapp/internal/repository"
	"github.com/fjod/miniapp/internal/upstream"
	"github.com/sirupsen/logrus"
)

type Geocoder interface {
	SearchAddress(ctx context.Context, address string) json.RawMessage
}

type StoreLocator interface {
	GetStoresByLocation(ctx context.Context, lat, lon float64, radius int) json.RawMessage
}

var noStores = json.RawMessage(`[]`)

type SessionService struct {
	repo     repository.SessionRepository
	geocoder Geocoder
	locator  StoreLocator
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewSessionService(repo repository.SessionRepository, geocoder Geocoder, locator StoreLocator, log logrus.FieldLogger) *SessionService {
	return &SessionService{
		repo:     repo,
		geocoder: geocoder,
		locator:  locator,
		log:      log.WithField("component", "session"),
		now:      time.Now,
	}
}

// SetAddress replaces the user's session. The geocode lookup is best effort:
// a failed lookup is stored as a nil result and the address is still accepted.
func (s *SessionService) SetAddress(ctx context.Context, userID, address, comment string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return newValidationError("address", "Адрес не указан")
	}

	geocode := s.geocoder.SearchAddress(ctx, address)
	if geocode == nil {
		s.log.WithField("user_id", userID).Info("address stored without geocode result")
	}

	session := &domain.Session{
		UserID:        userID,
		Address:       address,
		Comment:       comment,
		GeocodeResult: geocode,
		CapturedAt:    s.now(),
	}
	if err := s.repo.SaveSession(ctx, session); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("repo save session error")
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession returns repository.ErrSessionNotFound for users who never set an address.
func (s *SessionService) GetSession(ctx context.Context, userID string) (*domain.Session, error) {
	return s.repo.GetSession(ctx, userID)
}

func (s *SessionService) CountSessions(ctx context.Context) (int, error) {
	return s.repo.CountSessions(ctx)
}

// NearbyStores looks up stores around the first geocode candidate of the
// user's session. It returns an empty list when there is nothing to locate.
func (s *SessionService) NearbyStores(ctx context.Context, userID string, radius int) json.RawMessage {
	session, err := s.repo.GetSession(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			s.log.WithError(err).WithField("user_id", userID).Error("repo get session error")
		}
		return noStores
	}

	lat, lon, ok := upstream.FirstCoordinates(session.GeocodeResult)
	if !ok {
		return noStores
	}
	return s.locator.GetStoresByLocation(ctx, lat, lon, radius)
}
