package repository

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/fjod/miniapp/internal/domain"
)

// MemoryCartRepository keeps carts in process memory. Contents are lost on restart.
type MemoryCartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
	now   func() time.Time
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{
		carts: make(map[string]*domain.Cart),
		now:   time.Now,
	}
}

func (m *MemoryCartRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cart, ok := m.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return copyCart(cart), nil
}

func (m *MemoryCartRepository) AddItem(_ context.Context, userID string, item domain.CartItem) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cart, ok := m.carts[userID]
	if !ok {
		cart = domain.NewCart(userID, now)
		m.carts[userID] = cart
	}
	cart.AddItem(item, now)

	return copyCart(cart), nil
}

func (m *MemoryCartRepository) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

func (m *MemoryCartRepository) CountCarts(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.carts), nil
}

// copyCart detaches the returned cart from the stored one so callers can't
// mutate it outside the lock.
func copyCart(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Items = slices.Clone(c.Items)
	if cp.Items == nil {
		cp.Items = []domain.CartItem{}
	}
	return &cp
}

// MemorySessionRepository keeps address sessions in process memory.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*domain.Session),
	}
}

func (m *MemorySessionRepository) GetSession(_ context.Context, userID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return copySession(session), nil
}

func (m *MemorySessionRepository) SaveSession(_ context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.UserID] = copySession(session)
	return nil
}

func (m *MemorySessionRepository) CountSessions(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

func copySession(s *domain.Session) *domain.Session {
	cp := *s
	if s.GeocodeResult != nil {
		cp.GeocodeResult = append(json.RawMessage(nil), s.GeocodeResult...)
	}
	return &cp
}
