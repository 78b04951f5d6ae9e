package repository

import (
	"context"
	"errors"

	"github.com/fjod/miniapp/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrSessionNotFound = errors.New("session not found")
)

// CartRepository defines the interface for cart data operations
// Consumers define this interface, not the storage implementation
type CartRepository interface {
	// GetCart returns ErrCartNotFound when the user has no cart. Reading never creates one.
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)

	// AddItem merges item into the user's cart, creating the cart if needed,
	// and returns the cart as stored after the mutation.
	AddItem(ctx context.Context, userID string, item domain.CartItem) (*domain.Cart, error)

	// DeleteCart removes the cart. Deleting a missing cart is not an error.
	DeleteCart(ctx context.Context, userID string) error

	CountCarts(ctx context.Context) (int, error)
}

// SessionRepository stores the last address session per user.
type SessionRepository interface {
	GetSession(ctx context.Context, userID string) (*domain.Session, error)
	SaveSession(ctx context.Context, session *domain.Session) error
	CountSessions(ctx context.Context) (int, error)
}
