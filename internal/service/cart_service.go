package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/miniapp/internal/domain"
	"github.com/fjod/miniapp/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// MutationRecorder counts cart mutations; metrics.Metrics satisfies it.
type MutationRecorder interface {
	CartMutation(kind string)
}

type AddItemInput struct {
	ProductID string  `validate:"required"`
	Name      string  `validate:"max=512"`
	UnitPrice float64 `validate:"gte=0"`
	Quantity  int     `validate:"gte=1"`
}

type CartSummary struct {
	ItemCount int
	Total     float64
}

var addItemMessages = map[string]string{
	"ProductID": "Не указан товар",
	"Name":      "Слишком длинное название товара",
	"UnitPrice": "Некорректная цена",
	"Quantity":  "Некорректное количество",
}

type CartService struct {
	repo     repository.CartRepository
	validate *validator.Validate
	recorder MutationRecorder
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewCartService(repo repository.CartRepository, recorder MutationRecorder, log logrus.FieldLogger) *CartService {
	return &CartService{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		recorder: recorder,
		log:      log.WithField("component", "cart"),
		now:      time.Now,
	}
}

// AddItem puts quantity units of a product into the user's cart. A zero
// quantity means one unit.
func (s *CartService) AddItem(ctx context.Context, userID string, in AddItemInput) (CartSummary, error) {
	in.ProductID = strings.TrimSpace(in.ProductID)
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if err := s.validate.Struct(in); err != nil {
		return CartSummary{}, toValidationError(err, addItemMessages)
	}

	cart, err := s.repo.AddItem(ctx, userID, domain.CartItem{
		ProductID: in.ProductID,
		Name:      in.Name,
		UnitPrice: in.UnitPrice,
		Quantity:  in.Quantity,
	})
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("repo add item error")
		return CartSummary{}, fmt.Errorf("add item: %w", err)
	}
	s.record("add")

	return CartSummary{ItemCount: cart.ItemCount(), Total: cart.Total}, nil
}

// GetCart returns the user's cart, or an empty one if none exists. Reading
// never creates a stored cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(userID, s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// ClearCart is idempotent.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if err := s.repo.DeleteCart(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("repo delete cart error")
		return fmt.Errorf("clear cart: %w", err)
	}
	s.record("clear")
	return nil
}

func (s *CartService) CountCarts(ctx context.Context) (int, error) {
	return s.repo.CountCarts(ctx)
}

func (s *CartService) record(kind string) {
	if s.recorder != nil {
		s.recorder.CartMutation(kind)
	}
}

// toValidationError reports the first failed field using messages, falling
// back to the validator's own wording.
func toValidationError(err error, messages map[string]string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newValidationError("input", err.Error())
	}
	fe := verrs[0]
	msg, ok := messages[fe.Field()]
	if !ok {
		msg = fe.Error()
	}
	return newValidationError(fe.Field(), msg)
}
