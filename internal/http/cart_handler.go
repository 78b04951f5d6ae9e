package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/miniapp/internal/domain"
	"github.com/fjod/miniapp/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type CartService interface {
	AddItem(ctx context.Context, userID string, in service.AddItemInput) (service.CartSummary, error)
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	carts        CartService
	timeout      time.Duration
	maxBodyBytes int64
	log          logrus.FieldLogger
}

func NewCartHandler(carts CartService, timeout time.Duration, maxBodyBytes int64, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		carts:        carts,
		timeout:      timeout,
		maxBodyBytes: maxBodyBytes,
		log:          log,
	}
}

type AddItemRequestDTO struct {
	UserID    flexString `json:"user_id"`
	ProductID flexString `json:"product_id"`
	Name      string     `json:"name"`
	Price     float64    `json:"price"`
	Quantity  int        `json:"quantity"`
}

type AddItemResponse struct {
	Success    bool    `json:"success"`
	CartCount  int     `json:"cart_count"`
	TotalPrice float64 `json:"total_price"`
}

type CartResponse struct {
	Items      []domain.CartItem `json:"items"`
	TotalPrice float64           `json:"total_price"`
}

var emptyCartResponse = CartResponse{Items: []domain.CartItem{}, TotalPrice: 0}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeBody(w, r, h.maxBodyBytes, &req); err != nil {
		h.log.WithError(err).WithField("request_id", getRequestID(ctx)).Warn("invalid add-to-cart body")
		respondResult(requestLog(h.log, r), w, false, msgBadRequest)
		return
	}

	summary, err := h.carts.AddItem(ctx, userIDOrDemo(req.UserID), service.AddItemInput{
		ProductID: string(req.ProductID),
		Name:      req.Name,
		UnitPrice: req.Price,
		Quantity:  req.Quantity,
	})
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			respondResult(requestLog(h.log, r), w, false, verr.Message)
			return
		}
		respondResult(requestLog(h.log, r), w, false, msgAddToCartFailed)
		return
	}

	respondJSON(requestLog(h.log, r), w, http.StatusOK, AddItemResponse{
		Success:    true,
		CartCount:  summary.ItemCount,
		TotalPrice: summary.Total,
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := chi.URLParam(r, "user_id")
	cart, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("get cart failed")
		respondJSON(requestLog(h.log, r), w, http.StatusOK, emptyCartResponse)
		return
	}

	respondJSON(requestLog(h.log, r), w, http.StatusOK, CartResponse{Items: cart.Items, TotalPrice: cart.Total})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.ClearCart(ctx, chi.URLParam(r, "user_id")); err != nil {
		respondResult(requestLog(h.log, r), w, false, msgClearCartFailed)
		return
	}
	respondResult(requestLog(h.log, r), w, true, msgCartCleared)
}
