package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total_price"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem holds the display fields captured when the product was first added.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// NewCart returns an empty cart owned by userID.
func NewCart(userID string, now time.Time) *Cart {
	return &Cart{
		UserID:    userID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddItem merges item into the cart. A product already present keeps its
// name and price and only accumulates quantity.
func (c *Cart) AddItem(item CartItem, now time.Time) {
	merged := false
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		c.Items = append(c.Items, item)
	}

	c.Recalculate()
	c.UpdatedAt = now
}

// Recalculate recomputes Total from the line items.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, item := range c.Items {
		line := decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	c.Total = total.InexactFloat64()
}

// ItemCount is the number of distinct products in the cart.
func (c *Cart) ItemCount() int {
	return len(c.Items)
}
