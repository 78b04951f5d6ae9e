package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"testing"

	"github.com/fjod/miniapp/internal/domain"
	"github.com/fjod/miniapp/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type failingCartRepository struct {
	err error
}

func (f failingCartRepository) GetCart(context.Context, string) (*domain.Cart, error) {
	return nil, f.err
}

func (f failingCartRepository) AddItem(context.Context, string, domain.CartItem) (*domain.Cart, error) {
	return nil, f.err
}

func (f failingCartRepository) DeleteCart(context.Context, string) error {
	return f.err
}

func (f failingCartRepository) CountCarts(context.Context) (int, error) {
	return 0, f.err
}

type mockRecorder struct {
	m     sync.Mutex
	kinds []string
}

func (r *mockRecorder) CartMutation(kind string) {
	r.m.Lock()
	defer r.m.Unlock()
	r.kinds = append(r.kinds, kind)
}

func TestAddItem_Scenario(t *testing.T) {
	sut := NewCartService(repository.NewMemoryCartRepository(), nil, testLogger())
	ctx := context.Background()

	_, err := sut.AddItem(ctx, "u", AddItemInput{ProductID: "p1", Name: "Milk", UnitPrice: 50.0, Quantity: 1})
	require.NoError(t, err)
	summary, err := sut.AddItem(ctx, "u", AddItemInput{ProductID: "p1", Name: "Milk", UnitPrice: 50.0, Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ItemCount)
	assert.Equal(t, 150.0, summary.Total)

	cart, err := sut.GetCart(ctx, "u")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 150.0, cart.Total)
}

func TestAddItem_TotalProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	prices := map[string]float64{"a": 12.5, "b": 0.99, "c": 100, "d": 0, "e": 7.3}
	ids := []string{"a", "b", "c", "d", "e"}

	for round := 0; round < 20; round++ {
		sut := NewCartService(repository.NewMemoryCartRepository(), nil, testLogger())
		ctx := context.Background()

		quantities := map[string]int{}
		for i := 0; i < 30; i++ {
			id := ids[rng.Intn(len(ids))]
			qty := rng.Intn(4) + 1
			_, err := sut.AddItem(ctx, "u", AddItemInput{ProductID: id, UnitPrice: prices[id], Quantity: qty})
			require.NoError(t, err)
			quantities[id] += qty
		}

		expected := decimal.Zero
		for id, qty := range quantities {
			expected = expected.Add(decimal.NewFromFloat(prices[id]).Mul(decimal.NewFromInt(int64(qty))))
		}

		cart, err := sut.GetCart(ctx, "u")
		require.NoError(t, err)
		assert.Len(t, cart.Items, len(quantities))
		assert.Equal(t, expected.InexactFloat64(), cart.Total, "round %d", round)
	}
}

func TestAddItem_DefaultQuantity(t *testing.T) {
	sut := NewCartService(repository.NewMemoryCartRepository(), nil, testLogger())

	summary, err := sut.AddItem(context.Background(), "u", AddItemInput{ProductID: "p1", UnitPrice: 10})
	require.NoError(t, err)
	assert.Equal(t, 10.0, summary.Total)
}

func TestAddItem_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    AddItemInput
		field string
	}{
		{"missing product", AddItemInput{UnitPrice: 10, Quantity: 1}, "ProductID"},
		{"blank product", AddItemInput{ProductID: "   ", UnitPrice: 10, Quantity: 1}, "ProductID"},
		{"negative price", AddItemInput{ProductID: "p1", UnitPrice: -1, Quantity: 1}, "UnitPrice"},
		{"negative quantity", AddItemInput{ProductID: "p1", UnitPrice: 1, Quantity: -2}, "Quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryCartRepository()
			sut := NewCartService(repo, nil, testLogger())

			_, err := sut.AddItem(context.Background(), "u", tt.in)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.NotEmpty(t, verr.Message)

			n, _ := repo.CountCarts(context.Background())
			assert.Equal(t, 0, n)
		})
	}
}

func TestGetCart_EmptyWithoutSideEffect(t *testing.T) {
	repo := repository.NewMemoryCartRepository()
	sut := NewCartService(repo, nil, testLogger())

	cart, err := sut.GetCart(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.NotNil(t, cart.Items)
	assert.Equal(t, 0.0, cart.Total)

	n, err := sut.CountCarts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestClearCart_Idempotent(t *testing.T) {
	recorder := &mockRecorder{}
	sut := NewCartService(repository.NewMemoryCartRepository(), recorder, testLogger())
	ctx := context.Background()

	_, err := sut.AddItem(ctx, "u", AddItemInput{ProductID: "p1", UnitPrice: 1, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, sut.ClearCart(ctx, "u"))
	require.NoError(t, sut.ClearCart(ctx, "u"))

	cart, err := sut.GetCart(ctx, "u")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, []string{"add", "clear", "clear"}, recorder.kinds)
}

func TestCartService_RepoErrors(t *testing.T) {
	sut := NewCartService(failingCartRepository{err: fmt.Errorf("redis down")}, nil, testLogger())
	ctx := context.Background()

	_, err := sut.AddItem(ctx, "u", AddItemInput{ProductID: "p1", UnitPrice: 1, Quantity: 1})
	require.ErrorContains(t, err, "redis down")
	assert.NotErrorIs(t, err, ErrValidation)

	_, err = sut.GetCart(ctx, "u")
	require.ErrorContains(t, err, "redis down")

	err = sut.ClearCart(ctx, "u")
	require.ErrorContains(t, err, "redis down")
}
