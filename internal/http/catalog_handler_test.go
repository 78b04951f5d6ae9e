package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/miniapp/internal/upstream"
	"github.com/stretchr/testify/assert"
)

type CatalogMock struct {
	categories json.RawMessage
	stores     json.RawMessage
	products   json.RawMessage
	details    json.RawMessage

	storeID   string
	lat, lon  float64
	radius    int
	query     upstream.ProductQuery
	productID string
	calls     int
}

func (m *CatalogMock) GetCategories(ctx context.Context, storeID string) json.RawMessage {
	m.calls++
	m.storeID = storeID
	return m.categories
}

func (m *CatalogMock) GetStoresByLocation(ctx context.Context, lat, lon float64, radius int) json.RawMessage {
	m.calls++
	m.lat, m.lon, m.radius = lat, lon, radius
	return m.stores
}

func (m *CatalogMock) SearchProducts(ctx context.Context, q upstream.ProductQuery) json.RawMessage {
	m.calls++
	m.query = q
	return m.products
}

func (m *CatalogMock) GetProductDetails(ctx context.Context, productID string) json.RawMessage {
	m.calls++
	m.productID = productID
	return m.details
}

func TestCategories_Passthrough(t *testing.T) {
	catalog := &CatalogMock{categories: json.RawMessage(`[{"id":1,"name":"Молочные продукты"}]`)}
	handler := NewCatalogHandler(catalog, &SessionServiceMock{}, 5*time.Second, testLogger())

	rec := httptest.NewRecorder()
	handler.Categories(rec, httptest.NewRequest(http.MethodGet, "/api/categories?store_id=31Z6", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"id":1,"name":"Молочные продукты"}]`, rec.Body.String())
	assert.Equal(t, "31Z6", catalog.storeID)
}

func TestStores(t *testing.T) {
	t.Run("explicit coordinates", func(t *testing.T) {
		catalog := &CatalogMock{stores: json.RawMessage(`[{"id":"a"}]`)}
		sessions := &SessionServiceMock{}
		handler := NewCatalogHandler(catalog, sessions, 5*time.Second, testLogger())

		rec := httptest.NewRecorder()
		handler.Stores(rec, httptest.NewRequest(http.MethodGet, "/api/stores?lat=55.75&lon=37.61&radius=1000&user_id=42", nil))

		assert.JSONEq(t, `[{"id":"a"}]`, rec.Body.String())
		assert.Equal(t, 55.75, catalog.lat)
		assert.Equal(t, 37.61, catalog.lon)
		assert.Equal(t, 1000, catalog.radius)
		assert.Empty(t, sessions.userID, "coordinates take precedence over the session")
	})

	t.Run("from session", func(t *testing.T) {
		catalog := &CatalogMock{}
		sessions := &SessionServiceMock{stores: json.RawMessage(`[{"id":"b"}]`)}
		handler := NewCatalogHandler(catalog, sessions, 5*time.Second, testLogger())

		rec := httptest.NewRecorder()
		handler.Stores(rec, httptest.NewRequest(http.MethodGet, "/api/stores?user_id=42&radius=abc", nil))

		assert.JSONEq(t, `[{"id":"b"}]`, rec.Body.String())
		assert.Equal(t, "42", sessions.userID)
		assert.Zero(t, catalog.calls)
	})

	t.Run("nothing to locate", func(t *testing.T) {
		catalog := &CatalogMock{}
		handler := NewCatalogHandler(catalog, &SessionServiceMock{}, 5*time.Second, testLogger())

		rec := httptest.NewRecorder()
		handler.Stores(rec, httptest.NewRequest(http.MethodGet, "/api/stores?lat=abc", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
		assert.Zero(t, catalog.calls)
	})
}

func TestProducts_QueryParsing(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		wantQ upstream.ProductQuery
	}{
		{
			name:  "defaults",
			url:   "/api/products",
			wantQ: upstream.ProductQuery{Page: 1, Limit: 20},
		},
		{
			name:  "all parameters",
			url:   "/api/products?query=%D0%BC%D0%BE%D0%BB%D0%BE%D0%BA%D0%BE&category_id=7&store_id=s1&page=3&limit=50",
			wantQ: upstream.ProductQuery{Query: "молоко", CategoryID: 7, StoreID: "s1", Page: 3, Limit: 50},
		},
		{
			name:  "malformed numbers fall back",
			url:   "/api/products?category_id=x&page=-1&limit=zero",
			wantQ: upstream.ProductQuery{Page: 1, Limit: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := &CatalogMock{products: json.RawMessage(`{"products":[],"total":0}`)}
			handler := NewCatalogHandler(catalog, &SessionServiceMock{}, 5*time.Second, testLogger())

			rec := httptest.NewRecorder()
			handler.Products(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"products":[],"total":0}`, rec.Body.String())
			assert.Equal(t, tt.wantQ, catalog.query)
		})
	}
}

func TestProductDetails(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		catalog := &CatalogMock{details: json.RawMessage(`{"id":"123","name":"Кефир"}`)}
		handler := NewCatalogHandler(catalog, &SessionServiceMock{}, 5*time.Second, testLogger())

		rec := httptest.NewRecorder()
		handler.ProductDetails(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/products/123", nil), "product_id", "123"))

		assert.JSONEq(t, `{"id":"123","name":"Кефир"}`, rec.Body.String())
		assert.Equal(t, "123", catalog.productID)
	})

	t.Run("upstream failure is null", func(t *testing.T) {
		catalog := &CatalogMock{}
		handler := NewCatalogHandler(catalog, &SessionServiceMock{}, 5*time.Second, testLogger())

		rec := httptest.NewRecorder()
		handler.ProductDetails(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/products/123", nil), "product_id", "123"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "null", rec.Body.String())
	})
}
