package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/miniapp/internal/upstream"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type Catalog interface {
	GetCategories(ctx context.Context, storeID string) json.RawMessage
	GetStoresByLocation(ctx context.Context, lat, lon float64, radius int) json.RawMessage
	SearchProducts(ctx context.Context, q upstream.ProductQuery) json.RawMessage
	GetProductDetails(ctx context.Context, productID string) json.RawMessage
}

type StoreFinder interface {
	NearbyStores(ctx context.Context, userID string, radius int) json.RawMessage
}

type CatalogHandler struct {
	catalog Catalog
	stores  StoreFinder
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewCatalogHandler(catalog Catalog, stores StoreFinder, timeout time.Duration, log logrus.FieldLogger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		stores:  stores,
		timeout: timeout,
		log:     log,
	}
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	storeID := strings.TrimSpace(r.URL.Query().Get("store_id"))
	respondRaw(requestLog(h.log, r), w, h.catalog.GetCategories(ctx, storeID))
}

// Stores answers for explicit lat/lon when both parse, otherwise for the
// address saved in the user's session.
func (h *CatalogHandler) Stores(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	radius := intParam(q.Get("radius"), upstream.DefaultStoreRadius)

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr == nil && lonErr == nil {
		respondRaw(requestLog(h.log, r), w, h.catalog.GetStoresByLocation(ctx, lat, lon, radius))
		return
	}

	if userID := strings.TrimSpace(q.Get("user_id")); userID != "" {
		respondRaw(requestLog(h.log, r), w, h.stores.NearbyStores(ctx, userID, radius))
		return
	}
	respondRaw(requestLog(h.log, r), w, json.RawMessage(`[]`))
}

func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	respondRaw(requestLog(h.log, r), w, h.catalog.SearchProducts(ctx, upstream.ProductQuery{
		Query:      strings.TrimSpace(q.Get("query")),
		CategoryID: intParam(q.Get("category_id"), 0),
		StoreID:    strings.TrimSpace(q.Get("store_id")),
		Page:       intParam(q.Get("page"), upstream.DefaultPage),
		Limit:      intParam(q.Get("limit"), upstream.DefaultLimit),
	}))
}

func (h *CatalogHandler) ProductDetails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondRaw(requestLog(h.log, r), w, h.catalog.GetProductDetails(ctx, chi.URLParam(r, "product_id")))
}

// intParam parses a positive integer query value, falling back to def.
func intParam(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
