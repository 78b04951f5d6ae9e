// Package upstream talks to the retailer's public JSON API.
//
// Every call is a single attempt. Failures never reach the caller as errors:
// they are logged and turned into a neutral payload (nil, an empty list or an
// empty product page) so handlers can always answer in-band.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL   = "https://5ka.ru/api"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	DefaultStoreRadius = 5000
	DefaultPage        = 1
	DefaultLimit       = 20

	geocodeLimit = 10
	maxBodyBytes = 10 << 20
)

var (
	emptyList     = json.RawMessage(`[]`)
	emptyProducts = json.RawMessage(`{"products":[],"total":0}`)
)

// Observer receives one observation per upstream call.
type Observer interface {
	ObserveUpstream(operation, outcome string, elapsed time.Duration)
}

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// Transport overrides the base round tripper; tests leave it nil.
	Transport http.RoundTripper
}

type Client struct {
	cfg      Config
	log      logrus.FieldLogger
	observer Observer

	once       sync.Once
	httpClient *http.Client
	sfg        singleflight.Group
}

func NewClient(cfg Config, log logrus.FieldLogger, observer Observer) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Client{
		cfg:      cfg,
		log:      log.WithField("component", "upstream"),
		observer: observer,
	}
}

// client builds the shared HTTP client on first use; it is reused for the
// life of the process so connections are pooled by the transport.
func (c *Client) client() *http.Client {
	c.once.Do(func() {
		base := c.cfg.Transport
		if base == nil {
			base = http.DefaultTransport.(*http.Transport).Clone()
		}
		c.httpClient = &http.Client{
			Timeout:   c.cfg.Timeout,
			Transport: otelhttp.NewTransport(base),
		}
	})
	return c.httpClient
}

// SearchAddress geocodes a free-text address. It returns nil when the lookup fails.
func (c *Client) SearchAddress(ctx context.Context, address string) json.RawMessage {
	query := url.Values{}
	query.Set("address", address)
	query.Set("limit", strconv.Itoa(geocodeLimit))

	body, ok := c.get(ctx, "geocode", "/geocode", query)
	if !ok {
		return nil
	}
	return body
}

// GetStoresByLocation lists stores around a point. radius <= 0 means DefaultStoreRadius.
func (c *Client) GetStoresByLocation(ctx context.Context, lat, lon float64, radius int) json.RawMessage {
	if radius <= 0 {
		radius = DefaultStoreRadius
	}
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("radius", strconv.Itoa(radius))

	body, ok := c.get(ctx, "stores", "/stores", query)
	if !ok {
		return emptyList
	}
	return body
}

// GetCategories lists catalog categories, optionally for one store. Identical
// concurrent calls share one upstream request. The shared request does not
// inherit any one caller's cancellation; each caller stops waiting on its own ctx.
func (c *Client) GetCategories(ctx context.Context, storeID string) json.RawMessage {
	shared := context.WithoutCancel(ctx)
	ch := c.sfg.DoChan("categories:"+storeID, func() (interface{}, error) {
		query := url.Values{}
		if storeID != "" {
			query.Set("store_id", storeID)
		}
		body, ok := c.get(shared, "categories", "/categories", query)
		if !ok {
			return emptyList, nil
		}
		return body, nil
	})

	select {
	case res := <-ch:
		return res.Val.(json.RawMessage)
	case <-ctx.Done():
		return emptyList
	}
}

type ProductQuery struct {
	Query      string
	CategoryID int
	StoreID    string
	Page       int
	Limit      int
}

// SearchProducts returns the upstream product page verbatim, or an empty page on failure.
func (c *Client) SearchProducts(ctx context.Context, q ProductQuery) json.RawMessage {
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("limit", strconv.Itoa(q.Limit))
	if q.Query != "" {
		query.Set("q", q.Query)
	}
	if q.CategoryID != 0 {
		query.Set("category_id", strconv.Itoa(q.CategoryID))
	}
	if q.StoreID != "" {
		query.Set("store_id", q.StoreID)
	}

	body, ok := c.get(ctx, "products", "/products", query)
	if !ok {
		return emptyProducts
	}
	return body
}

// GetProductDetails returns nil when the product can't be fetched.
func (c *Client) GetProductDetails(ctx context.Context, productID string) json.RawMessage {
	body, ok := c.get(ctx, "product_details", "/products/"+url.PathEscape(productID), nil)
	if !ok {
		return nil
	}
	return body
}

func (c *Client) get(ctx context.Context, operation, path string, query url.Values) (json.RawMessage, bool) {
	start := time.Now()
	log := c.log.WithField("operation", operation)

	body, err := c.fetch(ctx, path, query)
	elapsed := time.Since(start)
	if err != nil {
		log.WithError(err).WithField("elapsed", elapsed).Warn("upstream call failed")
		c.observe(operation, "error", elapsed)
		return nil, false
	}

	log.WithField("elapsed", elapsed).Debug("upstream call succeeded")
	c.observe(operation, "ok", elapsed)
	return body, true
}

func (c *Client) fetch(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en;q=0.8")

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func (c *Client) observe(operation, outcome string, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(operation, outcome, elapsed)
	}
}
