package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// MetricsProvider is the slice of the metrics package the router needs.
type MetricsProvider interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

type RouterDeps struct {
	Cart    *CartHandler
	Session *SessionHandler
	Catalog *CatalogHandler
	Health  *HealthHandler
	Index   http.Handler
	Metrics MetricsProvider
	Log     logrus.FieldLogger
}

func NewRouter(d RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(CORSMiddleware)
	r.Use(middleware.Compress(5))

	if d.Index != nil {
		r.Method(http.MethodGet, "/", d.Index)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(InBandRecoverer(d.Log))

		r.Post("/set-address", d.Session.SetAddress)
		r.Get("/session/{user_id}", d.Session.GetSession)

		r.Get("/categories", d.Catalog.Categories)
		r.Get("/stores", d.Catalog.Stores)
		r.Get("/products", d.Catalog.Products)
		r.Get("/products/{product_id}", d.Catalog.ProductDetails)

		r.Route("/cart", func(r chi.Router) {
			r.Post("/add", d.Cart.AddItem)
			r.Get("/{user_id}", d.Cart.GetCart)
			r.Delete("/{user_id}", d.Cart.ClearCart)
		})

		r.Get("/health", d.Health.Health)
	})

	return r
}
