// Package api exposes the catalog over HTTP.
package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/erazemk/darila/internal/auth"
	"github.com/erazemk/darila/internal/catalog"
	"github.com/erazemk/darila/internal/imaging"
	"github.com/erazemk/darila/internal/importer"
	"github.com/erazemk/darila/internal/metrics"
	"github.com/erazemk/darila/internal/model"
)

// Options holds the dependencies of the router.
type Options struct {
	DB        *sql.DB
	JWTSecret string
	Owner     string

	Catalog  *catalog.Service
	Importer *importer.Importer
	Uploads  imaging.Uploads
	Metrics  *metrics.Metrics
	Limiter  *auth.LoginLimiter
	Logger   *zap.Logger

	// MaxUploadBytes bounds uploaded images and import payloads.
	MaxUploadBytes int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: opts.DB, JWTSecret: opts.JWTSecret, Limiter: opts.Limiter, Logger: opts.Logger}
	itemsHandler := &ItemsHandler{
		Catalog:        opts.Catalog,
		Importer:       opts.Importer,
		Logger:         opts.Logger,
		MaxUploadBytes: opts.MaxUploadBytes,
	}
	categoriesHandler := &CategoriesHandler{DB: opts.DB, Catalog: opts.Catalog, Logger: opts.Logger}
	bookingsHandler := &BookingsHandler{DB: opts.DB, Catalog: opts.Catalog, Logger: opts.Logger}

	authMW := AuthMiddleware(opts.JWTSecret, opts.DB)
	admin := func(h http.HandlerFunc) http.Handler {
		return authMW(RequireRole(model.RoleAdmin)(h))
	}

	// Auth.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("GET /api/auth/verify", authMW(http.HandlerFunc(authHandler.Verify)))
	mux.Handle("POST /api/auth/logout", admin(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", admin(authHandler.ChangePassword))

	// Items: read public, write admin.
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/carousels", itemsHandler.Carousels)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.Handle("POST /api/items", admin(itemsHandler.Create))
	mux.Handle("POST /api/items/bulk", admin(itemsHandler.Bulk))
	mux.Handle("PUT /api/items/{id}", admin(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", admin(itemsHandler.Delete))
	mux.Handle("POST /api/items/{id}/renew", admin(itemsHandler.Renew))
	mux.Handle("PUT /api/items/{id}/image", admin(itemsHandler.UploadImage))

	// Categories: read public, write admin.
	mux.HandleFunc("GET /api/categories", categoriesHandler.List)
	mux.HandleFunc("GET /api/categories/{id}", categoriesHandler.Get)
	mux.Handle("POST /api/categories", admin(categoriesHandler.Create))
	mux.Handle("PUT /api/categories/{id}", admin(categoriesHandler.Update))
	mux.Handle("DELETE /api/categories/{id}", admin(categoriesHandler.Delete))

	// Bookings: guests toggle interest, the admin resets it.
	mux.HandleFunc("POST /api/bookings", bookingsHandler.Toggle)
	mux.HandleFunc("GET /api/bookings", bookingsHandler.List)
	mux.HandleFunc("GET /api/bookings/item/{id}", bookingsHandler.ListByItem)
	mux.HandleFunc("GET /api/bookings/user/{user}", bookingsHandler.ListByUser)
	mux.HandleFunc("DELETE /api/bookings/{itemId}/{user}", bookingsHandler.Delete)
	mux.Handle("DELETE /api/bookings", admin(bookingsHandler.Reset))

	mux.HandleFunc("GET /api/config", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"owner": opts.Owner})
	})
	mux.Handle("GET /metrics", opts.Metrics.Handler())
	mux.Handle("GET "+imaging.URLPrefix, http.StripPrefix(imaging.URLPrefix, http.FileServer(http.Dir(opts.Uploads.Dir))))

	var handler http.Handler = mux
	handler = middleware.Recoverer(handler)
	handler = LoggingMiddleware(opts.Logger)(handler)
	handler = middleware.RequestID(handler)
	return handler
}
