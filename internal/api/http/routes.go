package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/qr-service/internal/models"
	"github.com/vadimbarashkov/qr-service/internal/validation"
	"github.com/vadimbarashkov/qr-service/pkg/middleware/recoverer"
)

type QRService interface {
	Generate(ctx context.Context, url string) (*models.QRCode, error)
	Delete(ctx context.Context, url string) (*models.QRCode, error)
}

type routerOptions struct {
	allowedOrigins []string
}

type RouterOption func(*routerOptions)

// WithAllowedOrigins sets the CORS allowed origins. Defaults to "*".
func WithAllowedOrigins(origins ...string) RouterOption {
	return func(o *routerOptions) {
		if len(origins) > 0 {
			o.allowedOrigins = origins
		}
	}
}

func NewRouter(logger *httplog.Logger, qrSvc QRService, opts ...RouterOption) http.Handler {
	options := routerOptions{
		allowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(&options)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   options.allowedOrigins,
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger))

	validate := validation.New()

	r.Get("/ping", handlePing)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api-docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api-docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/api-docs/*", httpSwagger.Handler(
		httpSwagger.URL("/api-docs.yml"),
	))
	r.Get("/api-docs.yml", handleAPIDocs)

	r.With(requireJSON).
		Post("/generate-qr", handleGenerateQR(qrSvc, validate))
	r.Delete("/delete-qr", handleDeleteQR(qrSvc))

	return r
}
