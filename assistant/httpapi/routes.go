package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

type Config struct {
	Addr           string        `default:":8080"`
	AllowedOrigins []string      `split_words:"true" default:"*"`
	ReadTimeout    time.Duration `split_words:"true" default:"10s"`
	WriteTimeout   time.Duration `split_words:"true" default:"90s"`
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/healthz", h.Health)
	r.Route("/v1/tenants/{tenantID}/users/{userID}", func(r chi.Router) {
		r.Post("/turns", h.SubmitTurn)
		r.Get("/transcript", h.ListTranscript)
	})
}

// NewRouter wires request logging, CORS and the API routes.
func NewRouter(logger zerolog.Logger, cfg Config, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
	}))

	RegisterRoutes(r, h)
	return r
}

func NewServer(cfg Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
