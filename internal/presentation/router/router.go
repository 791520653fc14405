package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bimakw/wallet-api/internal/config"
	"github.com/bimakw/wallet-api/internal/presentation/handlers"
	"github.com/bimakw/wallet-api/internal/presentation/middleware"
)

// Options holds everything the HTTP router is assembled from
type Options struct {
	Logger  *zap.Logger
	API     config.APIConfig
	CORS    config.CORSConfig
	Health  *handlers.HealthHandler
	Wallet  *handlers.WalletHandler
	Metrics http.Handler
}

// New builds the HTTP handler serving the wallet API and operational endpoints
func New(opts Options) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(opts.CORS))

	// Health endpoints (no rate limiting)
	r.Get("/health", opts.Health.Health)
	r.Get("/ready", opts.Health.Ready)
	r.Get("/live", opts.Health.Live)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimiter(opts.API.RateLimitRPS))
		opts.Wallet.RegisterRoutes(r)
	})

	return r
}
