package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/bimakw/wallet-api/internal/config"
)

// CORS returns a middleware applying the configured cross-origin policy
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           300,
	})
}
