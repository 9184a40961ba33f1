package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"aihealth.app/health-assistant/internal/auth"
)

// BearerAuthMiddleware guards the ETL routes with the shared ETL secret.
func (h *APIHandler) BearerAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := auth.CheckBearer(r.Header.Get("Authorization"), h.etlBearer)
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, auth.ErrMissingSecret):
			h.logger.Error("ETL route called but ETL_BEARER is not set", zap.String("path", r.URL.Path))
			writeError(w, http.StatusInternalServerError, "Server missing ETL_BEARER")
		default:
			writeError(w, http.StatusUnauthorized, "Unauthorized")
		}
	})
}

// CORS allows the dashboard origin and exposes the paging header.
func CORS(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hdr := w.Header()
			hdr.Set("Access-Control-Allow-Origin", origin)
			hdr.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			hdr.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			hdr.Set("Access-Control-Expose-Headers", "X-Next-Page")
			if origin != "*" {
				hdr.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
