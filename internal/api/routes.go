package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/wgomg/aidetector/internal/utils"
)

const requestIDHeader = "X-Request-ID"

func RegisterRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /health", handler.HandleHealth)
	mux.HandleFunc("GET /health/model", handler.HandleModelHealth)
	mux.HandleFunc("POST /analyze", handler.HandleAnalyze)
	mux.HandleFunc("POST /report", handler.HandleReport)
}

// WithRequestID tags every request with an id, reusing the caller's
// X-Request-ID when present.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(utils.WithRequestID(r.Context(), id)))
	})
}
