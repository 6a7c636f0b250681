package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const idempotencyKeyContextKey contextKey = "idempotencyKey"

// RequireIdempotencyKey rejects requests without an Idempotency-Key header and
// places the key in the request context for the handler.
func RequireIdempotencyKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if key == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "Idempotency-Key header is required"})
			return
		}

		ctx := context.WithValue(r.Context(), idempotencyKeyContextKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdempotencyKeyFromContext returns the key set by RequireIdempotencyKey, or
// an empty string when the middleware did not run.
func IdempotencyKeyFromContext(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKeyContextKey).(string)
	return key
}
