// Package request assigns each inbound request a correlation ID. The ID
// is echoed in the X-Request-ID response header and carried through the
// context for logs and audit records.
package request

import (
	"net/http"

	"github.com/google/uuid"

	"salegate/pkg/requestcontext"
)

const headerRequestID = "X-Request-ID"

// Middleware honors a caller-supplied X-Request-ID and generates one
// otherwise.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(headerRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
