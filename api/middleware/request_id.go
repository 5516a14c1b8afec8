package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/handova/handova-backend/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"

	// maxRequestIDLen bounds caller-supplied ids so logs stay sane.
	maxRequestIDLen = 64
)

// RequestID propagates the caller's request id, minting one when absent,
// and threads it through the context logger and the response header.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
