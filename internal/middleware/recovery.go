package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"graphboot/internal/api"
)

// Recovery converts panics into 500 responses and logs them with the stack.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				requestID := GetRequestIDFromRequest(r)
				logger.Error("Panic while serving request",
					zap.String("request_id", requestID),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", err),
					zap.ByteString("stack", debug.Stack()),
				)

				// Nothing sensible can be sent once the body has started.
				if w.Header().Get("Content-Type") == "" {
					api.ErrorWithRequestID(w, http.StatusInternalServerError, "Internal server error", requestID)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
