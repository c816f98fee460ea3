package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"graphboot/internal/ogm"
)

// SessionMetrics records request-scoped session lifetimes.
type SessionMetrics interface {
	SessionOpened()
	SessionClosed(lifetime time.Duration, err error)
}

// OpenSessionInView keeps one session open for the whole request. The session
// is bound to the request context, so the default transaction manager and
// handlers reuse it, and it is closed when the request ends, panics included.
//
// A request that already carries a session is passed through untouched.
func OpenSessionInView(sessions ogm.SessionOpener, logger *zap.Logger, metrics SessionMetrics) func(http.Handler) http.Handler {
	tracer := otel.Tracer("graphboot/osiv")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, bound := ogm.SessionFromContext(r.Context()); bound {
				next.ServeHTTP(w, r)
				return
			}

			ctx, span := tracer.Start(r.Context(), "neo4j.session",
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
				),
			)
			session := sessions.OpenSession(ctx, neo4j.AccessModeWrite)
			opened := time.Now()
			if metrics != nil {
				metrics.SessionOpened()
			}

			defer func() {
				// The request context may already be cancelled here.
				err := session.Close(context.WithoutCancel(ctx))
				if metrics != nil {
					metrics.SessionClosed(time.Since(opened), err)
				}
				if err != nil {
					logger.Error("Failed to close request session",
						zap.String("request_id", GetRequestID(ctx)),
						zap.Error(err),
					)
					span.RecordError(err)
					span.SetStatus(codes.Error, "session close failed")
				}
				span.End()
			}()

			next.ServeHTTP(w, r.WithContext(ogm.WithSession(ctx, session)))
		})
	}
}
