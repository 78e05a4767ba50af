package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemovida/donation-scheduling/internal/observability/metrics"
	"github.com/hemovida/donation-scheduling/internal/scheduling"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
)

// Identity headers set by the upstream auth layer. The core trusts them
// verbatim; credential checks happen before traffic reaches this service.
const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
	headerBranchID  = "X-Branch-ID"
)

// RequestIDMiddleware adds a unique request ID to each request context
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware logs each request and feeds the latency histogram.
func LoggingMiddleware(log zerolog.Logger, m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			m.ObserveRequest(r.Method, r.URL.Path, strconv.Itoa(wrapped.statusCode), duration.Seconds())

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", duration).
				Str("request_id", GetRequestID(r.Context())).
				Msg("request")
		})
	}
}

// ActorMiddleware reads the identity headers into a scheduling.Actor.
// Requests without a usable identity are rejected before any handler runs.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID, err := uuid.Parse(r.Header.Get(headerActorID))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing_identity", "X-Actor-ID header must be a valid UUID")
			return
		}

		role := scheduling.Role(r.Header.Get(headerActorRole))
		actor := scheduling.Actor{ID: actorID, Role: role}

		switch role {
		case scheduling.RoleDonor:
		case scheduling.RoleCollaborator:
			branchID, err := uuid.Parse(r.Header.Get(headerBranchID))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "missing_identity", "X-Branch-ID header required for branch collaborators")
				return
			}
			actor.BranchID = branchID
		default:
			writeError(w, http.StatusUnauthorized, "missing_identity", "X-Actor-Role must be donor or branch_collaborator")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ActorFromContext retrieves the authenticated actor set by ActorMiddleware.
func ActorFromContext(ctx context.Context) (scheduling.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(scheduling.Actor)
	return actor, ok
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
