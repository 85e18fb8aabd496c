package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zenetia/zap/pkg/types"
	"github.com/zenetia/zap/pkg/validator"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so Chain(h, a, b) becomes a(b(h)).
func Chain(h http.Handler, m ...Middleware) http.Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// WithRequestID tags every request with an ID and a start time.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)

		ctx := context.WithValue(r.Context(), RequestIDContextKey, id)
		ctx = context.WithValue(ctx, StartTimeContextKey, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithBodyLimit caps the request body size.
func WithBodyLimit(limitBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limitBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// WithLogging logs request completion with timing.
func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		id, _ := r.Context().Value(RequestIDContextKey).(string)
		slog.Info("Request completed",
			slog.String("requestId", id),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// AuthGate is the boundary every protected endpoint sits behind: it turns
// a raw Authorization header into a Principal or a typed failure.
type AuthGate struct {
	validator validator.TokenValidatorInterface
}

func NewAuthGate(v validator.TokenValidatorInterface) *AuthGate {
	return &AuthGate{validator: v}
}

// Authenticate extracts the bearer credential and runs the full
// verification pass.
func (g *AuthGate) Authenticate(ctx context.Context, authorization string) (*types.Principal, error) {
	if authorization == "" {
		return nil, types.NewAuthError(types.AuthMalformedHeader, "authorization header missing")
	}

	parts := strings.Fields(authorization)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, types.NewAuthError(types.AuthMalformedHeader, "authorization header must be of the form: Bearer <token>")
	}

	claims, err := g.validator.Validate(ctx, parts[1])
	if err != nil {
		return nil, err
	}

	return types.NewPrincipal(claims), nil
}

// Middleware authenticates the request and stores the Principal in the
// request context for handlers to read.
func (g *AuthGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, r, err, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext returns the authenticated principal stored by the
// auth middleware.
func PrincipalFromContext(ctx context.Context) (*types.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*types.Principal)
	return p, ok
}
