// Package middleware provides the HTTP middleware chain and the shared
// JSON response writers, including the domain-error-to-status mapping.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvoloshyn/pocket-money/internal/auth"
	"github.com/dvoloshyn/pocket-money/internal/domain"
	"github.com/dvoloshyn/pocket-money/internal/ledger/store"
	"github.com/dvoloshyn/pocket-money/internal/logger"
)

// AccessTokenCookie is the cookie carrying the access token.
const AccessTokenCookie = "access_token"

// Logger logs each request and embeds a request-scoped logger in the
// context.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := log.With().Str("request_id", RequestIDFrom(r.Context())).Logger()
			r = r.WithContext(logger.WithContext(r.Context(), reqLog))

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			reqLog.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

// CORS adds Cross-Origin Resource Sharing headers.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("error", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("Panic recovered")

					WriteError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequestID attaches a unique request ID to the context and response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the request ID embedded by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// TokenVerifier checks a session token and returns the identity it names.
// Implemented by auth.TokenIssuer.
type TokenVerifier interface {
	Verify(tokenString, wantType string) (uuid.UUID, error)
}

// Auth authenticates the request from the access-token cookie or an
// Authorization bearer header, loads the identity, and attaches it to the
// request context. Requests without a valid token get 401.
func Auth(tokens TokenVerifier, st store.Store, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				WriteDomainError(w, log, domain.ErrNotAuthenticated)
				return
			}

			identityID, err := tokens.Verify(tokenString, auth.TokenTypeAccess)
			if err != nil {
				WriteDomainError(w, log, domain.ErrNotAuthenticated)
				return
			}

			var identity *domain.Identity
			err = st.Atomic(r.Context(), func(tx store.Tx) error {
				identity, err = tx.IdentityByID(identityID)
				return err
			})
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					WriteDomainError(w, log, domain.ErrNotAuthenticated)
					return
				}
				log.Error().Err(err).Msg("Failed to load identity")
				WriteError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Context key for request ID.
type contextKey string

const requestIDKey contextKey = "requestID"

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteDomainError maps a domain error to its HTTP status and writes the
// `{error, code}` body. Errors without a domain code are logged and become
// an opaque 500.
func WriteDomainError(w http.ResponseWriter, log zerolog.Logger, err error) {
	code := domain.CodeOf(err)
	if code == "" {
		log.Error().Err(err).Msg("Unhandled error")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := statusOf(code)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", string(code)).Msg("Operation failed")
	}

	var de *domain.Error
	message := "request failed"
	if errors.As(err, &de) {
		message = de.Message
	}
	WriteJSON(w, status, map[string]string{
		"error": message,
		"code":  string(code),
	})
}

// statusOf maps domain error codes to HTTP status classes. Unknown codes
// default to 400: every non-listed domain error is a client-side
// validation failure.
func statusOf(code domain.ErrorCode) int {
	switch code {
	case domain.CodeNotAuthenticated, domain.CodeInvalidSecret, domain.CodeInvalidCredentials:
		return http.StatusUnauthorized
	case domain.CodeAccountMissing, domain.CodeReceiverNotFound, domain.CodeGoalNotFound:
		return http.StatusNotFound
	case domain.CodeDuplicateOperation, domain.CodeConcurrentModification,
		domain.CodeGoalBroken, domain.CodeTooManyActiveGoals:
		return http.StatusConflict
	case domain.CodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	case domain.CodeReconciliationRequired:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
