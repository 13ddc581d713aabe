package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

// LoggingMiddleware returns a middleware that logs HTTP requests. The logger
// of ctx, tagged with the request ID, is also put into the request context.
func LoggingMiddleware(ctx context.Context) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			logger := ctxlog.From(ctx).With("request_id", reqID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}()

			next.ServeHTTP(ww, r.WithContext(ctxlog.With(r.Context(), logger)))
		})
	}
}

// errorResponse resolves the status and client message of err. Upstream
// statuses are forwarded; otherwise the innermost tagged error decides.
func errorResponse(err error) (int, string) {
	var upErr *types.UpstreamError
	if errors.As(err, &upErr) {
		status := upErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return status, upErr.Error()
	}

	status, msg := http.StatusInternalServerError, "Internal server error"
	for e := err; e != nil; e = errors.Unwrap(e) {
		goErr, ok := e.(*goerr.Error)
		if !ok {
			continue
		}
		if tagged := types.HTTPStatus(goErr); tagged != 0 {
			status, msg = tagged, ownMessage(goErr)
		}
	}
	return status, msg
}

// ownMessage returns the message of e without the text of its cause
func ownMessage(e *goerr.Error) string {
	msg := e.Error()
	if cause := errors.Unwrap(e); cause != nil {
		causeMsg := cause.Error()
		if trimmed := strings.TrimSuffix(msg, ": "+causeMsg); trimmed != msg {
			return trimmed
		}
		msg = strings.TrimSuffix(msg, ": "+strings.ReplaceAll(causeMsg, "\n", ""))
	}
	return msg
}

// writeError writes an error response as {"error": message}. Server errors
// are logged and reported to Sentry.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorResponse(err)
	logger := ctxlog.From(r.Context())

	if status >= 500 {
		logger.Error("Request failed", "status", status, "error", err)
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.CaptureException(err)
	} else {
		logger.Warn("Request rejected", "status", status, "error", err.Error())
	}

	writeJSON(w, r, status, map[string]string{
		"error": msg,
	})
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode response", "error", err)
	}
}
