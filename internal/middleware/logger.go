// Package middleware provides reusable HTTP middleware for the API server.
package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// wrappedWriter captures the status code written by downstream handlers.
type wrappedWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *wrappedWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logger logs method, path, status code, duration and request id for every request.
func Logger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			entry := log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.statusCode,
				"duration": time.Since(start),
			})
			if id := chiMiddleware.GetReqID(r.Context()); id != "" {
				entry = entry.WithField("request_id", id)
			}

			switch {
			case ww.statusCode >= http.StatusInternalServerError:
				entry.Error("request")
			case ww.statusCode >= http.StatusBadRequest:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
		})
	}
}
