package http

import (
	"net/http"
	"time"

	"bilancio/internal/log"
)

// withSecurityHeaders adds security headers, POST rate limiting and request
// logging around next.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		logger := log.FromContext(ctx)
		clientIP := extractClientIP(r)

		if reason := suspiciousReason(r); reason != "" {
			logger.WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				"reason", reason)
		}

		h := w.Header()
		setSecurityHeaders(h)
		h.Set("X-Request-ID", r.Header.Get("X-Request-ID"))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			logger.WithComponent(log.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
			h.Set("Retry-After", "60")
			writeError(rec, r, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", "")
		} else {
			next.ServeHTTP(rec, r)
		}

		log.LogHTTPEnd(ctx, r, rec.status, time.Since(start).Milliseconds(), clientIP)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
