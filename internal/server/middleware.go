package server

import (
	"log"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"precisionworks/internal/config"
)

// SecurityHeaders adds security headers to responses
func SecurityHeaders(cfg config.AppConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

			// HSTS only when served over TLS outside debug
			if !cfg.Debug && r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORS checks the request origin against the allowed list and answers
// preflight requests. A wildcard entry or debug mode allows every origin, but
// credentials are only allowed for origins that are listed by name.
func CORS(cors config.CORSConfig, debug bool) func(http.Handler) http.Handler {
	anyOrigin := debug || len(cors.AllowedOrigins) == 0 || slices.Contains(cors.AllowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			listed := origin != "" && origin != "*" && slices.Contains(cors.AllowedOrigins, origin)
			if origin != "" && !anyOrigin && !listed {
				log.Printf("[REQUEST] rejected origin %s for %s %s", origin, r.Method, r.URL.Path)
				w.WriteHeader(http.StatusForbidden)
				return
			}

			h := w.Header()
			switch {
			case listed:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Credentials", "true")
			case anyOrigin:
				h.Set("Access-Control-Allow-Origin", "*")
			}
			h.Set("Access-Control-Allow-Methods", strings.Join(cors.AllowedMethods, ", "))
			h.Set("Access-Control-Allow-Headers", strings.Join(cors.AllowedHeaders, ", "))
			h.Set("Access-Control-Expose-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Max-Age", strconv.Itoa(cors.MaxAge))

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// RequestLogging logs each request and its outcome. Health probes are not
// logged.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		log.Printf("[REQUEST] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(wrapped, r)

		outcome := "OK"
		if wrapped.status >= http.StatusBadRequest {
			outcome = "ERROR"
		}
		log.Printf("[RESPONSE] %s %s -> %d %s (%v)", r.Method, r.URL.Path, wrapped.status, outcome, time.Since(start))
	})
}
