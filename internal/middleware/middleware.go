// Package middleware holds the http.Handler wrappers shared by the gateway
// routes.
package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

var multipartOverhead = int64(8 * 1024) // rough padding for boundaries and text fields

// ForceHTTPS redirects requests a TLS-terminating proxy marked as plain
// http (X-Forwarded-Proto: http) to the https URL of the same resource.
func ForceHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "http" {
			http.Redirect(w, r, "https://"+r.Host+r.URL.RequestURI(), http.StatusPermanentRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SizeLimit caps the request body at maxBodyBytes plus multipart overhead.
// Reads past the cap fail with *http.MaxBytesError.
func SizeLimit(maxBodyBytes int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes+multipartOverhead)
			next.ServeHTTP(w, r)
		})
	}
}

// Recover turns a panic into a JSON 500 response.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Printf("Error processing request %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS allows a single front-end origin, with credentials, to call the API
// and fetch generated artifacts. Other origins get no CORS headers.
func CORS(allowOrigin string) func(http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins([]string{allowOrigin}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Accept", "Content-Type"}),
		handlers.AllowCredentials(),
	)
}
