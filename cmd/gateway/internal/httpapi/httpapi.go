// Package httpapi is the Gateway's thin REST surface: a pass-through
// proxy to the upstream read API plus the /health endpoint.
package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// HealthChecker reports whether this Gateway instance's own broadcast
// feed is still running (main wires health.Tracker, which flips false
// when the pkg/broadcast subscription exits).
type HealthChecker interface {
	Healthy() bool
}

// passThroughPaths are proxied verbatim to the upstream REST API; the
// Gateway adds no logic of its own beyond routing.
var passThroughPaths = []string{
	"/api/bars/",
	"/api/quote/",
	"/api/profile/",
	"/api/news/",
	"/api/financials/",
	"/api/earnings/",
	"/api/dividends/",
}

// NewMux wires the proxy and /health handlers onto mux. baseURL may be
// empty, in which case pass-through routes respond 503.
func NewMux(baseURL string, health HealthChecker, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	var proxy http.Handler
	if baseURL != "" {
		target, err := url.Parse(baseURL)
		if err != nil {
			logger.Error("invalid rest api base url, pass-through routes disabled", zap.Error(err))
		} else {
			proxy = httputil.NewSingleHostReverseProxy(target)
		}
	}

	for _, path := range passThroughPaths {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if proxy == nil {
				http.Error(w, "rest api not configured", http.StatusServiceUnavailable)
				return
			}
			proxy.ServeHTTP(w, r)
		})
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if health != nil && !health.Healthy() {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	return mux
}
