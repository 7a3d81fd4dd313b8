package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application routes:
// health check, websocket gateway, test page and, when metrics is non-nil, /metrics.
func SetupRoutes(gateway http.Handler, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.Handle("/ws", gateway)
	mux.HandleFunc("/test", TestPageHandler)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}
