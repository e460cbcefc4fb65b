package api

import "net/http"

func SetupRoutes(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("/", handler.Index)
	mux.HandleFunc("/project", handler.ControlPage)

	// Segment directory written by the capture process
	mux.HandleFunc("/hls/", handler.ServeSegment)

	// Control API
	mux.HandleFunc("/api/status", handler.Status)
	mux.HandleFunc("/api/sources", handler.Sources)
	mux.HandleFunc("/api/start", handler.Start)
	mux.HandleFunc("/api/stop", handler.Stop)
	mux.HandleFunc("/api/health", handler.HealthCheck)
	mux.HandleFunc("/api/events", handler.Events)

	// Apply middleware
	h := LoggingMiddleware(mux)
	h = RecoveryMiddleware(h)
	h = CORSMiddleware(h)

	return h
}
