// Package api exposes the itinerary service over HTTP: submit a
// planning job, poll it by id.
package api

import (
	"log/slog"
	"net/http"
	"time"
)

// NewServer creates and configures the HTTP server.
func NewServer(addr string, itineraries *ItineraryHandler) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)

	mux.HandleFunc("POST /api/itineraries", itineraries.HandleSubmit)
	mux.HandleFunc("GET /api/itineraries/{id}", itineraries.HandleGet)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}
