package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"livetrack-map/internal/mapview"
)

const maxEventBytes = 1 << 20

func registerRoutes(mux *http.ServeMux, h *wsHub, staticDir string, log logrus.FieldLogger) {
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/live", h.handleWebSocket)
	mux.HandleFunc("POST /api/events/{name}", h.handleEvent)
	mux.HandleFunc("GET /api/markers.geojson", h.handleGeoJSON)

	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("/", withLogging(fs, log))
}

// handleEvent accepts a push event from an upstream producer.
func (h *wsHub) handleEvent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.publish(name, body); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, mapview.ErrUnknownEvent) {
			status = http.StatusNotFound
		}
		h.log.WithError(err).WithField("event", name).Warn("event rejected")
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *wsHub) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	fc := mapview.FeatureCollection(h.markers())
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		h.log.WithError(err).Warn("encode geojson")
	}
}

func withLogging(h http.Handler, log logrus.FieldLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Info("request")
		h.ServeHTTP(w, r)
	})
}
