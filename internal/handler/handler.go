// Package handler exposes the read-only HTTP API. Handlers only ever
// serve the current in-memory snapshots; nothing here triggers a fetch.
package handler

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func notReady(w http.ResponseWriter) {
	http.Error(w, `{"error":"data not available yet"}`, http.StatusServiceUnavailable)
}
