package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Helpers
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondErrorDetails(w http.ResponseWriter, status int, message string, err error) {
	respondJSON(w, status, map[string]string{"error": message, "details": err.Error()})
}

// publicMessage strips the sentinel prefix off a wrapped validation error.
func publicMessage(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
