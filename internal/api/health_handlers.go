package api

import (
	"net/http"
	"time"
)

const (
	ServiceName    = "hikconnect-api"
	ServiceVersion = "2.0.0"
)

type HealthHandler struct {
	Now func() time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{Now: time.Now}
}

// GET /api/hikconnect/health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   ServiceName,
		"timestamp": h.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		"version":   ServiceVersion,
	})
}
