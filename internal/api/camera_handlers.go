package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jerichox/jerichox-security/internal/cameras"
)

// POST /api/hikconnect/cameras/add
func (h *HikConnectHandler) AddCamera(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceSerial string `json:"deviceSerial"`
		AccountID    string `json:"accountId"`
		ChannelNo    int    `json:"channelNo"`
		Name         string `json:"name"`
		Location     string `json:"location"`
		IsSelected   *bool  `json:"isSelected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cam, err := h.Cameras.Promote(r.Context(), cameras.PromoteInput{
		DeviceSerial: req.DeviceSerial,
		AccountID:    req.AccountID,
		ChannelNo:    req.ChannelNo,
		Name:         req.Name,
		Location:     req.Location,
		IsSelected:   req.IsSelected,
		UserID:       actorID(r),
	})
	switch {
	case err == nil:
	case errors.Is(err, cameras.ErrValidation):
		respondError(w, http.StatusBadRequest, publicMessage(err, cameras.ErrValidation))
		return
	case errors.Is(err, cameras.ErrNotFound):
		respondError(w, http.StatusNotFound, "Device not found")
		return
	case errors.Is(err, cameras.ErrConflict):
		respondError(w, http.StatusBadRequest, "Camera already exists for this device and channel")
		return
	default:
		h.logger.Error("add camera failed", "device_serial", req.DeviceSerial, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to add camera")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Camera added successfully",
		"camera":  cam,
	})
}

// GET /api/hikconnect/cameras/display?userId=
func (h *HikConnectHandler) ListDisplayCameras(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = actorID(r)
	}
	if userID == "" {
		respondError(w, http.StatusBadRequest, "userId is required")
		return
	}

	list, err := h.Cameras.ListDisplay(r.Context(), userID)
	if err != nil {
		h.logger.Error("list display cameras failed", "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch cameras")
		return
	}
	if list == nil {
		list = []cameras.DisplayCamera{}
	}
	respondJSON(w, http.StatusOK, list)
}
