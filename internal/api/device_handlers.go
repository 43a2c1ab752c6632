package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jerichox/jerichox-security/internal/data"
	"github.com/jerichox/jerichox-security/internal/devices"
)

// GET /api/hikconnect/devices/account/{accountId}
func (h *HikConnectHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")

	list, err := h.Devices.ListByAccount(r.Context(), accountID)
	if err != nil {
		h.logger.Error("list devices failed", "account_id", accountID, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch devices")
		return
	}
	if list == nil {
		list = []*data.Device{}
	}
	respondJSON(w, http.StatusOK, list)
}

// POST /api/hikconnect/devices/sync/{accountId}
func (h *HikConnectHandler) SyncDevices(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountId")

	res, err := h.Devices.Sync(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, devices.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Account not found or inactive")
			return
		}
		respondErrorDetails(w, http.StatusInternalServerError, "Failed to sync devices", err)
		return
	}

	synced := res.Devices
	if synced == nil {
		synced = []devices.SyncedDevice{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":  fmt.Sprintf("Synced %d devices from HikConnect API", len(synced)),
		"devices":  synced,
		"total":    res.Total,
		"fallback": res.Fallback,
	})
}
