package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jerichox/jerichox-security/internal/accounts"
	"github.com/jerichox/jerichox-security/internal/cameras"
	"github.com/jerichox/jerichox-security/internal/data"
	"github.com/jerichox/jerichox-security/internal/devices"
	"github.com/jerichox/jerichox-security/internal/middleware"
)

type AccountService interface {
	List(ctx context.Context) ([]data.AccountSummary, error)
	Create(ctx context.Context, in accounts.CreateInput) (*data.Account, error)
	Delete(ctx context.Context, id, actorUserID string) (string, error)
	SetActive(ctx context.Context, id string, active bool, actorUserID string) error
	TestCredentials(ctx context.Context, in accounts.ProbeInput) (int, error)
}

type DeviceService interface {
	ListByAccount(ctx context.Context, accountID string) ([]*data.Device, error)
	Sync(ctx context.Context, accountID string) (*devices.Result, error)
}

type CameraService interface {
	Promote(ctx context.Context, in cameras.PromoteInput) (*data.Camera, error)
	ListDisplay(ctx context.Context, userID string) ([]cameras.DisplayCamera, error)
}

type StatsProvider interface {
	Get(ctx context.Context) (*data.Stats, error)
}

type HikConnectHandler struct {
	Accounts AccountService
	Devices  DeviceService
	Cameras  CameraService
	Stats    StatsProvider
	logger   *slog.Logger
}

func NewHikConnectHandler(accts AccountService, devs DeviceService, cams CameraService, stats StatsProvider, logger *slog.Logger) *HikConnectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HikConnectHandler{
		Accounts: accts,
		Devices:  devs,
		Cameras:  cams,
		Stats:    stats,
		logger:   logger.With("component", "api"),
	}
}

func actorID(r *http.Request) string {
	return middleware.ActorID(r.Context())
}

// GET /api/hikconnect/accounts
func (h *HikConnectHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Accounts.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch accounts")
		return
	}
	if list == nil {
		list = []data.AccountSummary{}
	}
	respondJSON(w, http.StatusOK, list)
}

// POST /api/hikconnect/accounts
func (h *HikConnectHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountName string `json:"accountName"`
		AccessKey   string `json:"accessKey"`
		SecretKey   string `json:"secretKey"`
		Region      string `json:"region"`
		APIURL      string `json:"apiUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	acct, err := h.Accounts.Create(r.Context(), accounts.CreateInput{
		AccountName: req.AccountName,
		AccessKey:   req.AccessKey,
		SecretKey:   req.SecretKey,
		Region:      req.Region,
		APIURL:      req.APIURL,
		ActorUserID: actorID(r),
	})
	if err != nil {
		if errors.Is(err, accounts.ErrValidation) {
			respondError(w, http.StatusBadRequest, publicMessage(err, accounts.ErrValidation))
			return
		}
		h.logger.Error("create account failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to add account")
		return
	}
	respondJSON(w, http.StatusCreated, acct)
}

// DELETE /api/hikconnect/accounts/{id}
func (h *HikConnectHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	name, err := h.Accounts.Delete(r.Context(), id, actorID(r))
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Error("delete account failed", "account_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message":     "Account deleted successfully",
		"accountName": name,
	})
}

// POST /api/hikconnect/accounts/{id}/activate
func (h *HikConnectHandler) ActivateAccount(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// POST /api/hikconnect/accounts/{id}/deactivate
func (h *HikConnectHandler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *HikConnectHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id := r.PathValue("id")

	if err := h.Accounts.SetActive(r.Context(), id, active, actorID(r)); err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Account not found")
			return
		}
		h.logger.Error("update account state failed", "account_id", id, "active", active, "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to update account")
		return
	}

	msg := "Account deactivated"
	if active {
		msg = "Account activated"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":   msg,
		"id":        id,
		"is_active": active,
	})
}

// POST /api/hikconnect/test-credentials
func (h *HikConnectHandler) TestCredentials(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessKey string `json:"accessKey"`
		SecretKey string `json:"secretKey"`
		Region    string `json:"region"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	n, err := h.Accounts.TestCredentials(r.Context(), accounts.ProbeInput{
		AccessKey: req.AccessKey,
		SecretKey: req.SecretKey,
		Region:    req.Region,
	})
	if err != nil {
		if errors.Is(err, accounts.ErrValidation) {
			respondError(w, http.StatusBadRequest, publicMessage(err, accounts.ErrValidation))
			return
		}
		h.logger.Warn("credential test failed", "access_key", req.AccessKey, "error", err)
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Invalid credentials or API error",
			"details": err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Credentials validated successfully",
		"deviceCount": n,
	})
}

// GET /api/hikconnect/stats
func (h *HikConnectHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Stats.Get(r.Context())
	if err != nil {
		h.logger.Error("stats query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}
	respondJSON(w, http.StatusOK, st)
}
