package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klinkercommerce/accounting/internal/vat"
)

// SettingsHandler handles VAT settings administration.
type SettingsHandler struct {
	repo   *vat.Repository
	logger *slog.Logger
}

// NewSettingsHandler creates a new VAT settings handler.
func NewSettingsHandler(repo *vat.Repository, logger *slog.Logger) *SettingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsHandler{
		repo:   repo,
		logger: logger,
	}
}

// RegisterRoutes registers the VAT settings admin routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/vat-settings", h.List)
	mux.HandleFunc("GET /admin/vat-settings/{country}", h.Get)
	mux.HandleFunc("PUT /admin/vat-settings/{country}", h.Upsert)
	mux.HandleFunc("DELETE /admin/vat-settings/{country}", h.Delete)
}

// settingJSON is the wire representation of one vat_settings row.
type settingJSON struct {
	CountryCode  string          `json:"country_code"`
	StandardRate decimal.Decimal `json:"standard_rate"`
	ReducedRate  decimal.Decimal `json:"reduced_rate"`
	ZeroRate     decimal.Decimal `json:"zero_rate"`
	Description  string          `json:"description"`
	IsEUMember   bool            `json:"is_eu_member"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toSettingJSON(s vat.Setting) settingJSON {
	return settingJSON{
		CountryCode:  s.CountryCode,
		StandardRate: s.StandardRate,
		ReducedRate:  s.ReducedRate,
		ZeroRate:     s.ZeroRate,
		Description:  s.Description,
		IsEUMember:   s.IsEUMember,
		UpdatedAt:    s.UpdatedAt,
	}
}

// List handles GET /admin/vat-settings.
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("listing vat settings failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	out := make([]settingJSON, 0, len(settings))
	for _, s := range settings {
		out = append(out, toSettingJSON(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /admin/vat-settings/{country}.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	country := strings.ToUpper(r.PathValue("country"))

	setting, err := h.repo.Get(r.Context(), country)
	if err != nil {
		if errors.Is(err, vat.ErrSettingNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "vat setting not found"})
			return
		}
		h.logger.Error("getting vat setting failed", "country", country, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toSettingJSON(setting))
}

type upsertSettingRequest struct {
	StandardRate decimal.Decimal `json:"standard_rate"`
	ReducedRate  decimal.Decimal `json:"reduced_rate"`
	ZeroRate     decimal.Decimal `json:"zero_rate"`
	Description  string          `json:"description"`
	IsEUMember   bool            `json:"is_eu_member"`
}

// Upsert handles PUT /admin/vat-settings/{country}.
func (h *SettingsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	country := strings.ToUpper(r.PathValue("country"))
	if len(country) != 2 {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "country code must be two letters"})
		return
	}

	var req upsertSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{Error: "invalid request body"})
		return
	}
	for _, rate := range []decimal.Decimal{req.StandardRate, req.ReducedRate, req.ZeroRate} {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			writeJSON(w, http.StatusBadRequest, errorJSON{Error: "rates must be between 0 and 100"})
			return
		}
	}

	saved, err := h.repo.Upsert(r.Context(), vat.Setting{
		CountryCode:  country,
		StandardRate: req.StandardRate,
		ReducedRate:  req.ReducedRate,
		ZeroRate:     req.ZeroRate,
		Description:  req.Description,
		IsEUMember:   req.IsEUMember,
	})
	if err != nil {
		h.logger.Error("saving vat setting failed", "country", country, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toSettingJSON(saved))
}

// Delete handles DELETE /admin/vat-settings/{country}.
func (h *SettingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	country := strings.ToUpper(r.PathValue("country"))

	if err := h.repo.Delete(r.Context(), country); err != nil {
		if errors.Is(err, vat.ErrSettingNotFound) {
			writeJSON(w, http.StatusNotFound, errorJSON{Error: "vat setting not found"})
			return
		}
		h.logger.Error("deleting vat setting failed", "country", country, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
