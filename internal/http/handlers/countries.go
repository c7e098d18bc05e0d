package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/manishonc/car-rental/internal/core"
)

const defaultCountryLang = "EN"

type CountryHandler struct {
	api core.OrderAPI
	log *slog.Logger
}

func NewCountryHandler(api core.OrderAPI, log *slog.Logger) *CountryHandler {
	return &CountryHandler{api: api, log: log}
}

func (h *CountryHandler) Mount(r chi.Router) {
	r.Get("/countries", h.List)
}

// List returns the country directory in the requested language, EN by default.
func (h *CountryHandler) List(w http.ResponseWriter, r *http.Request) {
	lang := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("lang")))
	if lang == "" {
		lang = defaultCountryLang
	}
	countries, err := h.api.GetCountries(r.Context(), lang)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lang": lang, "items": countries})
}
