package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/manishonc/car-rental/internal/core"
	"github.com/manishonc/car-rental/internal/middleware"
)

// InsuranceHandler exposes the eligibility and premium engine outside a booking session.
type InsuranceHandler struct {
	quotes core.QuoteService
	log    *slog.Logger
}

func NewInsuranceHandler(quotes core.QuoteService, log *slog.Logger) *InsuranceHandler {
	return &InsuranceHandler{quotes: quotes, log: log}
}

func (h *InsuranceHandler) Mount(r chi.Router) {
	r.Route("/insurance", func(r chi.Router) {
		r.Get("/catalog", h.Catalog)
		r.With(middleware.LimitRequestBody(middleware.MaxBodySize)).Post("/quote", h.Quote)
	})
}

func (h *InsuranceHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	options, err := h.quotes.Catalog(r.Context())
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": options})
}

func (h *InsuranceHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var in core.QuoteInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	q, err := h.quotes.Price(r.Context(), in)
	if err != nil {
		writeError(r.Context(), h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
