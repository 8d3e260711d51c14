package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fxledger/fxledger/internal/adapter/http/dto"
	"github.com/fxledger/fxledger/internal/usecase"
)

// RateHandler handles exchange-rate HTTP requests.
type RateHandler struct {
	rateUC *usecase.RateService
}

// NewRateHandler creates a new RateHandler.
func NewRateHandler(rateUC *usecase.RateService) *RateHandler {
	return &RateHandler{rateUC: rateUC}
}

// Set records an exchange-rate observation.
func (h *RateHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req dto.SetRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	at := time.Now().UTC()
	if req.At != nil {
		at = *req.At
	}

	if err := h.rateUC.SetRate(r.Context(), req.From, req.To, req.Value, at); err != nil {
		writeDomainError(w, "failed to set rate", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RateResponse{
		From:  req.From,
		To:    req.To,
		Value: req.Value,
		At:    at,
	})
}

// Get resolves the rate for an asset pair, deriving it through the base
// asset when no direct observation exists.
func (h *RateHandler) Get(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "from")
	to := chi.URLParam(r, "to")

	asOf, err := parseTimeQuery(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid as_of", err)
		return
	}
	at := time.Now().UTC()
	if asOf != nil {
		at = *asOf
	}

	value, err := h.rateUC.Rate(r.Context(), from, to, at)
	if err != nil {
		writeDomainError(w, "failed to resolve rate", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ResolvedRateResponse{
		From:  from,
		To:    to,
		Value: value,
		AsOf:  at,
	})
}

// List lists recorded observations for an asset pair, oldest first.
func (h *RateHandler) List(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "from")
	to := chi.URLParam(r, "to")

	rates, err := h.rateUC.ListRates(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, "failed to list rates", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RatesFromDomain(rates))
}

// Delete removes one observation identified by pair and timestamp.
func (h *RateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "from")
	to := chi.URLParam(r, "to")

	at, err := parseTimeQuery(r, "at")
	if err != nil || at == nil {
		writeError(w, http.StatusBadRequest, "missing or invalid at", err)
		return
	}

	if err := h.rateUC.DeleteRate(r.Context(), from, to, *at); err != nil {
		writeDomainError(w, "failed to delete rate", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
