package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"goldtrack/internal/core"
)

type updatePriceRequest struct {
	Price string `json:"price"`
}

// priceResponse pairs the current sample with the day-over-day movement.
// Change is omitted when there is not enough history to compute it.
type priceResponse struct {
	core.PriceSample
	Change *core.PriceChange `json:"change,omitempty"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getPrice(w, r)
	case http.MethodPut:
		s.updatePrice(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (s *Server) getPrice(w http.ResponseWriter, r *http.Request) {
	sample, err := s.prices.Current(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := priceResponse{PriceSample: sample}
	if change, err := s.prices.DailyChange(r.Context()); err == nil {
		resp.Change = &change
	} else if !errors.Is(err, core.ErrInsufficientData) {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) updatePrice(w http.ResponseWriter, r *http.Request) {
	if agentID(r) == "" {
		writeError(w, r, core.ErrUnauthenticated)
		return
	}

	var req updatePriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	sample, err := s.prices.Update(r.Context(), req.Price)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sample)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, &core.ValidationError{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	samples, err := s.prices.History(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, samples)
}
