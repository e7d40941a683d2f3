package http

import (
	"net/http"

	"goldtrack/internal/log"
)

type createCalculationRequest struct {
	Weight string `json:"weight"`
	Price  string `json:"price,omitempty"`
}

func (s *Server) handleCalculations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createCalculation(w, r)
	case http.MethodGet:
		s.getHistory(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) createCalculation(w http.ResponseWriter, r *http.Request) {
	var req createCalculationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	calc, err := s.calculations.CreateCalculation(r.Context(), agentID(r), req.Weight, req.Price)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).LogCalculationCreated(
		r.Context(), calc.ID, calc.AgentID, calc.WeightGrams.String(), calc.TotalValue.String())

	writeJSON(w, http.StatusCreated, calc)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	start, err := parseTimeParam(r, "start")
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := parseTimeParam(r, "end")
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.calculations.History(r.Context(), agentID(r), start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
