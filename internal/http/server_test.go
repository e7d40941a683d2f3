package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"goldtrack/internal/core"
	"goldtrack/internal/ledger/memory"
	"goldtrack/internal/log"
	"goldtrack/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := memory.New()
	prices := services.NewPriceService(store, decimal.RequireFromString("300"))
	calcs := services.NewCalculationService(store, store, prices, nil)
	logger := log.New(log.DefaultConfig())

	s := NewServer(":0", calcs, prices, nil, logger)
	t.Cleanup(func() {
		s.limiter.Stop()
		_ = calcs.Close()
	})
	return s
}

func doRequest(t *testing.T, s *Server, method, target, agent, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if agent != "" {
		req.Header.Set("X-Agent-ID", agent)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateCalculation(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/calculations", "agent-1", `{"weight":"10","price":"50"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var got core.Calculation
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Pounds != 1 || got.Blades != 2 || got.Matches != 5 {
		t.Errorf("digits = %d/%d/%d, want 1/2/5", got.Pounds, got.Blades, got.Matches)
	}
	if want := decimal.RequireFromString("625"); !got.TotalValue.Equal(want) {
		t.Errorf("TotalValue = %s, want %s", got.TotalValue, want)
	}
	if got.AgentID != "agent-1" {
		t.Errorf("AgentID = %q, want %q", got.AgentID, "agent-1")
	}

	if h := rec.Header().Get("X-Content-Type-Options"); h != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", h)
	}
}

func TestCreateCalculationUsesDefaultPrice(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/calculations", "agent-1", `{"weight":"10"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var got core.Calculation
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if want := decimal.RequireFromString("3750"); !got.TotalValue.Equal(want) {
		t.Errorf("TotalValue = %s, want %s", got.TotalValue, want)
	}
}

func TestCreateCalculationRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		agent      string
		body       string
		wantStatus int
		wantField  string
	}{
		{"missing agent", "", `{"weight":"10"}`, http.StatusUnauthorized, ""},
		{"empty weight", "agent-1", `{"weight":""}`, http.StatusUnprocessableEntity, "Weight"},
		{"non-numeric weight", "agent-1", `{"weight":"abc"}`, http.StatusUnprocessableEntity, "Weight"},
		{"negative weight", "agent-1", `{"weight":"-1"}`, http.StatusUnprocessableEntity, "Weight"},
		{"weight out of range", "agent-1", `{"weight":"80"}`, http.StatusUnprocessableEntity, "Weight"},
		{"zero price", "agent-1", `{"weight":"10","price":"0"}`, http.StatusUnprocessableEntity, "Price"},
		{"malformed body", "agent-1", `{"weight":`, http.StatusBadRequest, ""},
		{"unknown field", "agent-1", `{"weight":"10","wheight":"10"}`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/calculations", tt.agent, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantField != "" {
				var body errorBody
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("unmarshal error body: %v", err)
				}
				if body.Field != tt.wantField {
					t.Errorf("field = %q, want %q", body.Field, tt.wantField)
				}
			}
		})
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{`{"weight":"10","price":"50"}`, `{"weight":"2","price":"50"}`} {
		if rec := doRequest(t, s, http.MethodPost, "/api/calculations", "agent-1", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed calculation: status = %d (body: %s)", rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(t, s, http.MethodGet, "/api/calculations", "agent-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got core.AggregateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(got.Filtered) != 2 {
		t.Fatalf("len(Filtered) = %d, want 2", len(got.Filtered))
	}
	if want := decimal.RequireFromString("750"); !got.FilteredTotal.Equal(want) {
		t.Errorf("FilteredTotal = %s, want %s", got.FilteredTotal, want)
	}
	if !got.AllTimeTotal.Equal(got.FilteredTotal) {
		t.Errorf("AllTimeTotal = %s, want %s", got.AllTimeTotal, got.FilteredTotal)
	}
}

func TestHistoryEndpointErrors(t *testing.T) {
	s := newTestServer(t)

	if rec := doRequest(t, s, http.MethodGet, "/api/calculations", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no agent: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if rec := doRequest(t, s, http.MethodGet, "/api/calculations?start=yesterday", "agent-1", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad start: status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	rec := doRequest(t, s, http.MethodDelete, "/api/calculations", "agent-1", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("delete: status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if allow := rec.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Errorf("Allow = %q, want it to list POST", allow)
	}
}

func TestPriceEndpoints(t *testing.T) {
	s := newTestServer(t)

	// Default price before anything is stored.
	rec := doRequest(t, s, http.MethodGet, "/api/price", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get default: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var current priceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &current); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if want := decimal.RequireFromString("300"); !current.Price.Equal(want) {
		t.Errorf("default price = %s, want %s", current.Price, want)
	}
	if current.Change != nil {
		t.Errorf("change = %+v, want omitted with no history", current.Change)
	}

	if rec := doRequest(t, s, http.MethodPut, "/api/price", "", `{"price":"330"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("update without agent: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	for _, price := range []string{`{"price":"330"}`, `{"price":"363"}`} {
		if rec := doRequest(t, s, http.MethodPut, "/api/price", "agent-1", price); rec.Code != http.StatusOK {
			t.Fatalf("update: status = %d (body: %s)", rec.Code, rec.Body.String())
		}
	}
	if rec := doRequest(t, s, http.MethodPut, "/api/price", "agent-1", `{"price":"-5"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative price: status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/price", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get updated: status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	current = priceResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &current); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if want := decimal.RequireFromString("363"); !current.Price.Equal(want) {
		t.Errorf("price = %s, want %s", current.Price, want)
	}
	if current.Change == nil {
		t.Fatal("change missing after two samples")
	}
	if want := decimal.RequireFromString("10"); !current.Change.Percent.Equal(want) {
		t.Errorf("change percent = %s, want %s", current.Change.Percent, want)
	}
	if !current.Change.IsPositive {
		t.Error("change should be positive")
	}
}

func TestPriceHistoryEndpoint(t *testing.T) {
	s := newTestServer(t)

	for _, price := range []string{`{"price":"300"}`, `{"price":"310"}`, `{"price":"320"}`} {
		if rec := doRequest(t, s, http.MethodPut, "/api/price", "agent-1", price); rec.Code != http.StatusOK {
			t.Fatalf("seed price: status = %d (body: %s)", rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(t, s, http.MethodGet, "/api/price/history?limit=2", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var samples []core.PriceSample
	if err := json.Unmarshal(rec.Body.Bytes(), &samples); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}
	if want := decimal.RequireFromString("320"); !samples[0].Price.Equal(want) {
		t.Errorf("newest sample = %s, want %s", samples[0].Price, want)
	}

	if rec := doRequest(t, s, http.MethodGet, "/api/price/history?limit=abc", "", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad limit: status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("db gone") }

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	if rec := doRequest(t, s, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := doRequest(t, s, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("/readyz status = %d, want %d", rec.Code, http.StatusOK)
	}

	s.ready = failingPinger{}
	if rec := doRequest(t, s, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz with failing storage status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
