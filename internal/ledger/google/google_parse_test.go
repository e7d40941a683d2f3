package google

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"goldtrack/internal/core"
)

func TestCalculationRowRoundTrip(t *testing.T) {
	c := core.Calculation{
		WeightGrams:    decimal.RequireFromString("10"),
		UnitPrice:      decimal.RequireFromString("50"),
		RawUnits:       decimal.RequireFromString("12.5"),
		Pounds:         1,
		Blades:         2,
		Matches:        5,
		TotalMatches:   125,
		EffectiveUnits: decimal.RequireFromString("12.5"),
		TotalValue:     decimal.RequireFromString("625"),
		AgentID:        "agent-1",
		Timestamp:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	row := calculationRow(c)
	cols := make([]string, len(row))
	for i, v := range row {
		switch x := v.(type) {
		case string:
			cols[i] = x
		case int:
			cols[i] = decimal.NewFromInt(int64(x)).String()
		}
	}

	got, ok := parseLedgerRow(cols)
	if !ok {
		t.Fatalf("expected row to parse: %v", cols)
	}
	if got.AgentID != c.AgentID {
		t.Errorf("agent: got %q want %q", got.AgentID, c.AgentID)
	}
	if !got.Timestamp.Equal(c.Timestamp) {
		t.Errorf("timestamp: got %v want %v", got.Timestamp, c.Timestamp)
	}
	if !got.TotalValue.Equal(c.TotalValue) {
		t.Errorf("total value: got %s want %s", got.TotalValue, c.TotalValue)
	}
	if got.TotalMatches != 125 {
		t.Errorf("total matches: got %d want 125", got.TotalMatches)
	}
}

func TestParseLedgerRowRejectsMalformed(t *testing.T) {
	cases := [][]string{
		nil,
		{"Timestamp", "Agent", "Weight", "Price", "Raw", "P", "B", "M", "Eff", "Total"}, // header
		{"2025-03-01T12:00:00Z", "a", "x", "50", "12.5", "1", "2", "5", "12.5", "625"},  // bad weight
		{"2025-03-01T12:00:00Z", "a", "10", "50", "12.5", "one", "2", "5", "12.5", "625"},
		{"not-a-time", "a", "10", "50", "12.5", "1", "2", "5", "12.5", "625"},
	}
	for i, cols := range cases {
		if _, ok := parseLedgerRow(cols); ok {
			t.Errorf("case %d: expected parse to fail: %v", i, cols)
		}
	}
}

func TestParseLedgerRowDecimalComma(t *testing.T) {
	cols := []string{"2025-03-01T12:00:00Z", "a", "10", "50", "12,5", "1", "2", "5", "12,5", "625"}
	got, ok := parseLedgerRow(cols)
	if !ok {
		t.Fatalf("expected row with decimal commas to parse")
	}
	if !got.RawUnits.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("raw units: got %s want 12.5", got.RawUnits)
	}
}

func TestYearPrefixedName(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"Ledger", "2025 Ledger"},
		{"2024 Ledger", "2024 Ledger"},
		{"  Ledger ", "2025 Ledger"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := yearPrefixedName(tc.base, 2025); got != tc.want {
			t.Errorf("yearPrefixedName(%q): got %q want %q", tc.base, got, tc.want)
		}
	}
}
