package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValidateMeasurement(t *testing.T) {
	cases := []struct {
		in    string
		field string
		want  string
		ok    bool
	}{
		{"10", "Weight", "10", true},
		{"0.8", "Weight", "0.8", true},
		{" 2.50 ", "Price", "2.5", true},
		{"", "Weight", "", false},
		{"   ", "Price", "", false},
		{"abc", "Weight", "", false},
		{"1.2.3", "Price", "", false},
		{"0", "Weight", "", false},
		{"-5", "Weight", "", false},
	}
	for _, tc := range cases {
		got, err := ValidateMeasurement(tc.in, tc.field)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q: expected ok, got %v", tc.in, err)
			}
			if !got.Equal(mustDec(tc.want)) {
				t.Fatalf("%q: expected %s, got %s", tc.in, tc.want, got)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%q: expected ErrInvalidInput, got %v", tc.in, err)
		}
	}
}

func TestValidateMeasurementCarriesFieldName(t *testing.T) {
	_, err := ValidateMeasurement("-5", "Weight")
	if err == nil {
		t.Fatal("expected error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if verr.Field != "Weight" {
		t.Fatalf("expected field Weight, got %q", verr.Field)
	}
}

func TestComputeScenarios(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name       string
		weight     string
		price      string
		rawUnits   string
		pounds     int
		blades     int
		matches    int
		effective  string
		totalValue string
	}{
		// 10g / 0.8 = 12.500 -> 1P 2B 5M -> 125 matches -> 12.5 units.
		{"ten grams at fifty", "10", "50", "12.5", 1, 2, 5, "12.5", "625"},
		// 0.8g is exactly one unit: 01.000 -> 0P 1B 0M.
		{"one unit exactly", "0.8", "100", "1", 0, 1, 0, "1", "100"},
		// 12.504 and 12.506 price identically: hundredths on are dropped.
		{"truncated digits low", "10.0032", "50", "12.504", 1, 2, 5, "12.5", "625"},
		{"truncated digits high", "10.0048", "50", "12.506", 1, 2, 5, "12.5", "625"},
		// Single integer digit zero-pads to 02.500 rather than shifting.
		{"zero padded pounds", "2", "40", "2.5", 0, 2, 5, "2.5", "100"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Compute(mustDec(tc.weight), mustDec(tc.price), "agent-1", now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.RawUnits.Equal(mustDec(tc.rawUnits)) {
				t.Errorf("rawUnits = %s, want %s", c.RawUnits, tc.rawUnits)
			}
			if c.Pounds != tc.pounds || c.Blades != tc.blades || c.Matches != tc.matches {
				t.Errorf("digits = %d/%d/%d, want %d/%d/%d", c.Pounds, c.Blades, c.Matches, tc.pounds, tc.blades, tc.matches)
			}
			if !c.EffectiveUnits.Equal(mustDec(tc.effective)) {
				t.Errorf("effectiveUnits = %s, want %s", c.EffectiveUnits, tc.effective)
			}
			if !c.TotalValue.Equal(mustDec(tc.totalValue)) {
				t.Errorf("totalValue = %s, want %s", c.TotalValue, tc.totalValue)
			}
			if c.AgentID != "agent-1" || !c.Timestamp.Equal(now) {
				t.Errorf("agent/timestamp not carried through: %+v", c)
			}
		})
	}
}

func TestComputeTotalMatches(t *testing.T) {
	// weight=10 price=50: 12.500 -> 1*100 + 2*10 + 5 = 125 matches.
	c, err := Compute(mustDec("10"), mustDec("50"), "a", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if c.TotalMatches != 125 {
		t.Fatalf("totalMatches = %d, want 125", c.TotalMatches)
	}
}

func TestComputeDigitLaw(t *testing.T) {
	// pounds*100 + blades*10 + matches must equal effectiveUnits*10 exactly.
	weights := []string{"0.8", "1", "2.5", "10", "10.0048", "33.333", "79.92"}
	for _, w := range weights {
		c, err := Compute(mustDec(w), mustDec("42"), "a", time.Now())
		if err != nil {
			t.Fatalf("weight %s: %v", w, err)
		}
		lhs := c.Pounds*100 + c.Blades*10 + c.Matches
		rhs := c.EffectiveUnits.Mul(decimal.New(10, 0))
		if !decimal.New(int64(lhs), 0).Equal(rhs) {
			t.Errorf("weight %s: digit law broken: %d != %s", w, lhs, rhs)
		}
		if c.EffectiveUnits.IsNegative() {
			t.Errorf("weight %s: negative effective units", w)
		}
	}
}

func TestComputeIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a, err := Compute(mustDec("13.37"), mustDec("123.45"), "agent-1", now)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compute(mustDec("13.37"), mustDec("123.45"), "agent-1", now)
	if err != nil {
		t.Fatal(err)
	}
	if !a.TotalValue.Equal(b.TotalValue) || a.Pounds != b.Pounds || a.Blades != b.Blades || a.Matches != b.Matches {
		t.Fatalf("not deterministic: %+v vs %+v", a, b)
	}
}

func TestComputeOutOfRange(t *testing.T) {
	// 80g is exactly 100 raw units, one integer digit too many.
	_, err := Compute(mustDec("80"), mustDec("50"), "a", time.Now())
	if err == nil {
		t.Fatal("expected error for rawUnits >= 100")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	// 79.92g is 99.900 raw units, still representable.
	c, err := Compute(mustDec("79.92"), mustDec("1"), "a", time.Now())
	if err != nil {
		t.Fatalf("unexpected error at upper bound: %v", err)
	}
	if c.Pounds != 9 || c.Blades != 9 || c.Matches != 9 {
		t.Fatalf("digits = %d/%d/%d, want 9/9/9", c.Pounds, c.Blades, c.Matches)
	}
	if !c.EffectiveUnits.Equal(mustDec("99.9")) {
		t.Fatalf("effectiveUnits = %s, want 99.9", c.EffectiveUnits)
	}
}

func TestComputeRejectsNonPositive(t *testing.T) {
	if _, err := Compute(decimal.Zero, mustDec("50"), "a", time.Now()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero weight: expected ErrInvalidInput, got %v", err)
	}
	if _, err := Compute(mustDec("10"), mustDec("-1"), "a", time.Now()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative price: expected ErrInvalidInput, got %v", err)
	}
}

func mustDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
