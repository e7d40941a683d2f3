// Package core implements the gold conversion engine and history
// aggregation used by every other package. It is pure: no I/O, no
// logging, no shared state. Callers inject the clock and agent identity.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// gramsPerUnit is the business convention: 0.8 grams of gold make one unit.
var gramsPerUnit = decimal.RequireFromString("0.8")

// Denomination weights: 1 pound = 100 matches, 1 blade = 10 matches,
// and 10 matches make one priced unit.
const (
	matchesPerPound = 100
	matchesPerBlade = 10
	matchesPerUnit  = 10
)

// Calculation is the immutable result of pricing a single weight.
// It is constructed once by Compute and persisted verbatim.
type Calculation struct {
	ID             int64           `json:"id,omitempty"`
	WeightGrams    decimal.Decimal `json:"weightGrams"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	RawUnits       decimal.Decimal `json:"rawUnits"`
	Pounds         int             `json:"pounds"`
	Blades         int             `json:"blades"`
	Matches        int             `json:"matches"`
	TotalMatches   int             `json:"totalMatches"`
	EffectiveUnits decimal.Decimal `json:"effectiveUnits"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	AgentID        string          `json:"agentId"`
	Timestamp      time.Time       `json:"timestamp"`
}

// ValidateMeasurement parses a user-supplied numeric field and enforces
// the domain rules shared by weight and price: present, numeric, positive.
// The field name is carried in the error for display.
func ValidateMeasurement(value, field string) (decimal.Decimal, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return decimal.Zero, invalid(field, "cannot be empty")
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, invalid(field, "must be a number")
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, invalid(field, "must be greater than zero")
	}
	return d, nil
}

// Compute converts a validated weight and unit price into a Calculation.
//
// The trading-house convention renders rawUnits = weight/0.8 as a
// fixed-point "XX.YYY" string (two integer digits zero-padded, three
// fractional digits) and reads the denomination off digit positions:
//
//	pounds  = tens digit      (worth 100 matches)
//	blades  = ones digit      (worth 10 matches)
//	matches = tenths digit    (worth 1 match)
//
// The hundredths and thousandths digits are discarded entirely. That is
// intentional truncation, not rounding: the least significant digits of
// the raw conversion never participate in pricing. The priced quantity is
//
//	effectiveUnits = totalMatches / 10
//	totalValue     = effectiveUnits * price, rounded to 2 decimals
//
// Compute re-checks positivity so a caller skipping ValidateMeasurement
// still cannot produce a nonsense record.
func Compute(weight, price decimal.Decimal, agentID string, now time.Time) (Calculation, error) {
	if weight.LessThanOrEqual(decimal.Zero) {
		return Calculation{}, invalid("Weight", "must be greater than zero")
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return Calculation{}, invalid("Price", "must be greater than zero")
	}

	rawUnits := weight.Div(gramsPerUnit)

	fixed := rawUnits.StringFixed(3)
	intPart, fracPart, ok := strings.Cut(fixed, ".")
	if !ok || len(fracPart) != 3 || len(intPart) == 0 {
		return Calculation{}, fmt.Errorf("%w: malformed fixed-point value %q", ErrComputation, fixed)
	}
	if len(intPart) > 2 {
		// Three or more integer digits have no defined denomination.
		return Calculation{}, invalid("Weight", "value out of representable range")
	}
	if len(intPart) == 1 {
		intPart = "0" + intPart
	}

	pounds := int(intPart[0] - '0')
	blades := int(intPart[1] - '0')
	matches := int(fracPart[0] - '0')
	// fracPart[1] and fracPart[2] never reach the priced quantity.

	totalMatches := pounds*matchesPerPound + blades*matchesPerBlade + matches
	effectiveUnits := decimal.New(int64(totalMatches), -1)
	totalValue := effectiveUnits.Mul(price).Round(2)

	return Calculation{
		WeightGrams:    weight,
		UnitPrice:      price,
		RawUnits:       rawUnits.Round(3),
		Pounds:         pounds,
		Blades:         blades,
		Matches:        matches,
		TotalMatches:   totalMatches,
		EffectiveUnits: effectiveUnits,
		TotalValue:     totalValue,
		AgentID:        agentID,
		Timestamp:      now,
	}, nil
}
