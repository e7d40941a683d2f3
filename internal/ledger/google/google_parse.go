package google

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"goldtrack/internal/core"
)

// ledgerTimeFormat is how timestamps are rendered in the sheet. RFC 3339
// keeps rows sortable and unambiguous across locales.
const ledgerTimeFormat = time.RFC3339

// calculationRow renders a calculation as the A:J sheet columns.
func calculationRow(c core.Calculation) []any {
	return []any{
		c.Timestamp.UTC().Format(ledgerTimeFormat),
		c.AgentID,
		c.WeightGrams.String(),
		c.UnitPrice.String(),
		c.RawUnits.String(),
		c.Pounds,
		c.Blades,
		c.Matches,
		c.EffectiveUnits.String(),
		c.TotalValue.String(),
	}
}

// parseLedgerRow converts one sheet row back into a calculation.
// Returns false for headers and rows that do not parse.
func parseLedgerRow(cols []string) (core.Calculation, bool) {
	if len(cols) < 10 {
		return core.Calculation{}, false
	}

	ts, err := time.Parse(ledgerTimeFormat, cols[0])
	if err != nil {
		return core.Calculation{}, false
	}

	weight, err := decimal.NewFromString(normalizeDecimal(cols[2]))
	if err != nil {
		return core.Calculation{}, false
	}
	price, err := decimal.NewFromString(normalizeDecimal(cols[3]))
	if err != nil {
		return core.Calculation{}, false
	}
	rawUnits, err := decimal.NewFromString(normalizeDecimal(cols[4]))
	if err != nil {
		return core.Calculation{}, false
	}

	pounds, err := strconv.Atoi(cols[5])
	if err != nil {
		return core.Calculation{}, false
	}
	blades, err := strconv.Atoi(cols[6])
	if err != nil {
		return core.Calculation{}, false
	}
	matches, err := strconv.Atoi(cols[7])
	if err != nil {
		return core.Calculation{}, false
	}

	effective, err := decimal.NewFromString(normalizeDecimal(cols[8]))
	if err != nil {
		return core.Calculation{}, false
	}
	total, err := decimal.NewFromString(normalizeDecimal(cols[9]))
	if err != nil {
		return core.Calculation{}, false
	}

	return core.Calculation{
		WeightGrams:    weight,
		UnitPrice:      price,
		RawUnits:       rawUnits,
		Pounds:         pounds,
		Blades:         blades,
		Matches:        matches,
		TotalMatches:   pounds*100 + blades*10 + matches,
		EffectiveUnits: effective,
		TotalValue:     total,
		AgentID:        cols[1],
		Timestamp:      ts,
	}, true
}

// normalizeDecimal handles sheets that render numbers with a decimal comma.
func normalizeDecimal(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			out[i] = '.'
		} else {
			out[i] = s[i]
		}
	}
	return string(out)
}
