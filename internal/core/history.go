package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// defaultRangeDays is the lookback window applied when no start date is given.
const defaultRangeDays = 30

// DateRange is an inclusive [Start, End] window. Start <= End always holds
// after NormalizeRange.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range, bounds included,
// compared at full timestamp precision.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// PriceSample is one point of the unit-price history, newest first in any
// series handed to this package.
type PriceSample struct {
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// PriceChange is the day-over-day movement of the unit price.
type PriceChange struct {
	Percent    decimal.Decimal `json:"percent"`
	IsPositive bool            `json:"isPositive"`
}

// AggregateResult is what the history views render: the records inside the
// requested window, their value sum, and the agent's all-time sum.
type AggregateResult struct {
	Filtered      []Calculation   `json:"filtered"`
	FilteredTotal decimal.Decimal `json:"filteredTotal"`
	AllTimeTotal  decimal.Decimal `json:"allTimeTotal"`
	Range         DateRange       `json:"range"`
}

// NormalizeRange fills missing bounds (last 30 days up to end of today)
// and silently swaps inverted ones. Swapping instead of erroring is
// long-standing behavior callers depend on.
func NormalizeRange(start, end *time.Time, now time.Time) DateRange {
	s := startOfDay(now.AddDate(0, 0, -defaultRangeDays))
	if start != nil {
		s = *start
	}
	e := endOfDay(now)
	if end != nil {
		e = *end
	}
	if s.After(e) {
		s, e = e, s
	}
	return DateRange{Start: s, End: e}
}

// FilterByRange returns the calculations whose timestamp lies inside the
// range. Order is preserved for already newest-first input; an unordered
// input is re-sorted newest first so callers always render descending.
func FilterByRange(calcs []Calculation, r DateRange) []Calculation {
	out := make([]Calculation, 0, len(calcs))
	for _, c := range calcs {
		if r.Contains(c.Timestamp) {
			out = append(out, c)
		}
	}
	if !sortedNewestFirst(out) {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Timestamp.After(out[j].Timestamp)
		})
	}
	return out
}

// SumTotalValue sums TotalValue across the input. A zero-valued record
// contributes nothing, so partial or legacy rows never make this fail.
func SumTotalValue(calcs []Calculation) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range calcs {
		sum = sum.Add(c.TotalValue)
	}
	return sum
}

// Aggregate filters and sums one agent's history for the given range.
// A blank agent id yields ErrUnauthenticated with an empty result so the
// caller can prompt for sign-in instead of rendering bogus totals.
func Aggregate(agentID string, calcs []Calculation, r DateRange) (AggregateResult, error) {
	if agentID == "" {
		return AggregateResult{Range: r, FilteredTotal: decimal.Zero, AllTimeTotal: decimal.Zero}, ErrUnauthenticated
	}
	filtered := FilterByRange(calcs, r)
	return AggregateResult{
		Filtered:      filtered,
		FilteredTotal: SumTotalValue(filtered),
		AllTimeTotal:  SumTotalValue(calcs),
		Range:         r,
	}, nil
}

// DailyChange derives the day-over-day percentage move from a newest-first
// price series. Fewer than two samples, or a zero previous price, yields
// ErrInsufficientData; the caller omits the change indicator in that case.
func DailyChange(samplesNewestFirst []PriceSample) (PriceChange, error) {
	if len(samplesNewestFirst) < 2 {
		return PriceChange{}, fmt.Errorf("%w: need at least 2 price samples, have %d", ErrInsufficientData, len(samplesNewestFirst))
	}
	latest := samplesNewestFirst[0].Price
	previous := samplesNewestFirst[1].Price
	if previous.IsZero() {
		return PriceChange{}, fmt.Errorf("%w: previous price is zero", ErrInsufficientData)
	}
	percent := latest.Sub(previous).Div(previous).Mul(decimal.New(100, 0)).Round(2)
	return PriceChange{
		Percent:    percent,
		IsPositive: percent.GreaterThanOrEqual(decimal.Zero),
	}, nil
}

func sortedNewestFirst(calcs []Calculation) bool {
	for i := 1; i < len(calcs); i++ {
		if calcs[i-1].Timestamp.Before(calcs[i].Timestamp) {
			return false
		}
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
