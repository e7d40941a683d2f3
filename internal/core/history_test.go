package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func histCalc(ts time.Time, total string) Calculation {
	return Calculation{AgentID: "agent-1", Timestamp: ts, TotalValue: mustDec(total)}
}

func TestNormalizeRangeDefaults(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	r := NormalizeRange(nil, nil, now)

	wantStart := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	if !r.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", r.Start, wantStart)
	}
	if r.End.Year() != 2026 || r.End.Month() != 3 || r.End.Day() != 15 || r.End.Hour() != 23 {
		t.Errorf("end = %v, want end of 2026-03-15", r.End)
	}
	if r.Start.After(r.End) {
		t.Error("invariant start <= end broken")
	}
}

func TestNormalizeRangeSwapsInvertedBounds(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// start after end: silently swapped, never an error.
	r := NormalizeRange(&t2, &t1, now)
	if !r.Start.Equal(t1) || !r.End.Equal(t2) {
		t.Fatalf("expected swap to [%v, %v], got [%v, %v]", t1, t2, r.Start, r.End)
	}
}

func TestFilterByRange(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	newest := histCalc(base.Add(48*time.Hour), "300")
	middle := histCalc(base.Add(24*time.Hour), "200")
	oldest := histCalc(base, "100")
	all := []Calculation{newest, middle, oldest} // newest first, as stored

	t.Run("full range round-trips in original order", func(t *testing.T) {
		got := FilterByRange(all, DateRange{Start: oldest.Timestamp, End: newest.Timestamp})
		if len(got) != 3 {
			t.Fatalf("expected 3, got %d", len(got))
		}
		for i := range all {
			if !got[i].Timestamp.Equal(all[i].Timestamp) {
				t.Fatalf("order changed at %d", i)
			}
		}
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		got := FilterByRange(all, DateRange{Start: middle.Timestamp, End: middle.Timestamp})
		if len(got) != 1 || !got[0].Timestamp.Equal(middle.Timestamp) {
			t.Fatalf("expected exactly the boundary record, got %d records", len(got))
		}
	})

	t.Run("window excludes outside records", func(t *testing.T) {
		got := FilterByRange(all, DateRange{Start: base.Add(12 * time.Hour), End: base.Add(36 * time.Hour)})
		if len(got) != 1 || !got[0].Timestamp.Equal(middle.Timestamp) {
			t.Fatalf("expected only the middle record, got %d", len(got))
		}
	})

	t.Run("unordered input comes back newest first", func(t *testing.T) {
		shuffled := []Calculation{oldest, newest, middle}
		got := FilterByRange(shuffled, DateRange{Start: oldest.Timestamp, End: newest.Timestamp})
		if len(got) != 3 {
			t.Fatalf("expected 3, got %d", len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i-1].Timestamp.Before(got[i].Timestamp) {
				t.Fatalf("not newest first at %d", i)
			}
		}
	})
}

func TestSumTotalValue(t *testing.T) {
	if !SumTotalValue(nil).Equal(decimal.Zero) {
		t.Fatal("empty sum must be zero")
	}

	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := []Calculation{histCalc(ts, "100.50"), histCalc(ts, "200.25")}
	b := []Calculation{histCalc(ts, "0.25"), {AgentID: "agent-1", Timestamp: ts}} // zero-valued record

	sumA := SumTotalValue(a)
	sumB := SumTotalValue(b)
	if !sumA.Equal(mustDec("300.75")) {
		t.Fatalf("sumA = %s, want 300.75", sumA)
	}
	if !sumB.Equal(mustDec("0.25")) {
		t.Fatalf("sumB = %s, want 0.25 (missing total counts as 0)", sumB)
	}

	// Partition property: sum(A ∪ B) == sum(A) + sum(B).
	union := append(append([]Calculation{}, a...), b...)
	if !SumTotalValue(union).Equal(sumA.Add(sumB)) {
		t.Fatal("sum is not additive under partitioning")
	}
}

func TestAggregate(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	calcs := []Calculation{
		histCalc(base.Add(48*time.Hour), "300"),
		histCalc(base.Add(24*time.Hour), "200"),
		histCalc(base, "100"),
	}
	r := DateRange{Start: base.Add(12 * time.Hour), End: base.Add(72 * time.Hour)}

	res, err := Aggregate("agent-1", calcs, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Filtered) != 2 {
		t.Fatalf("filtered = %d, want 2", len(res.Filtered))
	}
	if !res.FilteredTotal.Equal(mustDec("500")) {
		t.Errorf("filteredTotal = %s, want 500", res.FilteredTotal)
	}
	if !res.AllTimeTotal.Equal(mustDec("600")) {
		t.Errorf("allTimeTotal = %s, want 600", res.AllTimeTotal)
	}
}

func TestAggregateRequiresAgent(t *testing.T) {
	res, err := Aggregate("", []Calculation{histCalc(time.Now(), "100")}, DateRange{})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(res.Filtered) != 0 || !res.FilteredTotal.Equal(decimal.Zero) {
		t.Fatal("unauthenticated aggregate must be empty")
	}
}

func TestDailyChange(t *testing.T) {
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	sample := func(p string, age time.Duration) PriceSample {
		return PriceSample{Price: mustDec(p), Timestamp: ts.Add(-age)}
	}

	t.Run("positive move", func(t *testing.T) {
		got, err := DailyChange([]PriceSample{sample("110", 0), sample("100", 24*time.Hour)})
		if err != nil {
			t.Fatal(err)
		}
		if !got.Percent.Equal(mustDec("10")) || !got.IsPositive {
			t.Fatalf("got %+v, want +10%%", got)
		}
	})

	t.Run("negative move", func(t *testing.T) {
		got, err := DailyChange([]PriceSample{sample("90", 0), sample("100", 24*time.Hour)})
		if err != nil {
			t.Fatal(err)
		}
		if !got.Percent.Equal(mustDec("-10")) || got.IsPositive {
			t.Fatalf("got %+v, want -10%%", got)
		}
	})

	t.Run("flat counts as positive", func(t *testing.T) {
		got, err := DailyChange([]PriceSample{sample("100", 0), sample("100", 24*time.Hour)})
		if err != nil {
			t.Fatal(err)
		}
		if !got.Percent.IsZero() || !got.IsPositive {
			t.Fatalf("got %+v, want 0%% positive", got)
		}
	})

	t.Run("rounded to two decimals", func(t *testing.T) {
		got, err := DailyChange([]PriceSample{sample("101", 0), sample("300", 24*time.Hour)})
		if err != nil {
			t.Fatal(err)
		}
		if !got.Percent.Equal(mustDec("-66.33")) {
			t.Fatalf("percent = %s, want -66.33", got.Percent)
		}
	})

	t.Run("too few samples", func(t *testing.T) {
		if _, err := DailyChange([]PriceSample{sample("100", 0)}); !errors.Is(err, ErrInsufficientData) {
			t.Fatalf("expected ErrInsufficientData, got %v", err)
		}
	})

	t.Run("zero previous price", func(t *testing.T) {
		if _, err := DailyChange([]PriceSample{sample("100", 0), sample("0", 24*time.Hour)}); !errors.Is(err, ErrInsufficientData) {
			t.Fatalf("expected ErrInsufficientData, got %v", err)
		}
	})
}
