package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"goldtrack/internal/core"
	"goldtrack/internal/ledger/memory"
)

func TestPriceServiceDefaultFallback(t *testing.T) {
	svc := NewPriceService(memory.New(), decimal.NewFromInt(300))

	sample, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if !sample.Price.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected default price 300, got %s", sample.Price)
	}
}

func TestPriceServiceUpdate(t *testing.T) {
	store := memory.New()
	svc := NewPriceService(store, decimal.NewFromInt(300))
	ctx := context.Background()

	sample, err := svc.Update(ctx, "350.25")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !sample.Price.Equal(decimal.RequireFromString("350.25")) {
		t.Errorf("updated price: got %s want 350.25", sample.Price)
	}

	cur, err := svc.Current(ctx)
	if err != nil {
		t.Fatalf("current after update: %v", err)
	}
	if !cur.Price.Equal(decimal.RequireFromString("350.25")) {
		t.Errorf("current price: got %s want 350.25", cur.Price)
	}
}

func TestPriceServiceUpdateValidation(t *testing.T) {
	svc := NewPriceService(memory.New(), decimal.NewFromInt(300))
	ctx := context.Background()

	for _, raw := range []string{"", "abc", "0", "-5"} {
		if _, err := svc.Update(ctx, raw); !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("Update(%q): expected ErrInvalidInput, got %v", raw, err)
		}
	}
}

func TestPriceServiceHistoryLimit(t *testing.T) {
	store := memory.New()
	svc := NewPriceService(store, decimal.NewFromInt(300))
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := store.SetPrice(ctx, decimal.NewFromInt(int64(300+i)), base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("seed price: %v", err)
		}
	}

	samples, err := svc.History(ctx, 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if !samples[0].Price.Equal(decimal.NewFromInt(304)) {
		t.Errorf("expected newest sample first, got %s", samples[0].Price)
	}
}

func TestPriceServiceDailyChange(t *testing.T) {
	store := memory.New()
	svc := NewPriceService(store, decimal.NewFromInt(300))
	ctx := context.Background()

	if _, err := svc.DailyChange(ctx); !errors.Is(err, core.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData with no samples, got %v", err)
	}

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := store.SetPrice(ctx, decimal.NewFromInt(300), base); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.SetPrice(ctx, decimal.NewFromInt(330), base.Add(24*time.Hour)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	change, err := svc.DailyChange(ctx)
	if err != nil {
		t.Fatalf("daily change: %v", err)
	}
	if !change.Percent.Equal(decimal.NewFromInt(10)) {
		t.Errorf("percent: got %s want 10", change.Percent)
	}
	if !change.IsPositive {
		t.Error("expected positive change")
	}
}
