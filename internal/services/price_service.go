package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"goldtrack/internal/core"
	"goldtrack/internal/ledger"
)

const defaultHistoryLimit = 100

// PriceService manages the current unit price and its sample history.
type PriceService struct {
	prices       ledger.PriceStore
	defaultPrice decimal.Decimal
}

func NewPriceService(prices ledger.PriceStore, defaultPrice decimal.Decimal) *PriceService {
	return &PriceService{
		prices:       prices,
		defaultPrice: defaultPrice,
	}
}

// Current returns the latest unit price. Before any price has been set
// the configured default is returned.
func (s *PriceService) Current(ctx context.Context) (core.PriceSample, error) {
	sample, err := s.prices.CurrentPrice(ctx)
	if err != nil {
		if errors.Is(err, ledger.ErrNoPrice) {
			slog.DebugContext(ctx, "No stored price, using default",
				"default", s.defaultPrice.String())
			return core.PriceSample{Price: s.defaultPrice, Timestamp: time.Time{}}, nil
		}
		return core.PriceSample{}, fmt.Errorf("current price: %w", err)
	}
	return sample, nil
}

// Update validates and stores a new unit price.
func (s *PriceService) Update(ctx context.Context, price string) (core.PriceSample, error) {
	p, err := core.ValidateMeasurement(price, "Price")
	if err != nil {
		return core.PriceSample{}, err
	}

	now := time.Now()
	if err := s.prices.SetPrice(ctx, p, now); err != nil {
		return core.PriceSample{}, fmt.Errorf("set price: %w", err)
	}

	return core.PriceSample{Price: p, Timestamp: now}, nil
}

// History returns up to limit samples, newest first. A non-positive limit
// falls back to the default.
func (s *PriceService) History(ctx context.Context, limit int) ([]core.PriceSample, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	samples, err := s.prices.PriceHistory(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	return samples, nil
}

// DailyChange computes the movement between the two most recent samples.
func (s *PriceService) DailyChange(ctx context.Context) (core.PriceChange, error) {
	samples, err := s.prices.PriceHistory(ctx, 2)
	if err != nil {
		return core.PriceChange{}, fmt.Errorf("price history: %w", err)
	}
	return core.DailyChange(samples)
}
