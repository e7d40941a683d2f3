package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"goldtrack/internal/core"
)

// ErrNoPrice is returned by PriceStore implementations before any unit
// price has been set.
var ErrNoPrice = errors.New("no price set")

// Ports for outbound adapters.
type (
	CalculationWriter interface {
		Append(ctx context.Context, c core.Calculation) (rowRef string, err error)
	}

	// CalculationLister returns an agent's stored calculations, newest first.
	CalculationLister interface {
		ListCalculations(ctx context.Context, agentID string) ([]core.Calculation, error)
	}

	// PriceStore manages the current unit price and its sample history.
	PriceStore interface {
		// CurrentPrice returns the latest unit price and when it was set.
		CurrentPrice(ctx context.Context) (core.PriceSample, error)
		// SetPrice replaces the current unit price and records a sample.
		SetPrice(ctx context.Context, price decimal.Decimal, at time.Time) error
		// PriceHistory returns up to limit samples, newest first.
		PriceHistory(ctx context.Context, limit int) ([]core.PriceSample, error)
	}
)
