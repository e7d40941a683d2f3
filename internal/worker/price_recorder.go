package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"goldtrack/internal/ledger"
	"goldtrack/internal/storage"
)

// PriceRecorder periodically snapshots the current unit price into the
// sample history, so day-over-day change can be computed even when the
// price is not being actively updated.
type PriceRecorder struct {
	storage  *storage.SQLiteRepository
	interval time.Duration
}

func NewPriceRecorder(storage *storage.SQLiteRepository, interval time.Duration) *PriceRecorder {
	return &PriceRecorder{
		storage:  storage,
		interval: interval,
	}
}

// Run records snapshots until the context is cancelled. An initial snapshot
// is taken immediately.
func (r *PriceRecorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.recordOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial price snapshot failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Price recorder stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := r.recordOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "Price snapshot failed", "error", err)
			}
		}
	}
}

func (r *PriceRecorder) recordOnce(ctx context.Context) error {
	sample, err := r.storage.CurrentPrice(ctx)
	if err != nil {
		if errors.Is(err, ledger.ErrNoPrice) {
			slog.DebugContext(ctx, "No price set yet, skipping snapshot")
			return nil
		}
		return fmt.Errorf("read current price: %w", err)
	}

	if err := r.storage.RecordPriceSample(ctx, sample.Price, time.Now()); err != nil {
		return fmt.Errorf("record price sample: %w", err)
	}

	slog.InfoContext(ctx, "Recorded price snapshot", "price", sample.Price.String())
	return nil
}
