package worker

import (
	"context"
	"fmt"
	"log/slog"

	"goldtrack/internal/amqp"
	"goldtrack/internal/core"
	"goldtrack/internal/ledger"
	"goldtrack/internal/storage"
)

// SyncWorker exports calculations from SQLite to the external ledger.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	ledger    ledger.CalculationWriter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, writer ledger.CalculationWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		ledger:    writer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single calculation sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.CalculationSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	calc, err := w.storage.GetCalculation(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get calculation from storage: %w", err)
	}

	if err := w.exportCalculation(ctx, msg.ID, calc); err != nil {
		return fmt.Errorf("export calculation to ledger: %w", err)
	}

	return nil
}

// ProcessPendingCalculations exports any calculations that haven't been
// synced yet. This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingCalculations(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncCalculations(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending calculations: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending calculations", "count", len(pending))

	for _, item := range pending {
		calc, err := w.storage.GetCalculation(ctx, item.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get calculation", "id", item.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, item.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", item.ID, "error", err)
			}
			continue
		}

		if err := w.exportCalculation(ctx, item.ID, calc); err != nil {
			slog.ErrorContext(ctx, "Failed to export calculation", "id", item.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck verifies and exports any pending calculations at worker
// startup. Recovers from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	// Get a larger batch for startup check
	pending, err := w.storage.GetPendingSyncCalculations(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending calculations for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending calculations found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending calculations on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, item := range pending {
		calc, err := w.storage.GetCalculation(ctx, item.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get calculation for startup sync",
				"id", item.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, item.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", item.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.exportCalculation(ctx, item.ID, calc); err != nil {
			slog.ErrorContext(ctx, "Failed to export calculation during startup",
				"id", item.ID, "error", err)
			errorCount++
			continue
		}

		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) exportCalculation(ctx context.Context, id int64, calc core.Calculation) error {
	ref, err := w.ledger.Append(ctx, calc)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
		// Don't return error here - the export actually worked
	}

	slog.InfoContext(ctx, "Successfully exported calculation",
		"id", id,
		"ledger_ref", ref,
		"agent_id", calc.AgentID,
		"total_value", calc.TotalValue.String())

	return nil
}
