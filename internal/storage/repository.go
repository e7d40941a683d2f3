package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"goldtrack/internal/core"
	"goldtrack/internal/ledger"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the underlying database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append implements ledger.CalculationWriter
func (r *SQLiteRepository) Append(ctx context.Context, c core.Calculation) (string, error) {
	row, err := r.queries.CreateCalculation(ctx, CreateCalculationParams{
		AgentID:        c.AgentID,
		WeightGrams:    c.WeightGrams.String(),
		UnitPrice:      c.UnitPrice.String(),
		RawUnits:       c.RawUnits.String(),
		Pounds:         int64(c.Pounds),
		Blades:         int64(c.Blades),
		Matches:        int64(c.Matches),
		TotalMatches:   int64(c.TotalMatches),
		EffectiveUnits: c.EffectiveUnits.String(),
		TotalValue:     c.TotalValue.String(),
		CreatedAt:      c.Timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("create calculation: %w", err)
	}

	slog.InfoContext(ctx, "Calculation saved to SQLite",
		"id", row.ID,
		"agent_id", row.AgentID,
		"weight_grams", row.WeightGrams,
		"total_value", row.TotalValue)

	return strconv.FormatInt(row.ID, 10), nil
}

// GetCalculation retrieves a single calculation by ID.
func (r *SQLiteRepository) GetCalculation(ctx context.Context, id int64) (core.Calculation, error) {
	row, err := r.queries.GetCalculation(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Calculation{}, fmt.Errorf("calculation %d: %w", id, ErrNotFound)
		}
		return core.Calculation{}, fmt.Errorf("get calculation by id: %w", err)
	}
	return toCoreCalculation(row)
}

// ListCalculations implements ledger.CalculationLister, newest first.
func (r *SQLiteRepository) ListCalculations(ctx context.Context, agentID string) ([]core.Calculation, error) {
	rows, err := r.queries.ListCalculationsByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("list calculations by agent: %w", err)
	}

	calculations := make([]core.Calculation, len(rows))
	for i, row := range rows {
		c, err := toCoreCalculation(row)
		if err != nil {
			return nil, err
		}
		calculations[i] = c
	}
	return calculations, nil
}

// GetPendingSyncCalculations returns calculations that still need ledger export.
func (r *SQLiteRepository) GetPendingSyncCalculations(ctx context.Context, limit int) ([]PendingSyncCalculation, error) {
	rows, err := r.queries.GetPendingSyncCalculations(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync calculations: %w", err)
	}

	pending := make([]PendingSyncCalculation, len(rows))
	for i, row := range rows {
		pending[i] = PendingSyncCalculation{
			ID:        row.ID,
			Version:   row.Version,
			CreatedAt: row.CreatedAt,
		}
	}
	return pending, nil
}

// MarkSynced marks a calculation as successfully exported to the ledger.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkCalculationSynced(ctx, id); err != nil {
		return fmt.Errorf("mark calculation synced: %w", err)
	}

	slog.InfoContext(ctx, "Calculation marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a calculation as having export errors.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkCalculationSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark calculation sync error: %w", err)
	}

	slog.WarnContext(ctx, "Calculation marked with sync error", "id", id)
	return nil
}

// SetPrice implements ledger.PriceStore. The new price becomes current and
// is also appended to the sample history in the same transaction.
func (r *SQLiteRepository) SetPrice(ctx context.Context, price decimal.Decimal, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin price update: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.UpsertCurrentPrice(ctx, price.String(), at); err != nil {
		return fmt.Errorf("upsert current price: %w", err)
	}
	if err := q.InsertPriceSample(ctx, price.String(), at); err != nil {
		return fmt.Errorf("insert price sample: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit price update: %w", err)
	}

	slog.InfoContext(ctx, "Unit price updated", "price", price.String())
	return nil
}

// CurrentPrice implements ledger.PriceStore.
func (r *SQLiteRepository) CurrentPrice(ctx context.Context) (core.PriceSample, error) {
	row, err := r.queries.GetCurrentPrice(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.PriceSample{}, ledger.ErrNoPrice
		}
		return core.PriceSample{}, fmt.Errorf("get current price: %w", err)
	}

	price, err := decimal.NewFromString(row.Price)
	if err != nil {
		return core.PriceSample{}, fmt.Errorf("parse stored price %q: %w", row.Price, err)
	}
	return core.PriceSample{Price: price, Timestamp: row.UpdatedAt}, nil
}

// RecordPriceSample appends a snapshot of a price without changing the
// current price. Used by the periodic price recorder.
func (r *SQLiteRepository) RecordPriceSample(ctx context.Context, price decimal.Decimal, at time.Time) error {
	if err := r.queries.InsertPriceSample(ctx, price.String(), at); err != nil {
		return fmt.Errorf("insert price sample: %w", err)
	}
	return nil
}

// PriceHistory implements ledger.PriceStore, newest first.
func (r *SQLiteRepository) PriceHistory(ctx context.Context, limit int) ([]core.PriceSample, error) {
	rows, err := r.queries.ListPriceSamples(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list price samples: %w", err)
	}

	samples := make([]core.PriceSample, len(rows))
	for i, row := range rows {
		price, err := decimal.NewFromString(row.Price)
		if err != nil {
			return nil, fmt.Errorf("parse stored price %q: %w", row.Price, err)
		}
		samples[i] = core.PriceSample{Price: price, Timestamp: row.RecordedAt}
	}
	return samples, nil
}

// PendingSyncCalculation represents minimal data needed for sync queue messages
type PendingSyncCalculation struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

func toCoreCalculation(row CalculationRow) (core.Calculation, error) {
	weight, err := decimal.NewFromString(row.WeightGrams)
	if err != nil {
		return core.Calculation{}, fmt.Errorf("parse stored weight %q: %w", row.WeightGrams, err)
	}
	price, err := decimal.NewFromString(row.UnitPrice)
	if err != nil {
		return core.Calculation{}, fmt.Errorf("parse stored price %q: %w", row.UnitPrice, err)
	}
	rawUnits, err := decimal.NewFromString(row.RawUnits)
	if err != nil {
		return core.Calculation{}, fmt.Errorf("parse stored raw units %q: %w", row.RawUnits, err)
	}
	effective, err := decimal.NewFromString(row.EffectiveUnits)
	if err != nil {
		return core.Calculation{}, fmt.Errorf("parse stored effective units %q: %w", row.EffectiveUnits, err)
	}
	total, err := decimal.NewFromString(row.TotalValue)
	if err != nil {
		return core.Calculation{}, fmt.Errorf("parse stored total value %q: %w", row.TotalValue, err)
	}

	return core.Calculation{
		ID:             row.ID,
		WeightGrams:    weight,
		UnitPrice:      price,
		RawUnits:       rawUnits,
		Pounds:         int(row.Pounds),
		Blades:         int(row.Blades),
		Matches:        int(row.Matches),
		TotalMatches:   int(row.TotalMatches),
		EffectiveUnits: effective,
		TotalValue:     total,
		AgentID:        row.AgentID,
		Timestamp:      row.CreatedAt,
	}, nil
}
