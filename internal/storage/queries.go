package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the minimal database surface the query layer needs,
// satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// CalculationRow mirrors the calculations table.
type CalculationRow struct {
	ID             int64
	AgentID        string
	WeightGrams    string
	UnitPrice      string
	RawUnits       string
	Pounds         int64
	Blades         int64
	Matches        int64
	TotalMatches   int64
	EffectiveUnits string
	TotalValue     string
	Version        int64
	SyncStatus     string
	CreatedAt      time.Time
}

// PendingSyncRow carries the minimal fields a sync queue message needs.
type PendingSyncRow struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// CurrentPriceRow mirrors the single-row current_price table.
type CurrentPriceRow struct {
	Price     string
	UpdatedAt time.Time
}

// PriceSampleRow mirrors the price_samples table.
type PriceSampleRow struct {
	ID         int64
	Price      string
	RecordedAt time.Time
}

type CreateCalculationParams struct {
	AgentID        string
	WeightGrams    string
	UnitPrice      string
	RawUnits       string
	Pounds         int64
	Blades         int64
	Matches        int64
	TotalMatches   int64
	EffectiveUnits string
	TotalValue     string
	CreatedAt      time.Time
}

const createCalculation = `
INSERT INTO calculations (
    agent_id, weight_grams, unit_price, raw_units,
    pounds, blades, matches, total_matches,
    effective_units, total_value, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, agent_id, weight_grams, unit_price, raw_units,
    pounds, blades, matches, total_matches,
    effective_units, total_value, version, sync_status, created_at`

func (q *Queries) CreateCalculation(ctx context.Context, arg CreateCalculationParams) (CalculationRow, error) {
	row := q.db.QueryRowContext(ctx, createCalculation,
		arg.AgentID, arg.WeightGrams, arg.UnitPrice, arg.RawUnits,
		arg.Pounds, arg.Blades, arg.Matches, arg.TotalMatches,
		arg.EffectiveUnits, arg.TotalValue, arg.CreatedAt,
	)
	return scanCalculation(row)
}

const getCalculation = `
SELECT id, agent_id, weight_grams, unit_price, raw_units,
    pounds, blades, matches, total_matches,
    effective_units, total_value, version, sync_status, created_at
FROM calculations
WHERE id = ?`

func (q *Queries) GetCalculation(ctx context.Context, id int64) (CalculationRow, error) {
	return scanCalculation(q.db.QueryRowContext(ctx, getCalculation, id))
}

const listCalculationsByAgent = `
SELECT id, agent_id, weight_grams, unit_price, raw_units,
    pounds, blades, matches, total_matches,
    effective_units, total_value, version, sync_status, created_at
FROM calculations
WHERE agent_id = ?
ORDER BY created_at DESC, id DESC`

func (q *Queries) ListCalculationsByAgent(ctx context.Context, agentID string) ([]CalculationRow, error) {
	rows, err := q.db.QueryContext(ctx, listCalculationsByAgent, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CalculationRow
	for rows.Next() {
		c, err := scanCalculationRows(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getPendingSyncCalculations = `
SELECT id, version, created_at
FROM calculations
WHERE sync_status = 'pending'
ORDER BY created_at ASC, id ASC
LIMIT ?`

func (q *Queries) GetPendingSyncCalculations(ctx context.Context, limit int64) ([]PendingSyncRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncCalculations, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PendingSyncRow
	for rows.Next() {
		var p PendingSyncRow
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const markCalculationSynced = `
UPDATE calculations SET sync_status = 'synced' WHERE id = ?`

func (q *Queries) MarkCalculationSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markCalculationSynced, id)
	return err
}

const markCalculationSyncError = `
UPDATE calculations SET sync_status = 'error' WHERE id = ?`

func (q *Queries) MarkCalculationSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markCalculationSyncError, id)
	return err
}

const upsertCurrentPrice = `
INSERT INTO current_price (id, price, updated_at)
VALUES (1, ?, ?)
ON CONFLICT (id) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at`

func (q *Queries) UpsertCurrentPrice(ctx context.Context, price string, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, upsertCurrentPrice, price, updatedAt)
	return err
}

const getCurrentPrice = `
SELECT price, updated_at FROM current_price WHERE id = 1`

func (q *Queries) GetCurrentPrice(ctx context.Context) (CurrentPriceRow, error) {
	var p CurrentPriceRow
	err := q.db.QueryRowContext(ctx, getCurrentPrice).Scan(&p.Price, &p.UpdatedAt)
	return p, err
}

const insertPriceSample = `
INSERT INTO price_samples (price, recorded_at) VALUES (?, ?)`

func (q *Queries) InsertPriceSample(ctx context.Context, price string, recordedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, insertPriceSample, price, recordedAt)
	return err
}

const listPriceSamples = `
SELECT id, price, recorded_at
FROM price_samples
ORDER BY recorded_at DESC, id DESC
LIMIT ?`

func (q *Queries) ListPriceSamples(ctx context.Context, limit int64) ([]PriceSampleRow, error) {
	rows, err := q.db.QueryContext(ctx, listPriceSamples, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PriceSampleRow
	for rows.Next() {
		var s PriceSampleRow
		if err := rows.Scan(&s.ID, &s.Price, &s.RecordedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row *sql.Row) (CalculationRow, error) {
	return scanCalculationRows(row)
}

func scanCalculationRows(s rowScanner) (CalculationRow, error) {
	var c CalculationRow
	err := s.Scan(
		&c.ID, &c.AgentID, &c.WeightGrams, &c.UnitPrice, &c.RawUnits,
		&c.Pounds, &c.Blades, &c.Matches, &c.TotalMatches,
		&c.EffectiveUnits, &c.TotalValue, &c.Version, &c.SyncStatus, &c.CreatedAt,
	)
	return c, err
}
