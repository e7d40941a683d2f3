package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"goldtrack/internal/amqp"
	"goldtrack/internal/cache"
	"goldtrack/internal/core"
	"goldtrack/internal/ledger"
)

const (
	aggregateCacheSize = 256
	aggregateCacheTTL  = 30 * time.Second
)

// CalculationService orchestrates calculation operations across the local
// store, the aggregate cache, and the AMQP sync queue.
type CalculationService struct {
	writer ledger.CalculationWriter
	lister ledger.CalculationLister
	prices *PriceService

	amqpClient *amqp.Client

	aggregates *cache.LRUCache[core.AggregateResult]
	cacheMgr   *cache.Manager

	// Per-agent cache generation; bumped on every write so stale
	// aggregate entries become unreachable and age out of the LRU.
	genMu       sync.Mutex
	generations map[string]uint64
}

func NewCalculationService(writer ledger.CalculationWriter, lister ledger.CalculationLister, prices *PriceService, amqpClient *amqp.Client) *CalculationService {
	s := &CalculationService{
		writer:      writer,
		lister:      lister,
		prices:      prices,
		amqpClient:  amqpClient,
		aggregates:  cache.NewLRUCache[core.AggregateResult](aggregateCacheSize, aggregateCacheTTL),
		cacheMgr:    cache.NewManager(),
		generations: make(map[string]uint64),
	}
	s.cacheMgr.Register(s.aggregates)
	s.cacheMgr.StartCleanup(aggregateCacheTTL)
	return s
}

// CreateCalculation validates the raw inputs, prices the weight, saves the
// result locally and publishes a sync message for ledger export. A missing
// price falls back to the current unit price.
func (s *CalculationService) CreateCalculation(ctx context.Context, agentID, weight, price string) (core.Calculation, error) {
	if agentID == "" {
		return core.Calculation{}, core.ErrUnauthenticated
	}

	w, err := core.ValidateMeasurement(weight, "Weight")
	if err != nil {
		return core.Calculation{}, err
	}

	var p decimal.Decimal
	if price != "" {
		p, err = core.ValidateMeasurement(price, "Price")
		if err != nil {
			return core.Calculation{}, err
		}
	} else {
		sample, err := s.prices.Current(ctx)
		if err != nil {
			return core.Calculation{}, fmt.Errorf("resolve current price: %w", err)
		}
		p = sample.Price
	}

	calc, err := core.Compute(w, p, agentID, time.Now())
	if err != nil {
		return core.Calculation{}, err
	}

	// Save locally first (fast, reliable)
	ref, err := s.writer.Append(ctx, calc)
	if err != nil {
		return core.Calculation{}, fmt.Errorf("save calculation: %w", err)
	}

	s.bumpGeneration(agentID)

	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		// Memory and sheet refs are not numeric; nothing to enqueue.
		slog.DebugContext(ctx, "Non-numeric calculation ref, skipping sync message", "ref", ref)
		return calc, nil
	}
	calc.ID = id

	// Publish async sync message (non-blocking, version 1 for new rows)
	if err := s.publishSyncMessage(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
		// Don't fail the request - calculation is saved locally
	}

	return calc, nil
}

// History returns the agent's calculations inside the (normalized) range
// together with windowed and all-time totals. Results are cached briefly.
func (s *CalculationService) History(ctx context.Context, agentID string, start, end *time.Time) (core.AggregateResult, error) {
	if agentID == "" {
		return core.AggregateResult{}, core.ErrUnauthenticated
	}

	r := core.NormalizeRange(start, end, time.Now())

	key := s.cacheKey(agentID, r)
	if result, ok := s.aggregates.Get(key); ok {
		return result, nil
	}

	calcs, err := s.lister.ListCalculations(ctx, agentID)
	if err != nil {
		return core.AggregateResult{}, fmt.Errorf("list calculations: %w", err)
	}

	result, err := core.Aggregate(agentID, calcs, r)
	if err != nil {
		return core.AggregateResult{}, err
	}

	s.aggregates.Set(key, result)
	return result, nil
}

func (s *CalculationService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}

	return s.amqpClient.PublishCalculationSync(ctx, id, version)
}

func (s *CalculationService) cacheKey(agentID string, r core.DateRange) string {
	s.genMu.Lock()
	gen := s.generations[agentID]
	s.genMu.Unlock()

	return fmt.Sprintf("%s:%d:%d:%d", agentID, gen, r.Start.UnixNano(), r.End.UnixNano())
}

func (s *CalculationService) bumpGeneration(agentID string) {
	s.genMu.Lock()
	s.generations[agentID]++
	s.genMu.Unlock()
}

// Close stops the cache sweep and closes the AMQP connection if one is
// configured.
func (s *CalculationService) Close() error {
	var errs []error

	s.cacheMgr.Stop()

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close calculation service: %v", errs)
	}

	return nil
}
