package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"goldtrack/internal/core"
	"goldtrack/internal/ledger"
)

// Store is an in-memory ledger used by the memory backend and in tests.
type Store struct {
	mu      sync.Mutex
	items   []core.Calculation
	price   core.PriceSample
	samples []core.PriceSample
	nextID  int64
}

func New() *Store {
	return &Store{nextID: 1}
}

// NewWithPrice seeds the store with an initial unit price.
func NewWithPrice(price decimal.Decimal, at time.Time) *Store {
	s := New()
	s.price = core.PriceSample{Price: price, Timestamp: at}
	s.samples = []core.PriceSample{s.price}
	return s
}

// Append stores the calculation and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, c core.Calculation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID
	s.nextID++
	s.items = append(s.items, c)
	return fmt.Sprintf("mem:%d", c.ID), nil
}

// ListCalculations returns an agent's calculations, newest first.
func (s *Store) ListCalculations(_ context.Context, agentID string) ([]core.Calculation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Calculation
	for _, c := range s.items {
		if c.AgentID == agentID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// CurrentPrice returns the latest unit price.
func (s *Store) CurrentPrice(_ context.Context) (core.PriceSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.price.Price.IsZero() {
		return core.PriceSample{}, ledger.ErrNoPrice
	}
	return s.price, nil
}

// SetPrice replaces the current price and records a sample.
func (s *Store) SetPrice(_ context.Context, price decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price = core.PriceSample{Price: price, Timestamp: at}
	s.samples = append(s.samples, s.price)
	return nil
}

// PriceHistory returns up to limit samples, newest first.
func (s *Store) PriceHistory(_ context.Context, limit int) ([]core.PriceSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.PriceSample(nil), s.samples...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
