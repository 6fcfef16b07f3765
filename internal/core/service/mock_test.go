package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/stockcanon/internal/core/domain"
)

// Mock DatabaseRepository
type mockDB struct {
	mu          sync.Mutex
	rates       map[string]domain.ConversionRate
	stock       map[string]domain.StockRecord
	rateReads   int
	relabeled   map[string]string
	failCreates int
}

func newMockDB() *mockDB {
	return &mockDB{
		rates:     make(map[string]domain.ConversionRate),
		stock:     make(map[string]domain.StockRecord),
		relabeled: make(map[string]string),
	}
}

func (m *mockDB) GetConversionRate(ctx context.Context, productID string) (*domain.ConversionRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateReads++
	rate, ok := m.rates[productID]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

func (m *mockDB) SaveConversionRate(ctx context.Context, productID string, rate domain.ConversionRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[productID] = rate
	return nil
}

func (m *mockDB) GetStock(ctx context.Context, id string) (*domain.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.stock[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *mockDB) ListStockByProduct(ctx context.Context, productID string) ([]domain.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StockRecord
	for _, r := range m.stock {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockDB) CreateStock(ctx context.Context, record domain.StockRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreates > 0 {
		m.failCreates--
		return errors.New("mysql down")
	}
	m.stock[record.ID] = record
	return nil
}

// ListNonCanonicalLocations mirrors the MySQL keyset query: ORDER BY id,
// id > afterID, LIMIT limit.
func (m *mockDB) ListNonCanonicalLocations(ctx context.Context, afterID string, limit int) ([]domain.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.stock))
	for id := range m.stock {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []domain.StockRecord
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		r := m.stock[id]
		if id > afterID && domain.CanonicalizeLocation(r.Location).Status != domain.LocationCanonical {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockDB) RelabelLocation(ctx context.Context, id, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.stock[id]
	if !ok || r.Location != from {
		return errors.New("stale location")
	}
	r.Location = to
	m.stock[id] = r
	m.relabeled[id] = to
	return nil
}

// Mock CacheRepository
type mockCache struct {
	mu             sync.Mutex
	rates          map[string]domain.ConversionRate
	idempotencySet map[string]bool
	locks          map[string]bool
	failReads      bool
}

func newMockCache() *mockCache {
	return &mockCache{
		rates:          make(map[string]domain.ConversionRate),
		idempotencySet: make(map[string]bool),
		locks:          make(map[string]bool),
	}
}

func (m *mockCache) GetRate(ctx context.Context, productID string) (*domain.ConversionRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errors.New("cache down")
	}
	rate, ok := m.rates[productID]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

func (m *mockCache) SetRate(ctx context.Context, productID string, rate domain.ConversionRate, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[productID] = rate
	return nil
}

func (m *mockCache) InvalidateRate(ctx context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rates, productID)
	return nil
}

func (m *mockCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCache) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	return nil
}

func (m *mockCache) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return nil, nil
	}
	m.locks[key] = true
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.locks, key)
		return nil
	}, nil
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
