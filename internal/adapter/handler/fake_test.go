package handler

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/stockcanon/internal/core/domain"
	"github.com/rl1809/stockcanon/internal/core/service"
)

// fakeStore backs both ports in memory.
type fakeStore struct {
	mu    sync.Mutex
	rates map[string]domain.ConversionRate
	stock map[string]domain.StockRecord
	keys  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rates: map[string]domain.ConversionRate{"sku-1": {Level1Rate: 24, Level2Rate: 12}},
		stock: make(map[string]domain.StockRecord),
		keys:  make(map[string]bool),
	}
}

func (f *fakeStore) GetConversionRate(ctx context.Context, productID string) (*domain.ConversionRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rate, ok := f.rates[productID]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

func (f *fakeStore) SaveConversionRate(ctx context.Context, productID string, rate domain.ConversionRate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[productID] = rate
	return nil
}

func (f *fakeStore) CreateStock(ctx context.Context, record domain.StockRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[record.ID] = record
	return nil
}

func (f *fakeStore) GetStock(ctx context.Context, id string) (*domain.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.stock[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeStore) ListStockByProduct(ctx context.Context, productID string) ([]domain.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.StockRecord
	for _, r := range f.stock {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListNonCanonicalLocations(ctx context.Context, afterID string, limit int) ([]domain.StockRecord, error) {
	return nil, nil
}

func (f *fakeStore) RelabelLocation(ctx context.Context, id, from, to string) error {
	return nil
}

// cache side: always a miss, so every lookup reaches the rate map
func (f *fakeStore) GetRate(ctx context.Context, productID string) (*domain.ConversionRate, error) {
	return nil, nil
}

func (f *fakeStore) SetRate(ctx context.Context, productID string, rate domain.ConversionRate, ttl time.Duration) error {
	return nil
}

func (f *fakeStore) InvalidateRate(ctx context.Context, productID string) error {
	return nil
}

func (f *fakeStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) ReleaseIdempotency(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

func (f *fakeStore) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

func newTestServices() (*service.ConversionService, *service.StockService, *fakeStore) {
	store := newFakeStore()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	conv := service.NewConversionService(store, store, time.Minute, logger)
	return conv, service.NewStockService(store, store, conv), store
}
