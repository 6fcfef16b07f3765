package port

import (
	"context"

	"github.com/rl1809/stockcanon/internal/core/domain"
)

type DatabaseRepository interface {
	// GetConversionRate returns nil when the product has no rate row
	GetConversionRate(ctx context.Context, productID string) (*domain.ConversionRate, error)

	// SaveConversionRate inserts or replaces the product's rate row
	SaveConversionRate(ctx context.Context, productID string, rate domain.ConversionRate) error

	// CreateStock persists a new stock record
	CreateStock(ctx context.Context, record domain.StockRecord) error

	// GetStock retrieves a stock record by ID, nil when missing
	GetStock(ctx context.Context, id string) (*domain.StockRecord, error)

	// ListStockByProduct returns every stock record of a product
	ListStockByProduct(ctx context.Context, productID string) ([]domain.StockRecord, error)

	// ListNonCanonicalLocations returns up to limit records whose location is not in canonical form,
	// ordered by ID and starting strictly after afterID ("" starts from the beginning)
	ListNonCanonicalLocations(ctx context.Context, afterID string, limit int) ([]domain.StockRecord, error)

	// RelabelLocation rewrites a record's location only if it still equals from
	RelabelLocation(ctx context.Context, id, from, to string) error
}
