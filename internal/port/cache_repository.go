package port

import (
	"context"
	"time"

	"github.com/rl1809/stockcanon/internal/core/domain"
)

type CacheRepository interface {
	// GetRate returns the cached rate, nil on miss
	GetRate(ctx context.Context, productID string) (*domain.ConversionRate, error)

	// SetRate caches a rate for ttl
	SetRate(ctx context.Context, productID string, rate domain.ConversionRate, ttl time.Duration) error

	// InvalidateRate drops a cached rate after it changes
	InvalidateRate(ctx context.Context, productID string) error

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency drops a key so a failed request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error

	// TryLock obtains a short-lived exclusive lock, returns a nil release func if already held
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}
