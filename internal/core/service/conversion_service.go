package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/stockcanon/internal/core/domain"
	"github.com/rl1809/stockcanon/internal/port"
)

// ConversionService resolves per-product rates through the cache and the
// store, then applies the quantity arithmetic.
type ConversionService struct {
	db     port.DatabaseRepository
	cache  port.CacheRepository
	ttl    time.Duration
	logger *logrus.Logger
}

func NewConversionService(db port.DatabaseRepository, cache port.CacheRepository, ttl time.Duration, logger *logrus.Logger) *ConversionService {
	return &ConversionService{db: db, cache: cache, ttl: ttl, logger: logger}
}

func (s *ConversionService) Rate(ctx context.Context, productID string) (domain.ConversionRate, error) {
	log := s.logger.WithFields(logrus.Fields{"module": "conversion", "product_id": productID})

	cached, err := s.cache.GetRate(ctx, productID)
	if err != nil {
		log.WithError(err).Warn("rate cache read failed")
	} else if cached != nil {
		return *cached, nil
	}

	rate, err := s.db.GetConversionRate(ctx, productID)
	if err != nil {
		return domain.ConversionRate{}, fmt.Errorf("load rate: %w", err)
	}
	if rate == nil {
		return domain.ConversionRate{}, fmt.Errorf("%w: %s", ErrRateNotFound, productID)
	}

	if err := s.cache.SetRate(ctx, productID, *rate, s.ttl); err != nil {
		log.WithError(err).Warn("rate cache write failed")
	}
	return *rate, nil
}

func (s *ConversionService) SaveRate(ctx context.Context, productID string, rate domain.ConversionRate) error {
	if err := rate.Validate(); err != nil {
		return err
	}
	if err := s.db.SaveConversionRate(ctx, productID, rate); err != nil {
		return fmt.Errorf("save rate: %w", err)
	}
	if err := s.cache.InvalidateRate(ctx, productID); err != nil {
		s.logger.WithFields(logrus.Fields{"module": "conversion", "product_id": productID}).
			WithError(err).Warn("rate cache invalidate failed")
	}
	return nil
}

// ToFlatUnits converts q with the product's rate. A non-nil fallback fills
// rates the product lacks, including a product with no rate at all.
func (s *ConversionService) ToFlatUnits(ctx context.Context, productID string, q domain.QuantityTriple, fallback *domain.ConversionRate) (int, error) {
	rate, err := s.Rate(ctx, productID)
	if err != nil && (fallback == nil || !errors.Is(err, ErrRateNotFound)) {
		return 0, err
	}
	if fallback != nil {
		rate = rate.Or(*fallback)
	}
	return domain.ToFlatUnits(q, rate)
}

func (s *ConversionService) ToTriple(ctx context.Context, productID string, flatUnits int) (domain.QuantityTriple, error) {
	rate, err := s.Rate(ctx, productID)
	if err != nil {
		return domain.QuantityTriple{}, err
	}
	return domain.ToTriple(flatUnits, rate)
}

// Reduce returns the minimal triple for q under the product's rate.
func (s *ConversionService) Reduce(ctx context.Context, productID string, q domain.QuantityTriple) (domain.QuantityTriple, int, error) {
	rate, err := s.Rate(ctx, productID)
	if err != nil {
		return domain.QuantityTriple{}, 0, err
	}
	flat, err := domain.ToFlatUnits(q, rate)
	if err != nil {
		return domain.QuantityTriple{}, 0, err
	}
	reduced, err := domain.ToTriple(flat, rate)
	if err != nil {
		return domain.QuantityTriple{}, 0, err
	}
	return reduced, flat, nil
}
