package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/stockcanon/internal/core/domain"
	"github.com/rl1809/stockcanon/internal/port"
)

type StockInput struct {
	ProductID string
	Location  string
	Quantity  domain.QuantityTriple
}

type StockService struct {
	db         port.DatabaseRepository
	cache      port.CacheRepository
	conversion *ConversionService
}

func NewStockService(db port.DatabaseRepository, cache port.CacheRepository, conversion *ConversionService) *StockService {
	return &StockService{db: db, cache: cache, conversion: conversion}
}

// RecordStock stores a stock count at a canonical location with its quantity
// reduced to the minimal triple. requestID makes retries safe.
func (s *StockService) RecordStock(ctx context.Context, requestID string, in StockInput) (*domain.StockRecord, error) {
	location, err := domain.NormalizeLocationStrict(in.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	if err := in.Quantity.Validate(); err != nil {
		return nil, err
	}

	quantity, _, err := s.conversion.Reduce(ctx, in.ProductID, in.Quantity)
	if err != nil {
		return nil, err
	}

	key := "stock:" + requestID
	ok, err := s.cache.SetIdempotency(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return nil, ErrDuplicateRequest
	}

	now := time.Now()
	record := domain.StockRecord{
		ID:        uuid.NewString(),
		ProductID: in.ProductID,
		Location:  location,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.CreateStock(ctx, record); err != nil {
		if relErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); relErr != nil {
			return nil, fmt.Errorf("create stock: %w (release idempotency key: %v)", err, relErr)
		}
		return nil, fmt.Errorf("create stock: %w", err)
	}
	return &record, nil
}

// IsLowStock compares a record's flat-unit total against threshold.
func (s *StockService) IsLowStock(ctx context.Context, recordID string, threshold int) (bool, int, error) {
	if threshold < 0 {
		return false, 0, fmt.Errorf("%w: negative threshold %d", domain.ErrRange, threshold)
	}
	record, err := s.db.GetStock(ctx, recordID)
	if err != nil {
		return false, 0, fmt.Errorf("get stock: %w", err)
	}
	if record == nil {
		return false, 0, fmt.Errorf("%w: %s", ErrStockNotFound, recordID)
	}

	flat, err := s.conversion.ToFlatUnits(ctx, record.ProductID, record.Quantity, nil)
	if err != nil {
		return false, 0, err
	}
	return flat < threshold, flat, nil
}

// ProductTotal sums every record of a product and returns the minimal triple
// alongside the flat-unit total.
func (s *StockService) ProductTotal(ctx context.Context, productID string) (domain.QuantityTriple, int, error) {
	records, err := s.db.ListStockByProduct(ctx, productID)
	if err != nil {
		return domain.QuantityTriple{}, 0, fmt.Errorf("list stock: %w", err)
	}

	var sum domain.QuantityTriple
	for _, r := range records {
		sum = sum.Add(r.Quantity)
	}
	return s.conversion.Reduce(ctx, productID, sum)
}
