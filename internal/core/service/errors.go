package service

import "errors"

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrRateNotFound     = errors.New("conversion rate not found")
	ErrStockNotFound    = errors.New("stock record not found")
	ErrInvalidLocation  = errors.New("invalid location")
	ErrScanInProgress   = errors.New("relabel scan already running")
)
