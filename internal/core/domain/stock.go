package domain

import "time"

type StockRecord struct {
	ID        string
	ProductID string
	Location  string
	Quantity  QuantityTriple
	Version   int // optimistic locking
	CreatedAt time.Time
	UpdatedAt time.Time
}
