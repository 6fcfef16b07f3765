package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/stockcanon/internal/core/domain"
)

var ErrOptimisticLock = errors.New("optimistic lock conflict")

// canonicalLocationPattern matches the canonical slot form, case-sensitively.
const canonicalLocationPattern = `^[A-N][1-4]/([1-9]|1[0-9]|20)$`

var schema = []string{
	`CREATE TABLE IF NOT EXISTS conversion_rates (
		product_id  VARCHAR(64) PRIMARY KEY,
		level1_rate INT NOT NULL DEFAULT 0,
		level2_rate INT NOT NULL DEFAULT 0,
		updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS stock_records (
		id         CHAR(36) PRIMARY KEY,
		product_id VARCHAR(64) NOT NULL,
		location   VARCHAR(32) NOT NULL,
		level1_qty INT NOT NULL DEFAULT 0,
		level2_qty INT NOT NULL DEFAULT 0,
		level3_qty INT NOT NULL DEFAULT 0,
		version    INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_stock_product (product_id)
	)`,
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) GetConversionRate(ctx context.Context, productID string) (*domain.ConversionRate, error) {
	var rate domain.ConversionRate
	err := m.db.QueryRowContext(ctx, `
		SELECT level1_rate, level2_rate
		FROM conversion_rates WHERE product_id = ?`, productID,
	).Scan(&rate.Level1Rate, &rate.Level2Rate)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query conversion rate: %w", err)
	}
	return &rate, nil
}

func (m *MySQLAdapter) SaveConversionRate(ctx context.Context, productID string, rate domain.ConversionRate) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO conversion_rates (product_id, level1_rate, level2_rate)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE level1_rate = VALUES(level1_rate), level2_rate = VALUES(level2_rate)`,
		productID, rate.Level1Rate, rate.Level2Rate,
	)
	if err != nil {
		return fmt.Errorf("upsert conversion rate: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) CreateStock(ctx context.Context, record domain.StockRecord) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO stock_records (id, product_id, location, level1_qty, level2_qty, level3_qty, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.ProductID, record.Location,
		record.Quantity.Level1, record.Quantity.Level2, record.Quantity.Level3,
		record.Version, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock: %w", err)
	}
	return nil
}

const stockColumns = `id, product_id, location, level1_qty, level2_qty, level3_qty, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStock(row rowScanner) (domain.StockRecord, error) {
	var r domain.StockRecord
	err := row.Scan(&r.ID, &r.ProductID, &r.Location,
		&r.Quantity.Level1, &r.Quantity.Level2, &r.Quantity.Level3,
		&r.Version, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (m *MySQLAdapter) GetStock(ctx context.Context, id string) (*domain.StockRecord, error) {
	r, err := scanStock(m.db.QueryRowContext(ctx,
		`SELECT `+stockColumns+` FROM stock_records WHERE id = ?`, id))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	return &r, nil
}

func (m *MySQLAdapter) ListStockByProduct(ctx context.Context, productID string) ([]domain.StockRecord, error) {
	return m.queryStock(ctx,
		`SELECT `+stockColumns+` FROM stock_records WHERE product_id = ? ORDER BY created_at`, productID)
}

func (m *MySQLAdapter) ListNonCanonicalLocations(ctx context.Context, afterID string, limit int) ([]domain.StockRecord, error) {
	return m.queryStock(ctx,
		`SELECT `+stockColumns+` FROM stock_records
		WHERE id > ? AND NOT REGEXP_LIKE(location, ?, 'c')
		ORDER BY id LIMIT ?`, afterID, canonicalLocationPattern, limit)
}

func (m *MySQLAdapter) queryStock(ctx context.Context, query string, args ...any) ([]domain.StockRecord, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	var records []domain.StockRecord
	for rows.Next() {
		r, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock: %w", err)
	}
	return records, nil
}

func (m *MySQLAdapter) RelabelLocation(ctx context.Context, id, from, to string) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE stock_records
		SET location = ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND location = ?`,
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("relabel location: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrOptimisticLock
	}
	return nil
}
