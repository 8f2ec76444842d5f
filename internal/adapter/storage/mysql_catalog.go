package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rl1809/production-schedule/internal/core/domain"
	"github.com/rl1809/production-schedule/internal/port"
)

// MySQLCatalog reads products and their bill-of-parts from the products and
// product_parts tables.
type MySQLCatalog struct {
	db *sql.DB
}

var _ port.ProductCatalog = (*MySQLCatalog)(nil)

func NewMySQLCatalog(db *sql.DB) *MySQLCatalog {
	return &MySQLCatalog{db: db}
}

func (c *MySQLCatalog) GetProductWithParts(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := c.db.QueryRowContext(ctx, `SELECT id, name FROM products WHERE id = ?`, productID).Scan(&p.ID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT name, measurements, quantity
		FROM product_parts WHERE product_id = ?
		ORDER BY position, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("query product parts: %w", err)
	}
	defer rows.Close()

	p.Parts = []domain.Part{}
	for rows.Next() {
		var (
			part         domain.Part
			measurements sql.NullString
		)
		if err := rows.Scan(&part.Name, &measurements, &part.UnitQuantity); err != nil {
			return nil, fmt.Errorf("scan product part: %w", err)
		}
		if measurements.Valid {
			part.Measurements = &measurements.String
		}
		p.Parts = append(p.Parts, part)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product parts: %w", err)
	}
	return &p, nil
}

// SaveProduct upserts a product and replaces its parts. Product maintenance
// lives outside this service; this is used for seeding and tests.
func (c *MySQLCatalog) SaveProduct(ctx context.Context, p domain.Product) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, name) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), updated_at = NOW(6)`,
		p.ID, p.Name,
	)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_parts WHERE product_id = ?`, p.ID); err != nil {
		return fmt.Errorf("delete product parts: %w", err)
	}
	for i, part := range p.Parts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_parts (id, product_id, position, name, measurements, quantity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), p.ID, i, part.Name, nullString(part.Measurements), part.UnitQuantity,
		)
		if err != nil {
			return fmt.Errorf("insert product part: %w", err)
		}
	}

	return tx.Commit()
}
