package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/minishop/commerce-services/internal/inventory/dto"
	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/product"
	productrepo "github.com/minishop/commerce-services/internal/product/repository"
)

const movementColumns = `movement_id, product_id, movement_type, quantity_change, quantity_before, quantity_after, created_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindProduct(ctx context.Context, productID int64) (*model.Product, error) {
	return productrepo.GetProduct(ctx, r.DB, productID)
}

func (r *PGRepository) AdjustStock(ctx context.Context, productID int64, delta int, movementType string) (*model.Product, *model.StockMovement, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	// 1. Conditional update: the sufficiency check and the write are one statement
	res, err := tx.ExecContext(ctx, tx.Rebind(`
        UPDATE products
        SET stock_quantity = stock_quantity + ?, updated_at = ?
        WHERE product_id = ? AND stock_quantity + ? >= 0
    `), delta, now, productID, delta)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update stock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, nil, err
	}

	p, err := productrepo.GetProduct(ctx, tx, productID)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, product.ErrNotFound
	}
	if n == 0 {
		return nil, nil, &product.InsufficientStockError{
			ProductName: p.Name,
			Available:   p.StockQuantity,
			Requested:   -delta,
		}
	}

	// 2. Log Movement
	m := &model.StockMovement{
		ProductID:      productID,
		MovementType:   movementType,
		QuantityChange: delta,
		QuantityBefore: p.StockQuantity - delta,
		QuantityAfter:  p.StockQuantity,
		CreatedAt:      now,
	}
	query, args, err := sqlx.Named(`
        INSERT INTO stock_movements (product_id, movement_type, quantity_change, quantity_before, quantity_after, created_at)
        VALUES (:product_id, :movement_type, :quantity_change, :quantity_before, :quantity_after, :created_at)
        RETURNING movement_id
    `, m)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.GetContext(ctx, &m.MovementID, tx.Rebind(query), args...); err != nil {
		return nil, nil, fmt.Errorf("failed to log movement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return p, m, nil
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE product_id = ? ORDER BY movement_id DESC`
	args := []interface{}{f.ProductID}
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Skip)
	}

	items := make([]model.StockMovement, 0)
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return items, nil
}
