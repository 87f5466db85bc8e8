package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/product/dto"
)

// ProductColumns is the column list matching model.Product.
const ProductColumns = `product_id, name, description, price, stock_quantity, image_url, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	query, args, err := sqlx.Named(`
        INSERT INTO products (name, description, price, stock_quantity, image_url, created_at, updated_at)
        VALUES (:name, :description, :price, :stock_quantity, :image_url, :created_at, :updated_at)
        RETURNING product_id
    `, p)
	if err != nil {
		return nil, err
	}

	var id int64
	if err := r.DB.GetContext(ctx, &id, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	return GetProduct(ctx, r.DB, id)
}

// Queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type Queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// GetProduct loads one product through q; (nil, nil) when it does not exist.
func GetProduct(ctx context.Context, q Queryer, id int64) (*model.Product, error) {
	var p model.Product
	query := q.Rebind(`SELECT ` + ProductColumns + ` FROM products WHERE product_id = ?`)
	if err := sqlx.GetContext(ctx, q, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// likeEscaper makes search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, error) {
	query := `SELECT ` + ProductColumns + ` FROM products`
	var args []interface{}

	if f.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(f.Search)) + "%"
		query += ` WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern)
	}

	query += ` ORDER BY product_id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Skip)
	}

	products := make([]model.Product, 0)
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *PGRepository) Update(ctx context.Context, in *dto.UpdateProductInput) (*model.Product, error) {
	var sets []string
	var args []interface{}

	if in.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *in.Name)
	}
	if in.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *in.Description)
	}
	if in.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *in.Price)
	}
	if in.StockQuantity != nil {
		sets = append(sets, "stock_quantity = ?")
		args = append(args, *in.StockQuantity)
	}
	if in.ImageURL != nil {
		sets = append(sets, "image_url = ?")
		args = append(args, *in.ImageURL)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), in.ID)

	return r.updateAndFetch(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+` WHERE product_id = ?`, in.ID, args...)
}

func (r *PGRepository) SetImageURL(ctx context.Context, id int64, url string) (*model.Product, error) {
	return r.updateAndFetch(ctx, `UPDATE products SET image_url = ?, updated_at = ? WHERE product_id = ?`, id,
		url, time.Now().UTC(), id)
}

// updateAndFetch runs query and reads the row back in the same transaction.
func (r *PGRepository) updateAndFetch(ctx context.Context, query string, id int64, args ...interface{}) (*model.Product, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	p, err := GetProduct(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM stock_movements WHERE product_id = ?`), id); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM products WHERE product_id = ?`), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	return true, tx.Commit()
}
