package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/order/dto"
)

const (
	orderColumns = `order_id, user_id, order_date, status, total_amount, shipping_address, created_at, updated_at`
	itemColumns  = `order_item_id, order_id, product_id, quantity, price_at_purchase, item_total, created_at, updated_at`
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func (r *PGRepository) Create(ctx context.Context, o *model.Order) (*model.Order, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if o.OrderDate.IsZero() {
		o.OrderDate = now
	}
	o.CreatedAt, o.UpdatedAt = now, now

	// 1. Insert Order
	query, args, err := sqlx.Named(`
        INSERT INTO orders (user_id, order_date, status, total_amount, shipping_address, created_at, updated_at)
        VALUES (:user_id, :order_date, :status, :total_amount, :shipping_address, :created_at, :updated_at)
        RETURNING order_id
    `, o)
	if err != nil {
		return nil, err
	}
	if err := tx.GetContext(ctx, &o.OrderID, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	// 2. Insert Items
	for i := range o.Items {
		item := &o.Items[i]
		item.OrderID = o.OrderID
		item.CreatedAt, item.UpdatedAt = now, now

		query, args, err := sqlx.Named(`
            INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase, item_total, created_at, updated_at)
            VALUES (:order_id, :product_id, :quantity, :price_at_purchase, :item_total, :created_at, :updated_at)
            RETURNING order_item_id
        `, item)
		if err != nil {
			return nil, err
		}
		if err := tx.GetContext(ctx, &item.OrderItemID, tx.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	created, err := getOrder(ctx, tx, o.OrderID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	return getOrder(ctx, r.DB, id)
}

func getOrder(ctx context.Context, q queryer, id int64) (*model.Order, error) {
	var o model.Order
	query := q.Rebind(`SELECT ` + orderColumns + ` FROM orders WHERE order_id = ?`)
	if err := sqlx.GetContext(ctx, q, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	items := make([]model.OrderItem, 0)
	query = q.Rebind(`SELECT ` + itemColumns + ` FROM order_items WHERE order_id = ? ORDER BY order_item_id`)
	if err := sqlx.SelectContext(ctx, q, &items, query, id); err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, error) {
	var conditions []string
	var args []interface{}

	if f.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY order_id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Skip)
	}

	orders := make([]model.Order, 0)
	if err := r.DB.SelectContext(ctx, &orders, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of every order with a single IN query.
func (r *PGRepository) attachItems(ctx context.Context, orders []model.Order) error {
	ids := make([]int64, len(orders))
	byID := make(map[int64]*model.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].OrderID
		orders[i].Items = make([]model.OrderItem, 0)
		byID[orders[i].OrderID] = &orders[i]
	}

	query, args, err := sqlx.In(`SELECT `+itemColumns+` FROM order_items WHERE order_id IN (?) ORDER BY order_item_id`, ids)
	if err != nil {
		return err
	}

	var items []model.OrderItem
	if err := r.DB.SelectContext(ctx, &items, r.DB.Rebind(query), args...); err != nil {
		return err
	}
	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id int64, status string) (*model.Order, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE orders SET status = ?, updated_at = ? WHERE order_id = ?`),
		status, time.Now().UTC(), id)
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

	o, err := getOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM order_items WHERE order_id = ?`), id); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM orders WHERE order_id = ?`), id)
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
