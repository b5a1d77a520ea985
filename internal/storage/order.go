package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/napzon/napzon-shop/internal/domain/models"
)

// ErrOrderNotFound — заказ не существует, уже в терминальном статусе
// или не содержит товаров действующего продавца; снаружи это неразличимо
var ErrOrderNotFound = errors.New("order not found or not related to seller")

// OrderFilter — необязательные фильтры списка заказов, условия объединяются по AND.
// Date — календарная дата в формате YYYY-MM-DD
type OrderFilter struct {
	Status models.OrderStatus
	Date   string
	Search string
}

// OrderStorage описывает методы для работы с заказами и их позициями.
type OrderStorage interface {
	CreateOrderTx(ctx context.Context, tx *sql.Tx, buyerID int64) (int64, error)
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error
	ListOrders(ctx context.Context, filter OrderFilter) ([]*models.OrderSummary, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error)
	SetStatusScoped(ctx context.Context, orderID int64, status models.OrderStatus, sellerID int64) error
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, buyerID int64) (int64, error) {
	var id int64
	query := `INSERT INTO orders (buyer_id, status, created_at, updated_at)
	          VALUES ($1, $2, NOW(), NOW()) RETURNING id`
	if err := tx.QueryRowContext(ctx, query, buyerID, models.StatusPending).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return id, nil
}

// CreateOrderItemTx пишет позицию со снапшотом имени и цены на момент покупки
func (r *orderRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	query := `INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price_cents)
	          VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.ExecContext(ctx, query, item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.UnitPriceCents)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

// ListOrders возвращает заказы новее-сначала со сводкой позиций и суммой.
// Сумма всегда пересчитывается из позиций: SUM(quantity * unit_price_cents),
// отдельной хранимой суммы нет и расходиться нечему
func (r *orderRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]*models.OrderSummary, error) {
	query := `
		SELECT o.id, o.buyer_id, u.full_name, u.email, o.status,
		       STRING_AGG(oi.product_name || ' (' || oi.quantity || ')', ', ' ORDER BY oi.id) AS products,
		       SUM(oi.quantity * oi.unit_price_cents) AS total_cents,
		       o.created_at, o.updated_at
		FROM orders o
		JOIN users u ON o.buyer_id = u.id
		JOIN order_items oi ON o.id = oi.order_id`

	var conditions []string
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, "o.status = $"+strconv.Itoa(len(args)))
	}
	if filter.Date != "" {
		args = append(args, filter.Date)
		conditions = append(conditions, "DATE(o.created_at) = $"+strconv.Itoa(len(args))+"::date")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		pattern := strconv.Itoa(len(args))
		args = append(args, filter.Search)
		literal := strconv.Itoa(len(args))
		conditions = append(conditions,
			"(u.full_name ILIKE $"+pattern+" OR u.email ILIKE $"+pattern+" OR o.id::text = $"+literal+")")
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " GROUP BY o.id, u.full_name, u.email ORDER BY o.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.OrderSummary
	for rows.Next() {
		o := &models.OrderSummary{}
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.BuyerName, &o.BuyerEmail, &o.Status,
			&o.Products, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) GetOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	query := `SELECT id, order_id, product_id, product_name, quantity, unit_price_cents
	          FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SetStatusScoped меняет статус и updated_at одним запросом. Фильтр требует,
// чтобы заказ был нетерминальным и содержал хотя бы один товар действующего
// продавца, — проверка доступа и запись не разнесены во времени
func (r *orderRepository) SetStatusScoped(ctx context.Context, orderID int64, status models.OrderStatus, sellerID int64) error {
	query := `UPDATE orders SET status = $1, updated_at = NOW()
	          WHERE id = $2
	            AND status NOT IN ('delivered', 'cancelled')
	            AND EXISTS (
	                SELECT 1 FROM order_items oi
	                JOIN products p ON oi.product_id = p.id
	                WHERE oi.order_id = orders.id AND p.seller_id = $3
	            )`
	res, err := r.db.ExecContext(ctx, query, string(status), orderID, sellerID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
