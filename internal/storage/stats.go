package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SellerStats — сводка для дашборда продавца; выручка считается по снапшотам
// цен в позициях, а не по текущим ценам каталога
type SellerStats struct {
	TotalProducts   int   `json:"total_products"`
	TotalOrders     int   `json:"total_orders"`
	ActiveCustomers int   `json:"active_customers"`
	RevenueCents    int64 `json:"revenue_cents"`
}

// CategorySales — продажи по категории товаров продавца
type CategorySales struct {
	Category     string `json:"category"`
	OrderCount   int    `json:"order_count"`
	ItemsSold    int    `json:"items_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

// StatsStorage — read-only агрегации; ошибок консистентности тут быть не может,
// все суммы выводятся из order_items
type StatsStorage interface {
	SellerStats(ctx context.Context, sellerID int64) (*SellerStats, error)
	SalesByCategory(ctx context.Context, sellerID int64) ([]*CategorySales, error)
}

type statsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) StatsStorage {
	return &statsRepository{db: db}
}

func (r *statsRepository) SellerStats(ctx context.Context, sellerID int64) (*SellerStats, error) {
	stats := &SellerStats{}

	row := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE seller_id = $1", sellerID)
	if err := row.Scan(&stats.TotalProducts); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	// LEFT JOIN: позиции удалённых товаров (product_id IS NULL) остаются
	// в выручке — снапшот цены переживает товар, а продавец в системе один
	query := `
		SELECT COUNT(DISTINCT o.id),
		       COUNT(DISTINCT o.buyer_id),
		       COALESCE(SUM(oi.quantity * oi.unit_price_cents), 0)
		FROM orders o
		JOIN order_items oi ON o.id = oi.order_id
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE p.seller_id = $1 OR oi.product_id IS NULL`
	row = r.db.QueryRowContext(ctx, query, sellerID)
	if err := row.Scan(&stats.TotalOrders, &stats.ActiveCustomers, &stats.RevenueCents); err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}
	return stats, nil
}

func (r *statsRepository) SalesByCategory(ctx context.Context, sellerID int64) ([]*CategorySales, error) {
	query := `
		SELECT p.category,
		       COUNT(DISTINCT o.id) AS order_count,
		       SUM(oi.quantity) AS items_sold,
		       SUM(oi.quantity * oi.unit_price_cents) AS revenue_cents
		FROM orders o
		JOIN order_items oi ON o.id = oi.order_id
		JOIN products p ON oi.product_id = p.id
		WHERE p.seller_id = $1
		GROUP BY p.category
		ORDER BY revenue_cents DESC`
	rows, err := r.db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query category sales: %w", err)
	}
	defer rows.Close()

	var sales []*CategorySales
	for rows.Next() {
		cs := &CategorySales{}
		if err := rows.Scan(&cs.Category, &cs.OrderCount, &cs.ItemsSold, &cs.RevenueCents); err != nil {
			return nil, err
		}
		sales = append(sales, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}
