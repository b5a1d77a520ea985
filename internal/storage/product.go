package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/napzon/napzon-shop/internal/domain/models"
)

// ErrProductNotFound намеренно не различает "товара нет" и "товар не ваш",
// чтобы не раскрывать чужому продавцу факт существования строки
var ErrProductNotFound = errors.New("product not found or not owned by seller")

var ErrInsufficientStock = errors.New("not enough stock")

// ProductStorage описывает методы для работы с таблицей товаров.
// Все мутации фильтруются составным условием (id, seller_id): проверка владения
// и запись выполняются одним запросом, без окна между чтением и изменением
type ProductStorage interface {
	CreateProduct(ctx context.Context, p *models.Product) (int64, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, productID, sellerID int64) error
	ListBySeller(ctx context.Context, sellerID int64) ([]*models.Product, error)
	Search(ctx context.Context, query string) ([]*models.Product, error)
	Featured(ctx context.Context) ([]*models.Product, error)
	GetProductTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
	DecrementStockTx(ctx context.Context, tx *sql.Tx, productID int64, qty int) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

const productColumns = "id, seller_id, name, brand, category, price_cents, stock, description, sizes, colors, image_url, featured, created_at, updated_at"

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	p := &models.Product{}
	var sizes, colors string
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Brand, &p.Category, &p.PriceCents,
		&p.Stock, &p.Description, &sizes, &colors, &p.ImageURL, &p.Featured, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Sizes = models.SplitList(sizes)
	p.Colors = models.SplitList(colors)
	return p, nil
}

func (r *productRepository) CreateProduct(ctx context.Context, p *models.Product) (int64, error) {
	var id int64
	query := `INSERT INTO products (seller_id, name, brand, category, price_cents, stock, description, sizes, colors, image_url, featured, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()) RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		p.SellerID, p.Name, p.Brand, p.Category, p.PriceCents, p.Stock, p.Description,
		models.JoinList(p.Sizes), models.JoinList(p.Colors), p.ImageURL, p.Featured,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}
	return id, nil
}

// UpdateProduct обновляет товар только при совпадении владельца.
// Пустой ImageURL означает "новое изображение не загружали" — прежняя ссылка сохраняется
func (r *productRepository) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `UPDATE products
	          SET name = $1, brand = $2, category = $3, price_cents = $4, stock = $5,
	              description = $6, sizes = $7, colors = $8, featured = $9,
	              image_url = COALESCE(NULLIF($10, ''), image_url),
	              updated_at = NOW()
	          WHERE id = $11 AND seller_id = $12`
	res, err := r.db.ExecContext(ctx, query,
		p.Name, p.Brand, p.Category, p.PriceCents, p.Stock, p.Description,
		models.JoinList(p.Sizes), models.JoinList(p.Colors), p.Featured, p.ImageURL,
		p.ID, p.SellerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct — жёсткое удаление, только своей строки
func (r *productRepository) DeleteProduct(ctx context.Context, productID, sellerID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1 AND seller_id = $2", productID, sellerID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) ListBySeller(ctx context.Context, sellerID int64) ([]*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE seller_id = $1 ORDER BY created_at DESC"
	return r.queryProducts(ctx, query, sellerID)
}

// Search — витрина покупателя, поиск по названию, бренду и категории
func (r *productRepository) Search(ctx context.Context, query string) ([]*models.Product, error) {
	q := "SELECT " + productColumns + ` FROM products
	     WHERE name ILIKE $1 OR brand ILIKE $1 OR category ILIKE $1
	     ORDER BY created_at DESC LIMIT 12`
	return r.queryProducts(ctx, q, "%"+query+"%")
}

func (r *productRepository) Featured(ctx context.Context) ([]*models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE featured = TRUE ORDER BY created_at DESC LIMIT 8"
	return r.queryProducts(ctx, query)
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProductTx читает товар внутри транзакции оформления заказа,
// чтобы снапшот имени и цены попал в позицию из того же снимка данных
func (r *productRepository) GetProductTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// DecrementStockTx списывает остаток одним запросом с условием stock >= qty
func (r *productRepository) DecrementStockTx(ctx context.Context, tx *sql.Tx, productID int64, qty int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2 AND stock >= $1",
		qty, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}
