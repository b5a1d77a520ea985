package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/napzon/napzon-shop/internal/access"
	"github.com/napzon/napzon-shop/internal/domain/models"
	"github.com/napzon/napzon-shop/internal/storage"
)

// OrderLine — позиция при оформлении заказа покупателем
type OrderLine struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type OrderService interface {
	ListOrders(ctx context.Context, actor access.Actor, filter storage.OrderFilter) ([]*models.OrderSummary, error)
	SetStatus(ctx context.Context, actor access.Actor, orderID int64, status models.OrderStatus) error
	PlaceOrder(ctx context.Context, actor access.Actor, lines []OrderLine) (int64, error)
}

type orderService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	productRepo storage.ProductStorage
}

func NewOrderService(log *slog.Logger, db *sql.DB, orderRepo storage.OrderStorage, productRepo storage.ProductStorage) OrderService {
	return &orderService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
	}
}

// ListOrders возвращает заказы со сводкой позиций и суммой, пересчитанной
// из позиций; ошибка чтения отдаётся с пустым списком, без паники
func (s *orderService) ListOrders(ctx context.Context, actor access.Actor, filter storage.OrderFilter) ([]*models.OrderSummary, error) {
	const op = "service.OrderService.ListOrders"

	if err := access.Authorize(actor, access.OpOrderManage, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%s: %w: unknown status %q", op, ErrValidation, filter.Status)
	}
	if filter.Date != "" {
		if _, err := time.Parse("2006-01-02", filter.Date); err != nil {
			return nil, fmt.Errorf("%s: %w: date must be YYYY-MM-DD", op, ErrValidation)
		}
	}

	orders, err := s.orderRepo.ListOrders(ctx, filter)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return orders, nil
}

// SetStatus переводит заказ в новый статус. Допустимы любые переходы между
// нетерминальными статусами, включая обратные; единственные ограничения —
// статус из перечисления, заказ нетерминален и содержит товар продавца.
// Проверка охвата и запись выполняются одним запросом в хранилище
func (s *orderService) SetStatus(ctx context.Context, actor access.Actor, orderID int64, status models.OrderStatus) error {
	const op = "service.OrderService.SetStatus"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", orderID), slog.String("status", string(status)))

	if err := access.Authorize(actor, access.OpOrderSetStatus, 0); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !status.Valid() {
		logger.Warn("invalid status value")
		return fmt.Errorf("%s: %w: unknown status %q", op, ErrValidation, status)
	}

	if err := s.orderRepo.SetStatusScoped(ctx, orderID, status, actor.ID); err != nil {
		logger.Warn("status update rejected", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("order status updated")
	return nil
}

// PlaceOrder оформляет покупку одной транзакцией: заказ, позиции со снапшотом
// имени и цены, списание остатков. Любой сбой откатывает всю единицу работы
func (s *orderService) PlaceOrder(ctx context.Context, actor access.Actor, lines []OrderLine) (int64, error) {
	const op = "service.OrderService.PlaceOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("buyerID", actor.ID))

	if err := access.Authorize(actor, access.OpCheckout, 0); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("%s: %w: order must contain at least one line", op, ErrValidation)
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return 0, fmt.Errorf("%s: %w: quantity must be positive", op, ErrValidation)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, actor.ID)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for _, line := range lines {
		product, err := s.productRepo.GetProductTx(ctx, tx, line.ProductID)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("product lookup failed", slog.Int64("productID", line.ProductID), slog.Any("error", err))
			return 0, fmt.Errorf("%s: %w", op, err)
		}

		if err := s.productRepo.DecrementStockTx(ctx, tx, product.ID, line.Quantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("stock decrement failed", slog.Int64("productID", product.ID), slog.Any("error", err))
			return 0, fmt.Errorf("%s: %w", op, err)
		}

		productID := product.ID
		item := &models.OrderItem{
			OrderID:        orderID,
			ProductID:      &productID,
			ProductName:    product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: product.PriceCents, // цена на момент покупки
		}
		if err := s.orderRepo.CreateOrderItemTx(ctx, tx, item); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to create order item", slog.Any("error", err))
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return 0, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("order placed", slog.Int64("orderID", orderID))
	return orderID, nil
}
