package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/napzon/napzon-shop/internal/access"
	"github.com/napzon/napzon-shop/internal/domain/models"
	"github.com/napzon/napzon-shop/internal/storage"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrUploadFailed = errors.New("image upload failed")
)

// ProductInput — поля формы товара; цена и остаток приходят строками
// и валидируются здесь, некорректные значения отклоняются, а не приводятся к нулю
type ProductInput struct {
	Name        string
	Brand       string
	Category    string
	Price       string
	Stock       string
	Description string
	Sizes       []string
	Colors      []string
	Featured    bool
}

// ImageUpload — результат работы коллаборатора загрузки: либо ссылка,
// либо типизированная ошибка
type ImageUpload struct {
	Ref string
	Err error
}

type CatalogService interface {
	CreateProduct(ctx context.Context, actor access.Actor, input ProductInput, image ImageUpload) (*models.Product, error)
	UpdateProduct(ctx context.Context, actor access.Actor, productID int64, input ProductInput, image ImageUpload) error
	DeleteProduct(ctx context.Context, actor access.Actor, productID int64) error
	ListProducts(ctx context.Context, actor access.Actor) ([]*models.Product, error)
	SearchProducts(ctx context.Context, query string) ([]*models.Product, error)
	FeaturedProducts(ctx context.Context) ([]*models.Product, error)
}

type catalogService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage) CatalogService {
	return &catalogService{log: log, productRepo: productRepo}
}

// parsePriceCents разбирает неотрицательную десятичную цену (максимум два знака
// после точки) в центы без промежуточного float
func parsePriceCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: price must be a non-negative decimal", ErrValidation)
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: price must be a non-negative decimal", ErrValidation)
	}
	// units*100 не должно переполнить int64, иначе цена "завернётся"
	if units > (math.MaxInt64-99)/100 {
		return 0, fmt.Errorf("%w: price is too large", ErrValidation)
	}
	cents := units * 100
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("%w: price cannot have more than two decimal places", ErrValidation)
		}
		part, err := strconv.ParseInt(frac, 10, 64)
		if err != nil || part < 0 {
			return 0, fmt.Errorf("%w: price must be a non-negative decimal", ErrValidation)
		}
		if len(frac) == 1 {
			part *= 10
		}
		cents += part
	}
	return cents, nil
}

// validate проверяет обязательные поля и перечисления до любого обращения к базе
func (s *catalogService) validate(input ProductInput) (priceCents int64, stock int, err error) {
	required := map[string]string{
		"name":        input.Name,
		"brand":       input.Brand,
		"category":    input.Category,
		"price":       input.Price,
		"stock":       input.Stock,
		"description": input.Description,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return 0, 0, fmt.Errorf("%w: %s is required", ErrValidation, field)
		}
	}
	if !models.ValidCategory(input.Category) {
		return 0, 0, fmt.Errorf("%w: unknown category %q", ErrValidation, input.Category)
	}
	for _, size := range input.Sizes {
		if !models.ValidSize(size) {
			return 0, 0, fmt.Errorf("%w: size %q is out of range", ErrValidation, size)
		}
	}
	for _, color := range input.Colors {
		if !models.ValidColor(color) {
			return 0, 0, fmt.Errorf("%w: unknown color %q", ErrValidation, color)
		}
	}
	priceCents, err = parsePriceCents(input.Price)
	if err != nil {
		return 0, 0, err
	}
	stock, convErr := strconv.Atoi(strings.TrimSpace(input.Stock))
	if convErr != nil || stock < 0 {
		return 0, 0, fmt.Errorf("%w: stock must be a non-negative integer", ErrValidation)
	}
	return priceCents, stock, nil
}

// CreateProduct вставляет ровно одну строку каталога, принадлежащую продавцу.
// Любая ошибка загрузки изображения — жёсткий отказ всей операции, строка не пишется
func (s *catalogService) CreateProduct(ctx context.Context, actor access.Actor, input ProductInput, image ImageUpload) (*models.Product, error) {
	const op = "service.CatalogService.CreateProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("sellerID", actor.ID))

	if err := access.Authorize(actor, access.OpProductCreate, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	priceCents, stock, err := s.validate(input)
	if err != nil {
		logger.Warn("invalid product input", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if image.Err != nil {
		logger.Warn("image upload failed", slog.Any("error", image.Err))
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUploadFailed, image.Err)
	}
	if image.Ref == "" {
		logger.Warn("no image reference supplied")
		return nil, fmt.Errorf("%s: %w: no image reference", op, ErrUploadFailed)
	}

	product := &models.Product{
		SellerID:    actor.ID,
		Name:        strings.TrimSpace(input.Name),
		Brand:       strings.TrimSpace(input.Brand),
		Category:    input.Category,
		PriceCents:  priceCents,
		Stock:       stock,
		Description: strings.TrimSpace(input.Description),
		Sizes:       input.Sizes,
		Colors:      input.Colors,
		ImageURL:    image.Ref,
		Featured:    input.Featured,
	}
	id, err := s.productRepo.CreateProduct(ctx, product)
	if err != nil {
		logger.Error("failed to create product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	product.ID = id

	logger.Info("product created", slog.Int64("productID", id))
	return product, nil
}

// UpdateProduct применяет изменения одним запросом с фильтром (id, seller_id);
// новое изображение заменяет прежнее, без нового — прежняя ссылка сохраняется
func (s *catalogService) UpdateProduct(ctx context.Context, actor access.Actor, productID int64, input ProductInput, image ImageUpload) error {
	const op = "service.CatalogService.UpdateProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("sellerID", actor.ID), slog.Int64("productID", productID))

	if err := access.Authorize(actor, access.OpProductUpdate, 0); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	priceCents, stock, err := s.validate(input)
	if err != nil {
		logger.Warn("invalid product input", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	// Err без Ref означает, что пользователь пытался загрузить новое изображение
	// и загрузка не удалась, — операцию нельзя применять частично
	if image.Err != nil {
		logger.Warn("image upload failed", slog.Any("error", image.Err))
		return fmt.Errorf("%s: %w: %w", op, ErrUploadFailed, image.Err)
	}

	product := &models.Product{
		ID:          productID,
		SellerID:    actor.ID,
		Name:        strings.TrimSpace(input.Name),
		Brand:       strings.TrimSpace(input.Brand),
		Category:    input.Category,
		PriceCents:  priceCents,
		Stock:       stock,
		Description: strings.TrimSpace(input.Description),
		Sizes:       input.Sizes,
		Colors:      input.Colors,
		ImageURL:    image.Ref,
		Featured:    input.Featured,
	}
	if err := s.productRepo.UpdateProduct(ctx, product); err != nil {
		logger.Warn("failed to update product", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("product updated")
	return nil
}

// DeleteProduct — жёсткое удаление; отказ (а не тихое игнорирование),
// если строка не существует или принадлежит другому продавцу
func (s *catalogService) DeleteProduct(ctx context.Context, actor access.Actor, productID int64) error {
	const op = "service.CatalogService.DeleteProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("sellerID", actor.ID), slog.Int64("productID", productID))

	if err := access.Authorize(actor, access.OpProductDelete, 0); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.productRepo.DeleteProduct(ctx, productID, actor.ID); err != nil {
		logger.Warn("failed to delete product", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("product deleted")
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context, actor access.Actor) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProducts"

	if err := access.Authorize(actor, access.OpProductManage, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	products, err := s.productRepo.ListBySeller(ctx, actor.ID)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

// SearchProducts — витрина, доступна без роли продавца
func (s *catalogService) SearchProducts(ctx context.Context, query string) ([]*models.Product, error) {
	const op = "service.CatalogService.SearchProducts"
	products, err := s.productRepo.Search(ctx, query)
	if err != nil {
		s.log.Error("failed to search products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

func (s *catalogService) FeaturedProducts(ctx context.Context) ([]*models.Product, error) {
	const op = "service.CatalogService.FeaturedProducts"
	products, err := s.productRepo.Featured(ctx)
	if err != nil {
		s.log.Error("failed to load featured products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}
