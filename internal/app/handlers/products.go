package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/napzon/napzon-shop/internal/jwt-new/jwtmiddleware"
	"github.com/napzon/napzon-shop/internal/service"
	"github.com/napzon/napzon-shop/internal/upload"
)

const maxProductForm = 8 << 20 // форма с изображением до 5MB + поля

// productInputFromForm собирает поля товара из multipart-формы;
// валидация значений остаётся за сервисом
func productInputFromForm(r *http.Request) service.ProductInput {
	return service.ProductInput{
		Name:        r.FormValue("name"),
		Brand:       r.FormValue("brand"),
		Category:    r.FormValue("category"),
		Price:       r.FormValue("price"),
		Stock:       r.FormValue("stock"),
		Description: r.FormValue("description"),
		Sizes:       r.Form["sizes"],
		Colors:      r.Form["colors"],
		Featured:    r.FormValue("featured") == "1" || r.FormValue("featured") == "true",
	}
}

// uploadFromForm извлекает файл "image" и прогоняет его через хранилище
// изображений. Отсутствие файла — не ошибка на этом уровне: create без
// изображения отклонит сервис, update сохранит прежнюю ссылку
func uploadFromForm(r *http.Request, images *upload.Store) service.ImageUpload {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return service.ImageUpload{}
		}
		return service.ImageUpload{Err: upload.ErrIO}
	}
	defer file.Close()

	ref, err := images.Save(header.Filename, header.Size, file)
	if err != nil {
		return service.ImageUpload{Err: err}
	}
	return service.ImageUpload{Ref: ref}
}

// CreateProductHandler обрабатывает POST /api/products (multipart-форма)
func CreateProductHandler(log *slog.Logger, catalog service.CatalogService, images *upload.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProductHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := r.ParseMultipartForm(maxProductForm); err != nil {
			logger.Error("failed to parse form", slog.Any("error", err))
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		image := uploadFromForm(r, images)
		product, err := catalog.CreateProduct(r.Context(), actor, productInputFromForm(r), image)
		if err != nil {
			// отклонённый запрос не должен оставлять файл на диске
			if rmErr := images.Remove(image.Ref); rmErr != nil {
				logger.Error("failed to remove rejected upload", slog.Any("error", rmErr))
			}
			logger.Warn("create product failed", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, product)
	}
}

// UpdateProductHandler обрабатывает PUT /api/products/{id} (multipart-форма)
func UpdateProductHandler(log *slog.Logger, catalog service.CatalogService, images *upload.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProductHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}
		if err := r.ParseMultipartForm(maxProductForm); err != nil {
			logger.Error("failed to parse form", slog.Any("error", err))
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		image := uploadFromForm(r, images)
		if err := catalog.UpdateProduct(r.Context(), actor, productID, productInputFromForm(r), image); err != nil {
			// отклонённый запрос не должен оставлять файл на диске
			if rmErr := images.Remove(image.Ref); rmErr != nil {
				logger.Error("failed to remove rejected upload", slog.Any("error", rmErr))
			}
			logger.Warn("update product failed", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"message": "product updated"})
	}
}

// DeleteProductHandler обрабатывает DELETE /api/products/{id}
func DeleteProductHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteProductHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		if err := catalog.DeleteProduct(r.Context(), actor, productID); err != nil {
			logger.Warn("delete product failed", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"message": "product deleted"})
	}
}

// ListProductsHandler обрабатывает GET /api/products — каталог продавца, новые сверху
func ListProductsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		products, err := catalog.ListProducts(r.Context(), actor)
		if err != nil {
			logger.Error("failed to list products", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, products)
	}
}

// ShopProductsHandler обрабатывает GET /api/shop/products?q= — витрина покупателя
func ShopProductsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ShopProductsHandler"
		logger := log.With(slog.String("op", op))

		products, err := catalog.SearchProducts(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			logger.Error("failed to search products", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, products)
	}
}

// FeaturedProductsHandler обрабатывает GET /api/shop/featured
func FeaturedProductsHandler(log *slog.Logger, catalog service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.FeaturedProductsHandler"
		logger := log.With(slog.String("op", op))

		products, err := catalog.FeaturedProducts(r.Context())
		if err != nil {
			logger.Error("failed to load featured products", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, products)
	}
}
