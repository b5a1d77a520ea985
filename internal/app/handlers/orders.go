package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/napzon/napzon-shop/internal/domain/models"
	"github.com/napzon/napzon-shop/internal/jwt-new/jwtmiddleware"
	"github.com/napzon/napzon-shop/internal/service"
	"github.com/napzon/napzon-shop/internal/storage"
)

// SetStatusRequest — тело PATCH /api/orders/{id}/status
type SetStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// CheckoutRequest — тело POST /api/checkout
type CheckoutRequest struct {
	Lines []service.OrderLine `json:"lines" validate:"required,min=1,dive"`
}

type CheckoutResponse struct {
	OrderID int64 `json:"order_id"`
}

// ListOrdersHandler обрабатывает GET /api/orders?status=&date=&search=
// Все фильтры необязательны и объединяются по AND
func ListOrdersHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		filter := storage.OrderFilter{
			Status: models.OrderStatus(r.URL.Query().Get("status")),
			Date:   r.URL.Query().Get("date"),
			Search: r.URL.Query().Get("search"),
		}
		result, err := orders.ListOrders(r.Context(), actor, filter)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		// При отсутствии заказов отдаём пустой список, а не null.
		if result == nil {
			result = []*models.OrderSummary{}
		}
		writeJSON(w, logger, http.StatusOK, result)
	}
}

// SetStatusHandler обрабатывает PATCH /api/orders/{id}/status
func SetStatusHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SetStatusHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		var req SetStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		if err := orders.SetStatus(r.Context(), actor, orderID, models.OrderStatus(req.Status)); err != nil {
			logger.Warn("status update failed", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"message": "order status updated"})
	}
}

// CheckoutHandler обрабатывает POST /api/checkout — покупка покупателем
func CheckoutHandler(log *slog.Logger, orders service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		orderID, err := orders.PlaceOrder(r.Context(), actor, req.Lines)
		if err != nil {
			logger.Warn("checkout failed", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, CheckoutResponse{OrderID: orderID})
	}
}
