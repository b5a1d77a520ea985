package handlers

import (
	"log/slog"
	"net/http"

	"github.com/napzon/napzon-shop/internal/jwt-new/jwtmiddleware"
	"github.com/napzon/napzon-shop/internal/service"
)

// DashboardHandler обрабатывает GET /api/stats/dashboard
func DashboardHandler(log *slog.Logger, stats service.StatsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DashboardHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := stats.Dashboard(r.Context(), actor)
		if err != nil {
			logger.Error("failed to load dashboard", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, result)
	}
}

// CategorySalesHandler обрабатывает GET /api/stats/categories
func CategorySalesHandler(log *slog.Logger, stats service.StatsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CategorySalesHandler"
		logger := log.With(slog.String("op", op))

		actor, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := stats.SalesByCategory(r.Context(), actor)
		if err != nil {
			logger.Error("failed to load category sales", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, result)
	}
}
