package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/napzon/napzon-shop/internal/access"
	"github.com/napzon/napzon-shop/internal/storage"
)

// StatsService отдаёт сводки для дашборда продавца; только чтение
type StatsService interface {
	Dashboard(ctx context.Context, actor access.Actor) (*storage.SellerStats, error)
	SalesByCategory(ctx context.Context, actor access.Actor) ([]*storage.CategorySales, error)
}

type statsService struct {
	log       *slog.Logger
	statsRepo storage.StatsStorage
}

func NewStatsService(log *slog.Logger, statsRepo storage.StatsStorage) StatsService {
	return &statsService{log: log, statsRepo: statsRepo}
}

func (s *statsService) Dashboard(ctx context.Context, actor access.Actor) (*storage.SellerStats, error) {
	const op = "service.StatsService.Dashboard"

	if err := access.Authorize(actor, access.OpStatsView, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stats, err := s.statsRepo.SellerStats(ctx, actor.ID)
	if err != nil {
		s.log.Error("failed to load seller stats", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}

func (s *statsService) SalesByCategory(ctx context.Context, actor access.Actor) ([]*storage.CategorySales, error) {
	const op = "service.StatsService.SalesByCategory"

	if err := access.Authorize(actor, access.OpStatsView, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sales, err := s.statsRepo.SalesByCategory(ctx, actor.ID)
	if err != nil {
		s.log.Error("failed to load category sales", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sales, nil
}
