package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/napzon/napzon-shop/internal/app"
	"github.com/napzon/napzon-shop/internal/app/handlers"
	"github.com/napzon/napzon-shop/internal/config"
	"github.com/napzon/napzon-shop/internal/jwt-new/jwtmiddleware"
	"github.com/napzon/napzon-shop/internal/lib/logger"
	"github.com/napzon/napzon-shop/internal/lib/logger/handlers/urllog"
	"github.com/napzon/napzon-shop/internal/service"
	"github.com/napzon/napzon-shop/internal/storage"
	"github.com/napzon/napzon-shop/internal/upload"
	"github.com/pkg/errors"
)

func main() {
	// .env опционален, продакшен задаёт переменные окружением
	_ = godotenv.Load()

	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	statsRepo := storage.NewStatsRepository(application.DB)

	imageStore := upload.NewStore(cfg.Uploads.Dir)

	authService := service.NewAuthService(application.Logger, application.DB, userRepo, time.Duration(application.Config.JWT.TokenTTL)*time.Minute)
	catalogService := service.NewCatalogService(application.Logger, productRepo)
	orderService := service.NewOrderService(application.Logger, application.DB, orderRepo, productRepo)
	statsService := service.NewStatsService(application.Logger, statsRepo)

	// открытые эндпоинты: регистрация, вход, восстановление пароля
	router.Post("/api/register", handlers.RegisterHandler(application.Logger, authService))
	router.Post("/api/auth", handlers.AuthHandler(application.Logger, authService))
	router.Post("/api/password/forgot", handlers.ForgotPasswordHandler(application.Logger, authService))
	router.Post("/api/password/reset", handlers.ResetPasswordHandler(application.Logger, authService))

	// витрина магазина доступна без токена
	router.Get("/api/shop/products", handlers.ShopProductsHandler(application.Logger, catalogService))
	router.Get("/api/shop/featured", handlers.FeaturedProductsHandler(application.Logger, catalogService))

	// отдача сохранённых изображений товаров
	router.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Uploads.Dir))))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)

		// каталог продавца
		r.Get("/api/products", handlers.ListProductsHandler(application.Logger, catalogService))
		r.Post("/api/products", handlers.CreateProductHandler(application.Logger, catalogService, imageStore))
		r.Put("/api/products/{id}", handlers.UpdateProductHandler(application.Logger, catalogService, imageStore))
		r.Delete("/api/products/{id}", handlers.DeleteProductHandler(application.Logger, catalogService))

		// заказы: просмотр и смена статуса у продавца, оформление у покупателя
		r.Get("/api/orders", handlers.ListOrdersHandler(application.Logger, orderService))
		r.Patch("/api/orders/{id}/status", handlers.SetStatusHandler(application.Logger, orderService))
		r.Post("/api/checkout", handlers.CheckoutHandler(application.Logger, orderService))

		// аналитика продавца
		r.Get("/api/stats/dashboard", handlers.DashboardHandler(application.Logger, statsService))
		r.Get("/api/stats/categories", handlers.CategorySalesHandler(application.Logger, statsService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
