package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/napzon/napzon-shop/internal/service"
)

// RegisterRequest представляет структуру запроса регистрации с тегами валидации
type RegisterRequest struct {
	FullName        string `json:"full_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	Role            string `json:"role" validate:"required,oneof=buyer seller"`
	BusinessName    string `json:"business_name,omitempty"`
	BusinessAddress string `json:"business_address,omitempty"`
	ShippingAddress string `json:"shipping_address,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
}

// AuthRequest представляет структуру запроса для аутентификации
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse представляет структуру ответа с JWT-токеном
type AuthResponse struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

var validate = validator.New()

// RegisterHandler – HTTP-обработчик регистрации; пользователь и профиль
// создаются сервисом в одной транзакции
func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		err := authService.Register(r.Context(), service.RegisterRequest{
			FullName:        req.FullName,
			Email:           req.Email,
			Password:        req.Password,
			Role:            req.Role,
			BusinessName:    req.BusinessName,
			BusinessAddress: req.BusinessAddress,
			ShippingAddress: req.ShippingAddress,
			PhoneNumber:     req.PhoneNumber,
		})
		if err != nil {
			logger.Warn("registration failed", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, map[string]string{"message": "registration successful"})
	}
}

// AuthHandler – HTTP-обработчик для аутентификации
func AuthHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AuthHandler"
		logger := log.With(slog.String("op", op))

		var req AuthRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		token, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			logger.Error("login failed", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, AuthResponse{Token: token})
	}
}

// ForgotPasswordHandler выдаёт одноразовый токен сброса; доставка письма —
// забота внешнего коллаборатора
func ForgotPasswordHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ForgotPasswordHandler"
		logger := log.With(slog.String("op", op))

		var req ForgotPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		token, err := authService.RequestPasswordReset(r.Context(), req.Email)
		if err != nil {
			logger.Warn("reset request failed", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"reset_token": token})
	}
}

func ResetPasswordHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ResetPasswordHandler"
		logger := log.With(slog.String("op", op))

		var req ResetPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		if err := authService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
			logger.Warn("password reset failed", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"message": "password has been reset"})
	}
}
