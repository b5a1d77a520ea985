package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/napzon/napzon-shop/internal/access"
	"github.com/napzon/napzon-shop/internal/service"
	"github.com/napzon/napzon-shop/internal/storage"
)

// ErrorResponse — единый формат ошибки для клиента
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError переводит ошибки сервисного слоя в HTTP-статусы.
// Ошибки валидации и авторизации возникают до записи в базу, поэтому
// клиент всегда получает однозначный результат: либо успех, либо отказ
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, access.ErrWrongRole), errors.Is(err, access.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrUploadFailed),
		errors.Is(err, storage.ErrTokenInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrProductNotFound), errors.Is(err, storage.ErrOrderNotFound),
		errors.Is(err, storage.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrEmailTaken), errors.Is(err, storage.ErrSellerExists):
		status = http.StatusConflict
	case errors.Is(err, storage.ErrInsufficientStock):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Error("internal error", slog.Any("error", err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}

// writeJSON сериализует успешный ответ
func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}
