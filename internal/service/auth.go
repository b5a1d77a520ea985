package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/napzon/napzon-shop/internal/domain/models"
	security "github.com/napzon/napzon-shop/internal/jwt-new"
	"github.com/napzon/napzon-shop/internal/storage"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const resetTokenTTL = time.Hour

type AuthServiceInterface interface {
	Register(ctx context.Context, req RegisterRequest) error
	Login(ctx context.Context, email, password string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, password string) error
}

// RegisterRequest — данные регистрации; для продавца дополнительно название
// и адрес бизнеса, для покупателя — адрес доставки и телефон
type RegisterRequest struct {
	FullName        string
	Email           string
	Password        string
	Role            string
	BusinessName    string
	BusinessAddress string
	ShippingAddress string
	PhoneNumber     string
}

type AuthService struct {
	log      *slog.Logger
	db       *sql.DB
	userRepo storage.UserStorage
	tokenTTL time.Duration
}

func NewAuthService(log *slog.Logger, db *sql.DB, userRepo storage.UserStorage, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log,
		db:       db,
		userRepo: userRepo,
		tokenTTL: tokenTTL,
	}
}

// Register создаёт пользователя и его профиль одной транзакцией:
// пользователь без профиля (или наоборот) в базе появиться не может.
// Для роли seller действует инвариант "в системе ровно один продавец" —
// подсчёт существующих продавцов выполняется внутри той же транзакции
func (a *AuthService) Register(ctx context.Context, req RegisterRequest) error {
	const op = "auth.Register"
	logger := a.log.With(slog.String("op", op), slog.String("email", req.Email))
	logger.Info("registering user", slog.String("role", req.Role))

	if req.Role != models.RoleBuyer && req.Role != models.RoleSeller {
		return fmt.Errorf("%s: %w: unknown role %q", op, ErrValidation, req.Role)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	if req.Role == models.RoleSeller {
		count, err := a.userRepo.CountSellersTx(ctx, tx)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			return fmt.Errorf("%s: failed to count sellers: %w", op, err)
		}
		if count > 0 {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Warn("second seller registration rejected")
			return fmt.Errorf("%s: %w", op, storage.ErrSellerExists)
		}
	}

	user, err := a.userRepo.CreateUserTx(ctx, tx, &models.User{
		FullName: req.FullName,
		Email:    req.Email,
		PassHash: passHash,
		Role:     req.Role,
	})
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create user", slog.Any("error", err))
		return fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	// профиль по роли, в той же единице работы
	if req.Role == models.RoleSeller {
		businessName := req.BusinessName
		if businessName == "" {
			businessName = req.FullName + "'s Store"
		}
		err = a.userRepo.CreateSellerProfileTx(ctx, tx, &models.SellerProfile{
			UserID:          user.ID,
			BusinessName:    businessName,
			BusinessAddress: req.BusinessAddress,
		})
	} else {
		err = a.userRepo.CreateBuyerProfileTx(ctx, tx, &models.BuyerProfile{
			UserID:          user.ID,
			ShippingAddress: req.ShippingAddress,
			PhoneNumber:     req.PhoneNumber,
		})
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create profile", slog.Any("error", err))
		return fmt.Errorf("%s: failed to create profile: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("user registered", slog.Int64("userID", user.ID))
	return nil
}

// Login проверяет пароль и выдаёт JWT с ролью пользователя
func (a *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "auth.Login"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, nil
}

// RequestPasswordReset сохраняет одноразовый токен с часовым сроком жизни.
// Доставка письма — забота внешнего коллаборатора, сервис возвращает токен наружу
func (a *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	const op = "auth.RequestPasswordReset"
	logger := a.log.With(slog.String("op", op), slog.String("email", email))

	token := uuid.NewString()
	if err := a.userRepo.SetResetToken(ctx, email, token, time.Now().Add(resetTokenTTL)); err != nil {
		logger.Warn("failed to set reset token", slog.Any("error", err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("reset token issued")
	return token, nil
}

// ResetPassword меняет пароль по действующему токену; протухший или
// неизвестный токен отклоняется на уровне хранилища
func (a *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	const op = "auth.ResetPassword"
	logger := a.log.With(slog.String("op", op))

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("%s: failed to hash password: %w", op, err)
	}
	if err := a.userRepo.UpdatePasswordByToken(ctx, token, passHash); err != nil {
		logger.Warn("password reset rejected", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("password reset completed")
	return nil
}
