package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/napzon/napzon-shop/internal/domain/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrSellerExists = errors.New("a seller account already exists")
	ErrTokenInvalid = errors.New("reset token is invalid or expired")
)

type UserStorage interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUserTx(ctx context.Context, tx *sql.Tx, user *models.User) (*models.User, error)
	CountSellersTx(ctx context.Context, tx *sql.Tx) (int, error)
	CreateSellerProfileTx(ctx context.Context, tx *sql.Tx, profile *models.SellerProfile) error
	CreateBuyerProfileTx(ctx context.Context, tx *sql.Tx, profile *models.BuyerProfile) error
	SetResetToken(ctx context.Context, email, token string, expiry time.Time) error
	UpdatePasswordByToken(ctx context.Context, token string, passHash []byte) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

// получение уже существующего пользователя
func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	row := r.db.QueryRowContext(ctx, "SELECT id, full_name, email, pass_hash, role FROM users WHERE email = $1", email)
	if err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.PassHash, &user.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	row := r.db.QueryRowContext(ctx, "SELECT id, full_name, email, pass_hash, role FROM users WHERE id = $1", id)
	if err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.PassHash, &user.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// CreateUserTx вставляет пользователя внутри транзакции регистрации.
// Частичный уникальный индекс users_single_seller страхует инвариант
// "ровно один продавец" на случай гонки двух регистраций
func (r *userRepository) CreateUserTx(ctx context.Context, tx *sql.Tx, user *models.User) (*models.User, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		"INSERT INTO users (full_name, email, pass_hash, role) VALUES ($1, $2, $3, $4) RETURNING id",
		user.FullName, user.Email, user.PassHash, user.Role,
	).Scan(&id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			if pqErr.Constraint == "users_single_seller" {
				return nil, ErrSellerExists
			}
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	user.ID = id
	return user, nil
}

// CountSellersTx считает продавцов внутри той же транзакции, что и вставка нового
// пользователя, — проверка инварианта не опирается на глобальный флаг
func (r *userRepository) CountSellersTx(ctx context.Context, tx *sql.Tx) (int, error) {
	var count int
	row := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role = $1", models.RoleSeller)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) CreateSellerProfileTx(ctx context.Context, tx *sql.Tx, profile *models.SellerProfile) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO seller_profiles (user_id, business_name, business_address) VALUES ($1, $2, $3)",
		profile.UserID, profile.BusinessName, profile.BusinessAddress,
	)
	return err
}

func (r *userRepository) CreateBuyerProfileTx(ctx context.Context, tx *sql.Tx, profile *models.BuyerProfile) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO buyer_profiles (user_id, shipping_address, phone_number) VALUES ($1, $2, $3)",
		profile.UserID, profile.ShippingAddress, profile.PhoneNumber,
	)
	return err
}

func (r *userRepository) SetResetToken(ctx context.Context, email, token string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET reset_token = $1, reset_token_expiry = $2 WHERE email = $3",
		token, expiry, email,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePasswordByToken меняет пароль одним запросом с составным фильтром
// (токен + срок действия) и сразу гасит токен
func (r *userRepository) UpdatePasswordByToken(ctx context.Context, token string, passHash []byte) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET pass_hash = $1, reset_token = NULL, reset_token_expiry = NULL WHERE reset_token = $2 AND reset_token_expiry > NOW()",
		passHash, token,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTokenInvalid
	}
	return nil
}
