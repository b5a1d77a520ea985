package models

import "time"

// Роли пользователей; роль назначается при регистрации и больше не меняется
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// User представляет пользователя (покупателя или продавца)
type User struct {
	ID        int64
	FullName  string
	Email     string
	PassHash  []byte
	Role      string
	CreatedAt time.Time
}

// SellerProfile — профиль продавца, создаётся вместе с пользователем в одной транзакции
type SellerProfile struct {
	UserID          int64
	BusinessName    string
	BusinessAddress string
}

// BuyerProfile — профиль покупателя
type BuyerProfile struct {
	UserID          int64
	ShippingAddress string
	PhoneNumber     string
}
