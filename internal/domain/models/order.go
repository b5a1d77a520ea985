package models

import "time"

// OrderStatus — статус заказа
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// Valid проверяет, что статус — один из пяти допустимых значений,
// некорректные значения отклоняются, а не приводятся к дефолтному
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal — из delivered и cancelled переходов больше нет.
// Между нетерминальными статусами разрешён любой переход, в том числе назад
// (shipped -> pending), это сознательное упрощение операционной модели.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Order представляет заказ покупателя
type Order struct {
	ID        int64       `json:"id"`
	BuyerID   int64       `json:"buyer_id"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OrderSummary — строка списка заказов продавца: данные покупателя через JOIN с users,
// сводка по позициям и сумма, пересчитанная из позиций (агрегат нигде не хранится)
type OrderSummary struct {
	ID         int64       `json:"id"`
	BuyerID    int64       `json:"buyer_id"`
	BuyerName  string      `json:"buyer_name"`
	BuyerEmail string      `json:"buyer_email"`
	Status     OrderStatus `json:"status"`
	Products   string      `json:"products"` // "Runner X (2), Walker Lite (1)"
	TotalCents int64       `json:"total_cents"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderItem — позиция заказа. ProductName и UnitPriceCents фиксируются
// в момент покупки и не меняются при последующих правках каталога;
// при удалении товара позиция остаётся читаемой по снапшоту
type OrderItem struct {
	ID             int64  `json:"id"`
	OrderID        int64  `json:"order_id"`
	ProductID      *int64 `json:"product_id,omitempty"` // NULL после удаления товара
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}
