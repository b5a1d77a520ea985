package models

import (
	"strconv"
	"strings"
	"time"
)

// Product представляет товар каталога, принадлежит ровно одному продавцу
type Product struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"seller_id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"price_cents"` // цена в центах, чтобы не работать с float
	Stock       int       `json:"stock"`
	Description string    `json:"description"`
	Sizes       []string  `json:"sizes"`
	Colors      []string  `json:"colors"`
	ImageURL    string    `json:"image_url"`
	Featured    bool      `json:"featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Допустимые категории товаров
var Categories = []string{"Men", "Women", "Kids", "Sport", "Casual"}

// Допустимые цвета
var Colors = []string{"Black", "White", "Red", "Blue", "Green", "Gray", "Brown", "Pink"}

// Диапазон допустимых размеров обуви
const (
	SizeMin = 36
	SizeMax = 45
)

func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func ValidColor(c string) bool {
	for _, known := range Colors {
		if c == known {
			return true
		}
	}
	return false
}

func ValidSize(s string) bool {
	n, err := strconv.Atoi(s)
	if err != nil {
		return false
	}
	return n >= SizeMin && n <= SizeMax
}

// JoinList сериализует список размеров/цветов в строку для хранения в одной колонке
func JoinList(items []string) string {
	return strings.Join(items, ",")
}

// SplitList разбирает строку из колонки обратно в список; пустая строка — пустой список
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
