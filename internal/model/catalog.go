package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is a repair part or accessory sold by the shop.
type CatalogItem struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Type      ItemType        `json:"type" db:"item_type"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}
