package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable menu item. Price is the base (pre-tax) price and
// PriceAfterTax the price with tax applied; their difference is the per-unit
// tax charged when an order is created server-side.
type Product struct {
	ID            int64           `json:"id" db:"id"`
	Name          string          `json:"name" db:"name" binding:"required"`
	SKU           *string         `json:"sku,omitempty" db:"sku"`
	Category      *string         `json:"category,omitempty" db:"category"`
	Price         decimal.Decimal `json:"price" db:"price"`
	PriceAfterTax decimal.Decimal `json:"price_after_tax" db:"price_after_tax"`
	IsAvailable   bool            `json:"is_available" db:"is_available"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// TaxPerUnit is the tax embedded in one unit of the product.
func (p *Product) TaxPerUnit() decimal.Decimal {
	if p.PriceAfterTax.LessThanOrEqual(p.Price) {
		return decimal.Zero
	}
	return p.PriceAfterTax.Sub(p.Price)
}

// Customer represents a guest of the restaurant
type Customer struct {
	ID            int64     `json:"id" db:"id"`
	FullName      string    `json:"full_name" db:"full_name" binding:"required"`
	PhoneNumber   *string   `json:"phone_number,omitempty" db:"phone_number"`
	Email         *string   `json:"email,omitempty" db:"email"`
	LoyaltyPoints int       `json:"loyalty_points" db:"loyalty_points"`
	Notes         *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// StoreSettings holds store-wide configuration read when orders are created.
type StoreSettings struct {
	ID              int64           `json:"id" db:"id"`
	StoreName       string          `json:"store_name" db:"store_name"`
	PriceIncludeTax bool            `json:"price_include_tax" db:"price_include_tax"`
	TaxRate         decimal.Decimal `json:"tax_rate" db:"tax_rate"`
	Currency        string          `json:"currency" db:"currency"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}
