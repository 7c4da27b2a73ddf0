package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a single bill. Child orders produced by a split point back to
// their source through ParentOrderID.
type Order struct {
	ID              int64               `json:"id" db:"id"`
	OrderNumber     string              `json:"order_number" db:"order_number"`
	TableID         *int64              `json:"table_id,omitempty" db:"table_id"`
	CustomerID      *int64              `json:"customer_id,omitempty" db:"customer_id"`
	EmployeeID      *int64              `json:"employee_id,omitempty" db:"employee_id"`
	ParentOrderID   *int64              `json:"parent_order_id,omitempty" db:"parent_order_id"`
	Status          OrderStatus         `json:"status" db:"status"`
	Subtotal        decimal.Decimal     `json:"subtotal" db:"subtotal"`
	Tax             decimal.Decimal     `json:"tax" db:"tax"`
	Discount        decimal.Decimal     `json:"discount" db:"discount"`
	Total           decimal.Decimal     `json:"total" db:"total"`
	PriceIncludeTax bool                `json:"price_include_tax" db:"price_include_tax"`
	PaymentMethod   *string             `json:"payment_method,omitempty" db:"payment_method"`
	PaymentStatus   string              `json:"payment_status" db:"payment_status"`
	PaidAt          *time.Time          `json:"paid_at,omitempty" db:"paid_at"`
	AmountReceived  decimal.NullDecimal `json:"amount_received" db:"amount_received"`
	ChangeAmount    decimal.NullDecimal `json:"change_amount" db:"change_amount"`
	SalesChannel    string              `json:"sales_channel" db:"sales_channel"`
	CustomerName    *string             `json:"customer_name,omitempty" db:"customer_name"`
	GuestCount      *int                `json:"guest_count,omitempty" db:"guest_count"`
	Notes           *string             `json:"notes,omitempty" db:"notes"`
	Version         int                 `json:"version" db:"version"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`

	Items       []OrderItem `json:"items,omitempty"`
	ChildOrders []Order     `json:"child_orders,omitempty"`
	TableName   *string     `json:"table_name,omitempty"`

	// ClientToken is only set on synthetic responses for orders the client
	// has not persisted yet.
	ClientToken string `json:"client_token,omitempty"`
}

// OrderItem is a line on an order. Monetary fields are stored exactly as
// supplied by the caller except on the order creation path.
type OrderItem struct {
	ID             int64           `json:"id" db:"id"`
	OrderID        int64           `json:"order_id" db:"order_id"`
	ProductID      int64           `json:"product_id" db:"product_id"`
	Quantity       int             `json:"quantity" db:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price"`
	Total          decimal.Decimal `json:"total" db:"total"`
	Discount       decimal.Decimal `json:"discount" db:"discount"`
	Tax            decimal.Decimal `json:"tax" db:"tax"`
	PriceBeforeTax decimal.Decimal `json:"price_before_tax" db:"price_before_tax"`
	Notes          *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
	ProductName    *string         `json:"product_name,omitempty"`
}

// OrderTotals groups the four order-level monetary fields.
type OrderTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Totals returns the order's monetary fields as an OrderTotals.
func (o *Order) Totals() OrderTotals {
	return OrderTotals{Subtotal: o.Subtotal, Tax: o.Tax, Discount: o.Discount, Total: o.Total}
}

// ApplyTotals copies t onto the order.
func (o *Order) ApplyTotals(t OrderTotals) {
	o.Subtotal = t.Subtotal
	o.Tax = t.Tax
	o.Discount = t.Discount
	o.Total = t.Total
}

// Payment statuses.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// Sales channels.
const (
	SalesChannelPOS   = "pos"
	SalesChannelTable = "table"
)

// OrderFilters defines the available filters for querying orders.
type OrderFilters struct {
	TableID       *int64  `form:"table_id"`
	CustomerID    *int64  `form:"customer_id"`
	EmployeeID    *int64  `form:"employee_id"`
	ParentOrderID *int64  `form:"parent_order_id"`
	Status        *string `form:"status"`
	Date          *string `form:"date"` // YYYY-MM-DD
	Page          int     `form:"page"`
	PageSize      int     `form:"page_size"`
}
