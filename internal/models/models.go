package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered account
type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	ImageURL    *string         `db:"image_url" json:"imageUrl,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Cart is a user's mutable pre-checkout selection. Total is derived:
// it always equals the sum of its items' subtotals.
type Cart struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Total     decimal.Decimal `db:"total" json:"total"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// CartItem is one product line in a cart. Subtotal is price * quantity,
// recomputed on every mutation. At most one row per (cart, product).
type CartItem struct {
	ID        int64           `db:"id" json:"id"`
	CartID    int64           `db:"cart_id" json:"cart_id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// CartItemView is a cart item joined with its product for display
type CartItemView struct {
	ID             int64           `db:"id" json:"id"`
	ProductID      int64           `db:"product_id" json:"product_id"`
	ProductName    string          `db:"product_name" json:"product_name"`
	ProductPrice   decimal.Decimal `db:"product_price" json:"product_price"`
	ProductImage   *string         `db:"product_image" json:"product_image,omitempty"`
	Quantity       int             `db:"quantity" json:"quantity"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	StockAvailable int             `db:"stock_available" json:"stock_available"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Order is the durable record created from a cart at checkout.
// Immutable except for status transitions.
type Order struct {
	ID            int64           `db:"id" json:"id"`
	UserID        int64           `db:"user_id" json:"user_id"`
	Total         decimal.Decimal `db:"total" json:"total"`
	Status        string          `db:"status" json:"status"`
	PaymentMethod string          `db:"payment_method" json:"paymentMethod"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem snapshots one cart line at placement time. Price is the
// product's price at that instant and never tracks later changes.
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// OrderItemView is an order item joined with its product for display.
// Subtotal is computed on read as price * quantity, not stored.
type OrderItemView struct {
	ID           int64           `db:"id" json:"id"`
	ProductID    int64           `db:"product_id" json:"product_id"`
	ProductName  string          `db:"product_name" json:"product_name"`
	ProductImage *string         `db:"product_image" json:"product_image,omitempty"`
	Quantity     int             `db:"quantity" json:"quantity"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Subtotal     decimal.Decimal `db:"-" json:"subtotal"`
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Payment methods
const (
	PaymentMethodCard   = "card"
	PaymentMethodCash   = "cash"
	PaymentMethodUPI    = "upi"
	PaymentMethodWallet = "wallet"
)

// ValidOrderStatus reports whether s is a known order status
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether m is an accepted payment method
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCash, PaymentMethodUPI, PaymentMethodWallet:
		return true
	}
	return false
}

// Pagination carries list-response page metadata. It is always present
// on list responses, including empty result sets.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination computes metadata for a page over count rows
func NewPagination(page, limit int, count int64) Pagination {
	totalPages := int((count + int64(limit) - 1) / int64(limit))
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  count,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
