package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Stock       int             `json:"stock"`
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPaid      OrderStatus = "Paid"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

type OrderItem struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Order is the durable record the backend creates when a payment session is
// confirmed. Confirmation is idempotent server-side, keyed by SessionID.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	SessionID   string          `json:"sessionId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      OrderStatus     `json:"status"`
	Items       []OrderItem     `json:"orderItems,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
