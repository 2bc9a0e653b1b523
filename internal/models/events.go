package models

import "time"

// Event types
const (
	EventTypeSaleCreated   = "SALE_CREATED"
	EventTypeSalePaid      = "SALE_PAID"
	EventTypeSaleCancelled = "SALE_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleCreatedEvent published when a sale and its receipt are created
type SaleCreatedEvent struct {
	BaseEvent
	OrderID       string         `json:"order_id"`
	UserID        int64          `json:"user_id"`
	TotalAmount   float64        `json:"total_amount"`
	Currency      string         `json:"currency"`
	PaymentMethod string         `json:"payment_method"`
	Items         []SaleItemData `json:"items"`
}

// SalePaidEvent published when a sale transitions to paid
type SalePaidEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	UserID  int64  `json:"user_id"`
}

// SaleCancelledEvent published when a sale is cancelled
type SaleCancelledEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	UserID  int64  `json:"user_id"`
	Reason  string `json:"reason"`
}

// SaleItemData represents item data in events
type SaleItemData struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}
