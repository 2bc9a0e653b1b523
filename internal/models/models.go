package models

import "time"

// Sale represents one customer order
type Sale struct {
	ID          int64     `db:"id" json:"id"`
	OrderID     string    `db:"order_id" json:"order_id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	TotalAmount float64   `db:"total_amount" json:"total_amount"`
	Currency    string    `db:"currency" json:"currency"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SaleItem represents one product line within a sale. Price, cost price and
// the product name/barcode are snapshotted at sale time and never recomputed
// from the live catalog.
type SaleItem struct {
	ID          int64   `db:"id" json:"id"`
	SaleID      int64   `db:"sale_id" json:"sale_id"`
	ProductID   int64   `db:"product_id" json:"product_id"`
	Quantity    int     `db:"quantity" json:"quantity"`
	Price       float64 `db:"price" json:"price"`
	CostPrice   float64 `db:"cost_price" json:"cost_price"`
	Total       float64 `db:"total" json:"total"`
	ProductName string  `db:"product_name" json:"product_name"`
	Barcode     string  `db:"barcode" json:"barcode"`
}

// Receipt is the payment-method-tagged record paired 1:1 with a sale
type Receipt struct {
	ID            int64     `db:"id" json:"id"`
	OrderID       string    `db:"order_id" json:"order_id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	TotalAmount   float64   `db:"total_amount" json:"total_amount"`
	Currency      string    `db:"currency" json:"currency"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Product represents a catalog entry in local_products
type Product struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	SKUCode   string    `db:"sku_code" json:"sku_code"`
	SKUName   string    `db:"sku_name" json:"sku_name"`
	Barcode   string    `db:"barcode" json:"barcode"`
	CostPrice float64   `db:"cost_price" json:"cost_price"`
	Price     float64   `db:"price" json:"price"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SaleDetails is a sale with its line items and receipt attached
type SaleDetails struct {
	Sale
	Items   []SaleItem `json:"items"`
	Receipt *Receipt   `json:"receipt,omitempty"`
}

// PaginatedSales wraps a page of sales in the pagination envelope
type PaginatedSales struct {
	TotalCount  int           `json:"total_count"`
	CurrentPage int           `json:"current_page"`
	TotalPages  int           `json:"total_pages"`
	Limit       int           `json:"limit"`
	Skip        int           `json:"skip"`
	IsLast      bool          `json:"is_last"`
	Content     []SaleDetails `json:"content"`
}

// LatestOrder is one entry of the analytics latest-orders list
type LatestOrder struct {
	OrderID     string    `json:"order_id"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// TopProduct is one entry of the analytics top-products list
type TopProduct struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductPrice float64 `json:"product_price"`
	TotalSold    int64   `json:"total_sold"`
}

// AnalyticsSummary is the sales dashboard for one user over a date window.
// The "unpaid" bucket covers every non-paid status (pending and cancelled);
// there is no separate "unpaid" status in the lifecycle.
type AnalyticsSummary struct {
	TotalSalesCount  int64         `json:"total_sales_count"`
	TotalSalesSum    float64       `json:"total_sales_sum"`
	SalesToday       int64         `json:"sales_today"`
	TotalPaidSum     float64       `json:"total_paid_sum"`
	PaidPercentage   float64       `json:"paid_percentage"`
	TotalUnpaidSum   float64       `json:"total_unpaid_sum"`
	UnpaidPercentage float64       `json:"unpaid_percentage"`
	AverageInvoice   float64       `json:"average_invoice"`
	Profit           float64       `json:"profit"`
	LatestOrders     []LatestOrder `json:"latest_orders"`
	TopProducts      []TopProduct  `json:"top_products"`
}

// Sale statuses. A sale starts pending and moves to paid or cancelled;
// both are terminal.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Currencies
const (
	CurrencyKZT = "KZT"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyRUB = "RUB"
)

// Payment methods
const (
	PaymentMethodCash         = "cash"
	PaymentMethodCard         = "card"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodOther        = "other"
)

// ValidStatus reports whether s is a known sale status
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// ValidCurrency reports whether c is a supported currency
func ValidCurrency(c string) bool {
	switch c {
	case CurrencyKZT, CurrencyUSD, CurrencyEUR, CurrencyRUB:
		return true
	}
	return false
}

// ValidPaymentMethod reports whether m is a supported payment method
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodOther:
		return true
	}
	return false
}

// AuditEntry is one row of the write-only audit log
type AuditEntry struct {
	ID       int64     `db:"id" json:"id"`
	Action   string    `db:"action" json:"action"`
	Entity   string    `db:"entity" json:"entity"`
	EntityID string    `db:"entity_id" json:"entity_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Time     time.Time `db:"timestamp" json:"timestamp"`
	Details  string    `db:"details" json:"details"`
}
