package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sales-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// itemColumns selects line items enriched from the live catalog, falling back
// to the name/barcode snapshotted on the item for products removed since.
const itemColumns = `
	SELECT si.id, si.sale_id, si.product_id, si.quantity, si.price, si.cost_price, si.total,
		COALESCE(p.sku_name, si.product_name) AS product_name,
		COALESCE(p.barcode, si.barcode) AS barcode
	FROM sales_items si
	LEFT JOIN local_products p ON si.product_id = p.id`

// nextOrderID allocates the next order number inside tx. The increment and
// read are a single statement, so concurrent callers can never observe the
// same number; aborting tx returns the number to nobody (gaps are fine).
func nextOrderID(ctx context.Context, tx *sqlx.Tx) (string, error) {
	var n int64
	err := tx.GetContext(ctx, &n,
		"UPDATE order_counter SET last_number = last_number + 1 RETURNING last_number")
	if err != nil {
		return "", fmt.Errorf("failed to increment order counter: %w", err)
	}
	return fmt.Sprintf("ORD-%d", n), nil
}

// snapshotItems fills the name/barcode/cost-price snapshot from the user's
// catalog for any field the caller left empty. The catalog is consulted once,
// at sale time; later catalog edits never rewrite a sold line.
func (s *Store) snapshotItems(ctx context.Context, userID int64, items []models.SaleItem) error {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.GetProductsByIDs(ctx, userID, ids)
	if err != nil {
		return fmt.Errorf("failed to load catalog products: %w", err)
	}
	catalog := make(map[int64]models.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	for i := range items {
		p, ok := catalog[items[i].ProductID]
		if !ok {
			continue
		}
		if items[i].ProductName == "" {
			items[i].ProductName = p.SKUName
		}
		if items[i].Barcode == "" {
			items[i].Barcode = p.Barcode
		}
		if items[i].CostPrice == 0 {
			items[i].CostPrice = p.CostPrice
		}
	}
	return nil
}

// CreateSale persists the sale header, its line items and the receipt in one
// transaction together with the order-number allocation. Any failure rolls
// the whole creation back; no partial order is ever visible to readers.
func (s *Store) CreateSale(ctx context.Context, userID int64, items []models.SaleItem, currency, paymentMethod, status string) (string, error) {
	if err := s.snapshotItems(ctx, userID, items); err != nil {
		return "", err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderID, err := nextOrderID(ctx, tx)
	if err != nil {
		return "", err
	}

	var totalAmount float64
	for _, item := range items {
		totalAmount += item.Price * float64(item.Quantity)
	}

	var saleID int64
	err = tx.GetContext(ctx, &saleID,
		`INSERT INTO sales (order_id, user_id, total_amount, currency, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		orderID, userID, totalAmount, currency, status)
	if err != nil {
		return "", fmt.Errorf("failed to insert sale %s: %w", orderID, err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sales_items (sale_id, product_id, quantity, price, cost_price, total, product_name, barcode)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			saleID, item.ProductID, item.Quantity, item.Price, item.CostPrice,
			item.Price*float64(item.Quantity), item.ProductName, item.Barcode)
		if err != nil {
			return "", fmt.Errorf("failed to insert item for sale %s: %w", orderID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO receipts (order_id, user_id, total_amount, currency, payment_method)
		 VALUES ($1, $2, $3, $4, $5)`,
		orderID, userID, totalAmount, currency, paymentMethod)
	if err != nil {
		return "", fmt.Errorf("failed to insert receipt for sale %s: %w", orderID, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit sale %s: %w", orderID, err)
	}

	return orderID, nil
}

// UpdateSaleStatus updates the status column for the matching order. Returns
// whether exactly one row was affected; legal-transition checks belong to the
// service layer.
func (s *Store) UpdateSaleStatus(ctx context.Context, orderID, status string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sales SET status = $1, updated_at = NOW() WHERE order_id = $2",
		status, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to update status of sale %s: %w", orderID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// GetSaleDetails retrieves a sale with its items and receipt, or ErrNotFound
func (s *Store) GetSaleDetails(ctx context.Context, orderID string) (*models.SaleDetails, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE order_id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale %s: %w", orderID, err)
	}

	items := []models.SaleItem{}
	err = s.db.SelectContext(ctx, &items, itemColumns+" WHERE si.sale_id = $1", sale.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items of sale %s: %w", orderID, err)
	}

	receipt := &models.Receipt{}
	err = s.db.GetContext(ctx, receipt, "SELECT * FROM receipts WHERE order_id = $1", orderID)
	if err == sql.ErrNoRows {
		receipt = nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get receipt of sale %s: %w", orderID, err)
	}

	return &models.SaleDetails{Sale: sale, Items: items, Receipt: receipt}, nil
}

// ListSalesParams holds filtering, sorting and pagination inputs
type ListSalesParams struct {
	UserID    int64
	Skip      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder string
	StartDate *time.Time
	EndDate   *time.Time
}

// sortColumns is the closed set of columns ListSales may order by
var sortColumns = map[string]bool{
	"id":           true,
	"order_id":     true,
	"total_amount": true,
	"currency":     true,
	"status":       true,
	"created_at":   true,
}

// filter renders the WHERE clause with positional placeholders
func (p ListSalesParams) filter() (string, []interface{}) {
	clauses := []string{"user_id = $1"}
	args := []interface{}{p.UserID}

	if p.Search != "" {
		clauses = append(clauses, fmt.Sprintf("order_id ILIKE $%d", len(args)+1))
		args = append(args, "%"+p.Search+"%")
	}
	if p.StartDate != nil {
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *p.StartDate)
	}
	if p.EndDate != nil {
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *p.EndDate)
	}

	return strings.Join(clauses, " AND "), args
}

// orderClause validates the sort column against the allow-list. Anything
// outside it falls back to id ASC instead of erroring, and user input is
// never interpolated into the query.
func (p ListSalesParams) orderClause() string {
	if !sortColumns[p.SortBy] {
		return "ORDER BY id ASC"
	}
	dir := "ASC"
	if strings.EqualFold(p.SortOrder, "desc") {
		dir = "DESC"
	}
	return "ORDER BY " + p.SortBy + " " + dir
}

// CountSales returns the number of sales matching the filter
func (s *Store) CountSales(ctx context.Context, p ListSalesParams) (int, error) {
	where, args := p.filter()

	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM sales WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count sales: %w", err)
	}
	return count, nil
}

// ListSales fetches one page of sales, then all of their items in a single
// batched query grouped in memory by sale (no per-sale round trips).
func (s *Store) ListSales(ctx context.Context, p ListSalesParams) ([]models.SaleDetails, error) {
	where, args := p.filter()
	query := fmt.Sprintf("SELECT * FROM sales WHERE %s %s LIMIT $%d OFFSET $%d",
		where, p.orderClause(), len(args)+1, len(args)+2)
	args = append(args, p.Limit, p.Skip)

	var sales []models.Sale
	if err := s.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	details := make([]models.SaleDetails, len(sales))
	for i, sale := range sales {
		details[i] = models.SaleDetails{Sale: sale, Items: []models.SaleItem{}}
	}
	if len(sales) == 0 {
		return details, nil
	}

	saleIDs := make([]int64, len(sales))
	for i, sale := range sales {
		saleIDs[i] = sale.ID
	}

	itemsQuery, itemsArgs, err := sqlx.In(itemColumns+" WHERE si.sale_id IN (?)", saleIDs)
	if err != nil {
		return nil, err
	}
	itemsQuery = s.db.Rebind(itemsQuery)

	var items []models.SaleItem
	if err := s.db.SelectContext(ctx, &items, itemsQuery, itemsArgs...); err != nil {
		return nil, fmt.Errorf("failed to list sale items: %w", err)
	}

	itemsBySale := make(map[int64][]models.SaleItem)
	for _, item := range items {
		itemsBySale[item.SaleID] = append(itemsBySale[item.SaleID], item)
	}
	for i := range details {
		if grouped, ok := itemsBySale[details[i].ID]; ok {
			details[i].Items = grouped
		}
	}

	return details, nil
}
