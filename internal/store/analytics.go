package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sales-service/internal/models"
)

// analyticsQuery computes every dashboard metric in one statement so all
// numbers come from a single consistent read. "Unpaid" means any non-paid
// status (pending, cancelled); the lifecycle has no separate unpaid status.
// The latest-orders and top-products sublists come back as jsonb columns.
const analyticsQuery = `
	WITH
		sales_summary AS (
			SELECT
				COUNT(*) AS total_sales_count,
				COALESCE(SUM(total_amount), 0) AS total_sales_sum,
				COUNT(*) FILTER (WHERE created_at >= NOW()::DATE) AS sales_today
			FROM sales
			WHERE user_id = $1
				AND created_at BETWEEN $2 AND $3
		),
		paid_unpaid_summary AS (
			SELECT
				COALESCE(SUM(CASE WHEN status = 'paid' THEN total_amount ELSE 0 END), 0) AS total_paid_sum,
				COALESCE(SUM(CASE WHEN status <> 'paid' THEN total_amount ELSE 0 END), 0) AS total_unpaid_sum
			FROM sales
			WHERE user_id = $1
				AND created_at BETWEEN $2 AND $3
		),
		latest_orders_base AS (
			SELECT order_id, status, total_amount, created_at::timestamptz AS created_at
			FROM sales
			WHERE user_id = $1
				AND created_at BETWEEN $2 AND $3
			ORDER BY created_at DESC
			LIMIT 5
		),
		top_products_base AS (
			SELECT
				si.product_id,
				COALESCE(lp.sku_name, si.product_name) AS product_name,
				COALESCE(lp.price, si.price) AS product_price,
				SUM(si.quantity) AS total_sold
			FROM sales_items si
			LEFT JOIN local_products lp ON si.product_id = lp.id
			JOIN sales s ON si.sale_id = s.id
			WHERE s.user_id = $1
				AND s.created_at BETWEEN $2 AND $3
			GROUP BY si.product_id, COALESCE(lp.sku_name, si.product_name), COALESCE(lp.price, si.price)
			ORDER BY total_sold DESC
			LIMIT 5
		),
		avg_invoice AS (
			SELECT COALESCE(AVG(total_amount), 0) AS average_invoice
			FROM sales
			WHERE user_id = $1
				AND created_at BETWEEN $2 AND $3
		),
		profit_calc AS (
			SELECT COALESCE(SUM(si.price * si.quantity) - SUM(si.cost_price * si.quantity), 0) AS profit
			FROM sales_items si
			JOIN sales s ON si.sale_id = s.id
			WHERE s.user_id = $1
				AND s.created_at BETWEEN $2 AND $3
		)
	SELECT
		ss.total_sales_count,
		ss.total_sales_sum,
		ss.sales_today,
		pus.total_paid_sum,
		ROUND(COALESCE((pus.total_paid_sum / NULLIF(ss.total_sales_sum, 0)) * 100, 0), 2) AS paid_percentage,
		pus.total_unpaid_sum,
		ROUND(COALESCE((pus.total_unpaid_sum / NULLIF(ss.total_sales_sum, 0)) * 100, 0), 2) AS unpaid_percentage,
		ai.average_invoice,
		pc.profit,
		(SELECT COALESCE(jsonb_agg(lo ORDER BY lo.created_at DESC), '[]'::jsonb)
			FROM latest_orders_base lo) AS latest_orders,
		(SELECT COALESCE(jsonb_agg(tp ORDER BY tp.total_sold DESC), '[]'::jsonb)
			FROM top_products_base tp) AS top_products
	FROM sales_summary ss
	CROSS JOIN paid_unpaid_summary pus
	CROSS JOIN avg_invoice ai
	CROSS JOIN profit_calc pc`

// analyticsRow is the raw scan target; the jsonb sublists are decoded after
type analyticsRow struct {
	TotalSalesCount  int64   `db:"total_sales_count"`
	TotalSalesSum    float64 `db:"total_sales_sum"`
	SalesToday       int64   `db:"sales_today"`
	TotalPaidSum     float64 `db:"total_paid_sum"`
	PaidPercentage   float64 `db:"paid_percentage"`
	TotalUnpaidSum   float64 `db:"total_unpaid_sum"`
	UnpaidPercentage float64 `db:"unpaid_percentage"`
	AverageInvoice   float64 `db:"average_invoice"`
	Profit           float64 `db:"profit"`
	LatestOrders     []byte  `db:"latest_orders"`
	TopProducts      []byte  `db:"top_products"`
}

// GetSalesAnalytics computes the dashboard for a user over [start, end].
// A window with no sales yields zeros and empty lists, never an error.
func (s *Store) GetSalesAnalytics(ctx context.Context, userID int64, start, end time.Time) (*models.AnalyticsSummary, error) {
	var row analyticsRow
	if err := s.db.GetContext(ctx, &row, analyticsQuery, userID, start, end); err != nil {
		return nil, fmt.Errorf("failed to get sales analytics: %w", err)
	}

	summary := &models.AnalyticsSummary{
		TotalSalesCount:  row.TotalSalesCount,
		TotalSalesSum:    row.TotalSalesSum,
		SalesToday:       row.SalesToday,
		TotalPaidSum:     row.TotalPaidSum,
		PaidPercentage:   row.PaidPercentage,
		TotalUnpaidSum:   row.TotalUnpaidSum,
		UnpaidPercentage: row.UnpaidPercentage,
		AverageInvoice:   row.AverageInvoice,
		Profit:           row.Profit,
		LatestOrders:     []models.LatestOrder{},
		TopProducts:      []models.TopProduct{},
	}

	if len(row.LatestOrders) > 0 {
		if err := json.Unmarshal(row.LatestOrders, &summary.LatestOrders); err != nil {
			return nil, fmt.Errorf("failed to decode latest orders: %w", err)
		}
	}
	if len(row.TopProducts) > 0 {
		if err := json.Unmarshal(row.TopProducts, &summary.TopProducts); err != nil {
			return nil, fmt.Errorf("failed to decode top products: %w", err)
		}
	}

	return summary, nil
}
