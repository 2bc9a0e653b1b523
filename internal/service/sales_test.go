package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"sales-service/internal/models"
	"sales-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	sales map[string]*models.SaleDetails

	createCalls  int
	lastStatus   string
	lastCurrency string
	lastMethod   string
	lastItems    []models.SaleItem
	updateCalls  []string

	count     int
	page      []models.SaleDetails
	analytics *models.AnalyticsSummary
	lastStart time.Time
	lastEnd   time.Time
	storeErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sales: map[string]*models.SaleDetails{}}
}

func (f *fakeStore) CreateSale(_ context.Context, userID int64, items []models.SaleItem, currency, paymentMethod, status string) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.createCalls++
	f.lastItems = items
	f.lastCurrency = currency
	f.lastMethod = paymentMethod
	f.lastStatus = status

	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	orderID := "ORD-10001"
	f.sales[orderID] = &models.SaleDetails{
		Sale: models.Sale{
			OrderID: orderID, UserID: userID, TotalAmount: total,
			Currency: currency, Status: status,
		},
		Items: items,
	}
	return orderID, nil
}

func (f *fakeStore) UpdateSaleStatus(_ context.Context, orderID, status string) (bool, error) {
	f.updateCalls = append(f.updateCalls, orderID+":"+status)
	sale, ok := f.sales[orderID]
	if !ok {
		return false, nil
	}
	sale.Status = status
	return true, nil
}

func (f *fakeStore) GetSaleDetails(_ context.Context, orderID string) (*models.SaleDetails, error) {
	sale, ok := f.sales[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return sale, nil
}

func (f *fakeStore) ListSales(_ context.Context, _ store.ListSalesParams) ([]models.SaleDetails, error) {
	return f.page, nil
}

func (f *fakeStore) CountSales(_ context.Context, _ store.ListSalesParams) (int, error) {
	return f.count, nil
}

func (f *fakeStore) GetSalesAnalytics(_ context.Context, _ int64, start, end time.Time) (*models.AnalyticsSummary, error) {
	f.lastStart = start
	f.lastEnd = end
	if f.analytics == nil {
		return &models.AnalyticsSummary{
			LatestOrders: []models.LatestOrder{},
			TopProducts:  []models.TopProduct{},
		}, nil
	}
	return f.analytics, nil
}

// fakeCache keys entries by user and window bounds, like the real client, so
// tests observe whether two lookups land on the same key
type fakeCache struct {
	entries       map[string]*models.AnalyticsSummary
	invalidations int
	sets          int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*models.AnalyticsSummary{}}
}

func cacheKey(userID int64, start, end time.Time) string {
	return fmt.Sprintf("%d:%d:%d", userID, start.Unix(), end.Unix())
}

func (f *fakeCache) GetAnalytics(_ context.Context, userID int64, start, end time.Time) (*models.AnalyticsSummary, error) {
	return f.entries[cacheKey(userID, start, end)], nil
}

func (f *fakeCache) SetAnalytics(_ context.Context, userID int64, start, end time.Time, summary *models.AnalyticsSummary) error {
	f.sets++
	f.entries[cacheKey(userID, start, end)] = summary
	return nil
}

func (f *fakeCache) InvalidateAnalytics(_ context.Context, userID int64) error {
	f.invalidations++
	prefix := fmt.Sprintf("%d:", userID)
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

type fakePublisher struct {
	events []string
}

func (f *fakePublisher) PublishSaleCreated(_ context.Context, event *models.SaleCreatedEvent) error {
	f.events = append(f.events, event.EventType+":"+event.OrderID)
	return nil
}

func (f *fakePublisher) PublishSalePaid(_ context.Context, event *models.SalePaidEvent) error {
	f.events = append(f.events, event.EventType+":"+event.OrderID)
	return nil
}

func (f *fakePublisher) PublishSaleCancelled(_ context.Context, event *models.SaleCancelledEvent) error {
	f.events = append(f.events, event.EventType+":"+event.OrderID)
	return nil
}

func newTestService(st *fakeStore) (*SalesService, *fakeCache, *fakePublisher) {
	cache := newFakeCache()
	publisher := &fakePublisher{}
	return NewSalesService(st, cache, publisher, 7), cache, publisher
}

func validRequest() *CreateSaleRequest {
	return &CreateSaleRequest{
		Items: []SaleItemRequest{
			{ProductID: 1, Quantity: 2, Price: 100, CostPrice: 60, ProductName: "Coffee"},
			{ProductID: 2, Quantity: 1, Price: 50, CostPrice: 30, ProductName: "Tea"},
		},
		Currency:      "KZT",
		PaymentMethod: "card",
	}
}

func TestCreateSale(t *testing.T) {
	st := newFakeStore()
	svc, cache, publisher := newTestService(st)

	orderID, err := svc.CreateSale(context.Background(), 42, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "ORD-10001", orderID)

	assert.Equal(t, 250.0, st.sales[orderID].TotalAmount)
	assert.Equal(t, models.StatusPending, st.lastStatus)
	assert.Equal(t, []string{"SALE_CREATED:ORD-10001"}, publisher.events)
	assert.Equal(t, 1, cache.invalidations)
}

func TestCreateSaleValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateSaleRequest)
		wantErr error
	}{
		{"empty items", func(r *CreateSaleRequest) { r.Items = nil }, ErrEmptyItems},
		{"zero quantity", func(r *CreateSaleRequest) { r.Items[0].Quantity = 0 }, ErrInvalidQuantity},
		{"negative quantity", func(r *CreateSaleRequest) { r.Items[1].Quantity = -3 }, ErrInvalidQuantity},
		{"negative price", func(r *CreateSaleRequest) { r.Items[0].Price = -1 }, ErrInvalidPrice},
		{"negative cost price", func(r *CreateSaleRequest) { r.Items[0].CostPrice = -1 }, ErrInvalidPrice},
		{"bad currency", func(r *CreateSaleRequest) { r.Currency = "GBP" }, ErrInvalidCurrency},
		{"bad payment method", func(r *CreateSaleRequest) { r.PaymentMethod = "crypto" }, ErrInvalidPaymentMethod},
		{"bad status", func(r *CreateSaleRequest) { r.Status = "shipped" }, ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			svc, _, _ := newTestService(st)

			req := validRequest()
			tt.mutate(req)

			_, err := svc.CreateSale(context.Background(), 42, req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, st.createCalls, "nothing may be persisted on validation failure")
		})
	}
}

func TestCreateSaleDefaults(t *testing.T) {
	st := newFakeStore()
	svc, _, _ := newTestService(st)

	req := validRequest()
	req.Currency = ""
	req.PaymentMethod = ""
	req.Status = ""

	_, err := svc.CreateSale(context.Background(), 42, req)
	require.NoError(t, err)
	assert.Equal(t, models.CurrencyKZT, st.lastCurrency)
	assert.Equal(t, models.PaymentMethodCash, st.lastMethod)
	assert.Equal(t, models.StatusPending, st.lastStatus)
}

func TestCreateSalePropagatesStoreErrors(t *testing.T) {
	st := newFakeStore()
	st.storeErr = errors.New("connection lost")
	svc, _, publisher := newTestService(st)

	_, err := svc.CreateSale(context.Background(), 42, validRequest())
	require.Error(t, err)
	assert.Empty(t, publisher.events)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	st := newFakeStore()
	svc, _, publisher := newTestService(st)

	orderID, err := svc.CreateSale(context.Background(), 42, validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmPayment(context.Background(), orderID))
	assert.Equal(t, models.StatusPaid, st.sales[orderID].Status)
	assert.Equal(t, []string{orderID + ":paid"}, st.updateCalls)

	// second confirmation succeeds without another write or event
	require.NoError(t, svc.ConfirmPayment(context.Background(), orderID))
	assert.Equal(t, []string{orderID + ":paid"}, st.updateCalls)
	assert.Equal(t, []string{"SALE_CREATED:" + orderID, "SALE_PAID:" + orderID}, publisher.events)
}

func TestConfirmPaymentOnCancelledSale(t *testing.T) {
	st := newFakeStore()
	svc, _, _ := newTestService(st)

	orderID, err := svc.CreateSale(context.Background(), 42, validRequest())
	require.NoError(t, err)
	require.NoError(t, svc.CancelSale(context.Background(), orderID))

	err = svc.ConfirmPayment(context.Background(), orderID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConfirmPaymentNotFound(t *testing.T) {
	svc, _, _ := newTestService(newFakeStore())

	err := svc.ConfirmPayment(context.Background(), "ORD-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelSale(t *testing.T) {
	st := newFakeStore()
	svc, _, publisher := newTestService(st)

	orderID, err := svc.CreateSale(context.Background(), 42, validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.CancelSale(context.Background(), orderID))
	assert.Equal(t, models.StatusCancelled, st.sales[orderID].Status)
	assert.Contains(t, publisher.events, "SALE_CANCELLED:"+orderID)

	// the row survives cancellation for history and analytics
	details, err := svc.GetSaleInfo(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, details.Status)
}

func TestCancelPaidSaleIsRejected(t *testing.T) {
	st := newFakeStore()
	svc, _, _ := newTestService(st)

	orderID, err := svc.CreateSale(context.Background(), 42, validRequest())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmPayment(context.Background(), orderID))

	err = svc.CancelSale(context.Background(), orderID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.StatusPaid, st.sales[orderID].Status)
}

func TestChangeStatusTransitions(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		wantErr error
	}{
		{models.StatusPending, models.StatusPaid, nil},
		{models.StatusPending, models.StatusCancelled, nil},
		{models.StatusPaid, models.StatusPending, ErrInvalidTransition},
		{models.StatusPaid, models.StatusCancelled, ErrInvalidTransition},
		{models.StatusCancelled, models.StatusPending, ErrInvalidTransition},
		{models.StatusCancelled, models.StatusPaid, ErrInvalidTransition},
		{models.StatusPending, "shipped", ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			st := newFakeStore()
			svc, _, _ := newTestService(st)

			orderID, err := svc.CreateSale(context.Background(), 42, validRequest())
			require.NoError(t, err)
			st.sales[orderID].Status = tt.from

			err = svc.ChangeStatus(context.Background(), orderID, tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, st.sales[orderID].Status)
			}
		})
	}
}

func TestListSalesEnvelope(t *testing.T) {
	st := newFakeStore()
	st.count = 25
	st.page = make([]models.SaleDetails, 5)
	svc, _, _ := newTestService(st)

	page, err := svc.ListSales(context.Background(), store.ListSalesParams{UserID: 42, Skip: 20, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 25, page.TotalCount)
	assert.Equal(t, 3, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.IsLast)
	assert.Len(t, page.Content, 5)
}

func TestListSalesFirstOfMany(t *testing.T) {
	st := newFakeStore()
	st.count = 25
	svc, _, _ := newTestService(st)

	page, err := svc.ListSales(context.Background(), store.ListSalesParams{UserID: 42, Skip: 0, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.False(t, page.IsLast)
}

func TestListSalesZeroLimit(t *testing.T) {
	st := newFakeStore()
	st.count = 25
	svc, _, _ := newTestService(st)

	page, err := svc.ListSales(context.Background(), store.ListSalesParams{UserID: 42, Skip: 20, Limit: 0})
	require.NoError(t, err)

	// a non-positive limit means one page containing everything
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 25, page.Limit)
	assert.Zero(t, page.Skip)
	assert.True(t, page.IsLast)
}

func TestGetSalesAnalyticsDefaultWindow(t *testing.T) {
	st := newFakeStore()
	svc, cache, _ := newTestService(st)

	before := time.Now()
	_, err := svc.GetSalesAnalytics(context.Background(), 42, nil, nil)
	require.NoError(t, err)

	assert.WithinDuration(t, before.AddDate(0, 0, -7), st.lastStart, time.Minute)
	assert.WithinDuration(t, before, st.lastEnd, time.Minute)
	// default bounds are minute-aligned so repeated requests share a cache key
	assert.Zero(t, st.lastEnd.Second())
	assert.Zero(t, st.lastEnd.Nanosecond())
	assert.Zero(t, st.lastStart.Second())
	assert.Equal(t, 1, cache.sets)
}

func TestGetSalesAnalyticsDefaultWindowSharesCacheKey(t *testing.T) {
	st := newFakeStore()
	st.analytics = &models.AnalyticsSummary{TotalSalesCount: 5}
	svc, cache, _ := newTestService(st)

	_, err := svc.GetSalesAnalytics(context.Background(), 42, nil, nil)
	require.NoError(t, err)

	// a second default-window request must hit the entry the first one cached
	st.analytics = &models.AnalyticsSummary{TotalSalesCount: 99}
	second, err := svc.GetSalesAnalytics(context.Background(), 42, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), second.TotalSalesCount)
	assert.Equal(t, 1, cache.sets)
}

func TestGetSalesAnalyticsExplicitWindow(t *testing.T) {
	st := newFakeStore()
	svc, _, _ := newTestService(st)

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 14)

	_, err := svc.GetSalesAnalytics(context.Background(), 42, &start, &end)
	require.NoError(t, err)
	assert.Equal(t, start, st.lastStart)
	assert.Equal(t, end, st.lastEnd)
}

func TestGetSalesAnalyticsUsesCache(t *testing.T) {
	st := newFakeStore()
	st.analytics = &models.AnalyticsSummary{TotalSalesCount: 2, TotalSalesSum: 150}
	svc, cache, _ := newTestService(st)

	first, err := svc.GetSalesAnalytics(context.Background(), 42, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.TotalSalesCount)
	assert.Equal(t, 1, cache.sets)

	st.analytics = &models.AnalyticsSummary{TotalSalesCount: 99}
	second, err := svc.GetSalesAnalytics(context.Background(), 42, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.TotalSalesCount, "served from cache")
	assert.Equal(t, 1, cache.sets)
}
