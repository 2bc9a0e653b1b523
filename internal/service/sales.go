package service

import (
	"context"
	"fmt"
	"time"

	"sales-service/internal/models"
	"sales-service/internal/store"
	"sales-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleStore is the persistence surface the service depends on
type SaleStore interface {
	CreateSale(ctx context.Context, userID int64, items []models.SaleItem, currency, paymentMethod, status string) (string, error)
	UpdateSaleStatus(ctx context.Context, orderID, status string) (bool, error)
	GetSaleDetails(ctx context.Context, orderID string) (*models.SaleDetails, error)
	ListSales(ctx context.Context, p store.ListSalesParams) ([]models.SaleDetails, error)
	CountSales(ctx context.Context, p store.ListSalesParams) (int, error)
	GetSalesAnalytics(ctx context.Context, userID int64, start, end time.Time) (*models.AnalyticsSummary, error)
}

// EventPublisher publishes sale lifecycle events
type EventPublisher interface {
	PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error
	PublishSalePaid(ctx context.Context, event *models.SalePaidEvent) error
	PublishSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error
}

// AnalyticsCache caches analytics snapshots per user and window
type AnalyticsCache interface {
	GetAnalytics(ctx context.Context, userID int64, start, end time.Time) (*models.AnalyticsSummary, error)
	SetAnalytics(ctx context.Context, userID int64, start, end time.Time, summary *models.AnalyticsSummary) error
	InvalidateAnalytics(ctx context.Context, userID int64) error
}

// SalesService handles sales business logic
type SalesService struct {
	store      SaleStore
	cache      AnalyticsCache
	events     EventPublisher
	logger     *zap.Logger
	windowDays int
}

// NewSalesService creates a new sales service. windowDays sets the default
// analytics window applied when the caller gives no bounds.
func NewSalesService(store SaleStore, cache AnalyticsCache, events EventPublisher, windowDays int) *SalesService {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &SalesService{
		store:      store,
		cache:      cache,
		events:     events,
		logger:     util.GetLogger(),
		windowDays: windowDays,
	}
}

// SaleItemRequest represents one line of a create-sale request. Price, cost
// price and name/barcode are the caller's snapshot of the product at sale
// time.
type SaleItemRequest struct {
	ProductID   int64   `json:"product_id" binding:"required"`
	Quantity    int     `json:"quantity" binding:"required"`
	Price       float64 `json:"price"`
	CostPrice   float64 `json:"cost_price"`
	ProductName string  `json:"product_name"`
	Barcode     string  `json:"barcode"`
}

// CreateSaleRequest represents a request to create a sale
type CreateSaleRequest struct {
	Items         []SaleItemRequest `json:"items" binding:"required"`
	Currency      string            `json:"currency"`
	PaymentMethod string            `json:"payment_method"`
	Status        string            `json:"status"`
}

func (s *SalesService) validateCreate(req *CreateSaleRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: product %d", ErrInvalidQuantity, item.ProductID)
		}
		if item.Price < 0 || item.CostPrice < 0 {
			return fmt.Errorf("%w: product %d", ErrInvalidPrice, item.ProductID)
		}
	}

	if req.Currency == "" {
		req.Currency = models.CurrencyKZT
	}
	if !models.ValidCurrency(req.Currency) {
		return fmt.Errorf("%w: %s", ErrInvalidCurrency, req.Currency)
	}

	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentMethodCash
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return fmt.Errorf("%w: %s", ErrInvalidPaymentMethod, req.PaymentMethod)
	}

	if req.Status == "" {
		req.Status = models.StatusPending
	}
	if !models.ValidStatus(req.Status) {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, req.Status)
	}

	return nil
}

// CreateSale validates the request and persists the sale, its items and the
// receipt atomically. Returns the minted order id.
func (s *SalesService) CreateSale(ctx context.Context, userID int64, req *CreateSaleRequest) (string, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.CreateSale")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleCreateLatency.Observe(time.Since(start).Seconds())
	}()

	if err := s.validateCreate(req); err != nil {
		util.SalesFailedTotal.WithLabelValues("validation").Inc()
		return "", err
	}

	items := make([]models.SaleItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = models.SaleItem{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			Price:       item.Price,
			CostPrice:   item.CostPrice,
			ProductName: item.ProductName,
			Barcode:     item.Barcode,
		}
	}

	orderID, err := s.store.CreateSale(ctx, userID, items, req.Currency, req.PaymentMethod, req.Status)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("db_error").Inc()
		return "", fmt.Errorf("failed to create sale: %w", err)
	}

	util.SalesCreatedTotal.Inc()
	s.logger.Info("Sale created",
		zap.String("order_id", orderID),
		zap.Int64("user_id", userID),
		zap.Int("items", len(items)))

	var totalAmount float64
	eventItems := make([]models.SaleItemData, len(items))
	for i, item := range items {
		totalAmount += item.Price * float64(item.Quantity)
		eventItems[i] = models.SaleItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	event := &models.SaleCreatedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeSaleCreated),
		OrderID:       orderID,
		UserID:        userID,
		TotalAmount:   totalAmount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		Items:         eventItems,
	}
	if err := s.events.PublishSaleCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCreated event", zap.Error(err))
	}

	s.invalidateAnalytics(ctx, userID)

	return orderID, nil
}

// canTransition encodes the status state machine: pending is the only state
// with outgoing edges; paid and cancelled are terminal.
func canTransition(from, to string) bool {
	return from == models.StatusPending &&
		(to == models.StatusPaid || to == models.StatusCancelled)
}

// ChangeStatus moves a sale to the given status after checking the
// transition is legal
func (s *SalesService) ChangeStatus(ctx context.Context, orderID, status string) error {
	ctx, span := util.StartSpan(ctx, "SalesService.ChangeStatus")
	defer span.End()

	if !models.ValidStatus(status) {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	details, err := s.store.GetSaleDetails(ctx, orderID)
	if err != nil {
		return err
	}

	if !canTransition(details.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, details.Status, status)
	}

	updated, err := s.store.UpdateSaleStatus(ctx, orderID, status)
	if err != nil {
		return err
	}
	if !updated {
		return ErrNotFound
	}

	s.logger.Info("Sale status changed",
		zap.String("order_id", orderID),
		zap.String("from", details.Status),
		zap.String("to", status))

	switch status {
	case models.StatusPaid:
		util.SalesPaidTotal.Inc()
		s.publishPaid(ctx, orderID, details.UserID)
	case models.StatusCancelled:
		util.SalesCancelledTotal.Inc()
		s.publishCancelled(ctx, orderID, details.UserID, "status change")
	}

	s.invalidateAnalytics(ctx, details.UserID)

	return nil
}

// ConfirmPayment transitions a pending sale to paid. Confirming an already
// paid sale succeeds without a write, so retries are safe.
func (s *SalesService) ConfirmPayment(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "SalesService.ConfirmPayment")
	defer span.End()

	details, err := s.store.GetSaleDetails(ctx, orderID)
	if err != nil {
		return err
	}

	if details.Status == models.StatusPaid {
		return nil
	}
	if details.Status == models.StatusCancelled {
		return fmt.Errorf("%w: cannot pay a cancelled sale", ErrInvalidTransition)
	}

	updated, err := s.store.UpdateSaleStatus(ctx, orderID, models.StatusPaid)
	if err != nil {
		return err
	}
	if !updated {
		return ErrNotFound
	}

	util.SalesPaidTotal.Inc()
	s.logger.Info("Payment confirmed", zap.String("order_id", orderID))

	s.publishPaid(ctx, orderID, details.UserID)
	s.invalidateAnalytics(ctx, details.UserID)

	return nil
}

// CancelSale cancels a pending sale. The row and its items are kept under
// the cancelled status so history and analytics survive.
func (s *SalesService) CancelSale(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "SalesService.CancelSale")
	defer span.End()

	details, err := s.store.GetSaleDetails(ctx, orderID)
	if err != nil {
		return err
	}

	if !canTransition(details.Status, models.StatusCancelled) {
		return fmt.Errorf("%w: cannot cancel a %s sale", ErrInvalidTransition, details.Status)
	}

	updated, err := s.store.UpdateSaleStatus(ctx, orderID, models.StatusCancelled)
	if err != nil {
		return err
	}
	if !updated {
		return ErrNotFound
	}

	util.SalesCancelledTotal.Inc()
	s.logger.Info("Sale cancelled", zap.String("order_id", orderID))

	s.publishCancelled(ctx, orderID, details.UserID, "cancelled by owner")
	s.invalidateAnalytics(ctx, details.UserID)

	return nil
}

// GetSaleInfo retrieves a sale with its items
func (s *SalesService) GetSaleInfo(ctx context.Context, orderID string) (*models.SaleDetails, error) {
	return s.store.GetSaleDetails(ctx, orderID)
}

// ListSales returns one page of sales wrapped in the pagination envelope.
// A non-positive limit means a single page containing everything.
func (s *SalesService) ListSales(ctx context.Context, p store.ListSalesParams) (*models.PaginatedSales, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.ListSales")
	defer span.End()

	totalCount, err := s.store.CountSales(ctx, p)
	if err != nil {
		return nil, err
	}

	currentPage, totalPages := 1, 1
	if p.Limit > 0 {
		currentPage = p.Skip/p.Limit + 1
		totalPages = (totalCount + p.Limit - 1) / p.Limit
	} else {
		p.Limit = totalCount
		p.Skip = 0
	}

	content, err := s.store.ListSales(ctx, p)
	if err != nil {
		return nil, err
	}

	return &models.PaginatedSales{
		TotalCount:  totalCount,
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		Limit:       p.Limit,
		Skip:        p.Skip,
		IsLast:      currentPage >= totalPages,
		Content:     content,
	}, nil
}

// GetSalesAnalytics computes the dashboard, applying the default window when
// bounds are missing and going through the snapshot cache
func (s *SalesService) GetSalesAnalytics(ctx context.Context, userID int64, start, end *time.Time) (*models.AnalyticsSummary, error) {
	ctx, span := util.StartSpan(ctx, "SalesService.GetSalesAnalytics")
	defer span.End()

	began := time.Now()
	defer func() {
		util.AnalyticsRequestLatency.Observe(time.Since(began).Seconds())
	}()

	// default bounds are truncated to the minute so back-to-back dashboard
	// loads land on the same cache key; version bumps keep entries fresh
	now := time.Now().Truncate(time.Minute)
	windowStart := now.AddDate(0, 0, -s.windowDays)
	windowEnd := now
	if start != nil {
		windowStart = *start
	}
	if end != nil {
		windowEnd = *end
	}

	cached, err := s.cache.GetAnalytics(ctx, userID, windowStart, windowEnd)
	if err != nil {
		s.logger.Warn("Analytics cache lookup failed", zap.Error(err))
	}
	if cached != nil {
		util.AnalyticsCacheHitsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	util.AnalyticsCacheHitsTotal.WithLabelValues("miss").Inc()

	summary, err := s.store.GetSalesAnalytics(ctx, userID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetAnalytics(ctx, userID, windowStart, windowEnd, summary); err != nil {
		s.logger.Warn("Failed to cache analytics", zap.Error(err))
	}

	return summary, nil
}

func (s *SalesService) publishPaid(ctx context.Context, orderID string, userID int64) {
	event := &models.SalePaidEvent{
		BaseEvent: newBaseEvent(models.EventTypeSalePaid),
		OrderID:   orderID,
		UserID:    userID,
	}
	if err := s.events.PublishSalePaid(ctx, event); err != nil {
		s.logger.Error("Failed to publish SalePaid event", zap.Error(err))
	}
}

func (s *SalesService) publishCancelled(ctx context.Context, orderID string, userID int64, reason string) {
	event := &models.SaleCancelledEvent{
		BaseEvent: newBaseEvent(models.EventTypeSaleCancelled),
		OrderID:   orderID,
		UserID:    userID,
		Reason:    reason,
	}
	if err := s.events.PublishSaleCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCancelled event", zap.Error(err))
	}
}

func (s *SalesService) invalidateAnalytics(ctx context.Context, userID int64) {
	if err := s.cache.InvalidateAnalytics(ctx, userID); err != nil {
		s.logger.Warn("Failed to invalidate analytics cache", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
