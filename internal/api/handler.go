package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"sales-service/internal/service"
	"sales-service/internal/store"
	"sales-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	salesService *service.SalesService
}

// NewHandler creates a new HTTP handler
func NewHandler(salesService *service.SalesService) *Handler {
	return &Handler{
		salesService: salesService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/sales", h.createSale)
		v1.GET("/sales", h.listSales)
		v1.GET("/sales/:order_id", h.getSale)
		v1.POST("/sales/:order_id/confirm", h.confirmPayment)
		v1.POST("/sales/:order_id/cancel", h.cancelSale)
		v1.PATCH("/sales/:order_id/status", h.changeStatus)
		v1.GET("/analytics/sales", h.getSalesAnalytics)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// currentUserID reads the user id resolved by the auth gateway. The service
// trusts this value; authorization happens upstream.
func currentUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Missing or invalid X-User-ID header",
		})
		return 0, false
	}
	return userID, true
}

// businessErrors map to 400; ErrNotFound maps to 404; the rest are 500s
var businessErrors = []error{
	service.ErrEmptyItems,
	service.ErrInvalidQuantity,
	service.ErrInvalidPrice,
	service.ErrInvalidCurrency,
	service.ErrInvalidPaymentMethod,
	service.ErrInvalidStatus,
	service.ErrInvalidTransition,
}

func renderError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sale not found"})
		return
	}
	for _, business := range businessErrors {
		if errors.Is(err, business) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Internal error",
		"details": err.Error(),
	})
}

// createSale handles sale creation
func (h *Handler) createSale(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	orderID, err := h.salesService.CreateSale(c.Request.Context(), userID, &req)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order_id": orderID})
}

// listSales handles the filtered, sorted, paginated listing
func (h *Handler) listSales(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	params := store.ListSalesParams{
		UserID:    userID,
		Skip:      skip,
		Limit:     limit,
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.DefaultQuery("sort_order", "asc"),
		StartDate: parseDate(c.Query("start_date")),
		EndDate:   parseDate(c.Query("end_date")),
	}

	page, err := h.salesService.ListSales(c.Request.Context(), params)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// getSale handles get sale by order id
func (h *Handler) getSale(c *gin.Context) {
	details, err := h.salesService.GetSaleInfo(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// confirmPayment handles idempotent payment confirmation
func (h *Handler) confirmPayment(c *gin.Context) {
	orderID := c.Param("order_id")

	if err := h.salesService.ConfirmPayment(c.Request.Context(), orderID); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"message":  "Payment confirmed",
	})
}

// cancelSale handles sale cancellation
func (h *Handler) cancelSale(c *gin.Context) {
	orderID := c.Param("order_id")

	if err := h.salesService.CancelSale(c.Request.Context(), orderID); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"message":  "Sale cancelled",
	})
}

// changeStatus handles explicit status transitions
func (h *Handler) changeStatus(c *gin.Context) {
	orderID := c.Param("order_id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.salesService.ChangeStatus(c.Request.Context(), orderID, req.Status); err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"status":   req.Status,
	})
}

// getSalesAnalytics handles the analytics dashboard
func (h *Handler) getSalesAnalytics(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	summary, err := h.salesService.GetSalesAnalytics(c.Request.Context(), userID,
		parseDate(c.Query("start_date")), parseDate(c.Query("end_date")))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// parseDate accepts RFC3339 or a bare date; anything else counts as absent
func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t
	}
	return nil
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
