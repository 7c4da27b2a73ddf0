package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler holds the order service.
type OrderHandler struct {
	orderService services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: os}
}

// CreateOrder handles the creation of a new order. An empty body creates an
// empty POS order.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err, "CreateOrder")
		return
	}

	createdOrder, err := h.orderService.CreateOrder(c.Request.Context(), req, currentEmployeeID(c))
	if err != nil {
		respondServiceError(c, err, "Failed to create order.")
		return
	}
	c.JSON(http.StatusCreated, createdOrder)
}

// GetOrders handles fetching all orders with filters
func (h *OrderHandler) GetOrders(c *gin.Context) {
	var filters models.OrderFilters

	for param, target := range map[string]**int64{
		"table_id":        &filters.TableID,
		"customer_id":     &filters.CustomerID,
		"employee_id":     &filters.EmployeeID,
		"parent_order_id": &filters.ParentOrderID,
	} {
		id, err := utils.ParseOptionalID(c.Query(param))
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+param+" format.", err.Error()))
			return
		}
		*target = id
	}
	if status := c.Query("status"); status != "" {
		filters.Status = &status
	}
	if date := c.Query("date"); date != "" {
		filters.Date = &date
	}

	filters.Page = 1
	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page <= 0 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page format.", "page must be a positive integer"))
			return
		}
		filters.Page = page
	}
	filters.PageSize = 20
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		pageSize, err := strconv.Atoi(pageSizeStr)
		if err != nil || pageSize <= 0 || pageSize > 200 {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid page_size format.", "page_size must be between 1 and 200"))
			return
		}
		filters.PageSize = pageSize
	}

	orders, totalCount, err := h.orderService.GetOrders(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch orders.")
		return
	}

	if orders == nil { // Ensure we return an empty list instead of null if no orders found
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      orders,
		"total":     totalCount,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

// GetOrderByID handles fetching a single order with its items and split children
func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	orderID, ok := pathID(c, "order")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrderByID(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch order.")
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateOrder saves client edited order fields. The id may be a client
// token for an order that is not stored yet.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	ref, err := models.ParseOrderRef(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order ID format.", err.Error()))
		return
	}

	var req services.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateOrder")
		return
	}

	updatedOrder, err := h.orderService.UpdateOrder(c.Request.Context(), ref, req)
	if err != nil {
		respondServiceError(c, err, "Failed to update order.")
		return
	}
	c.JSON(http.StatusOK, updatedOrder)
}

// UpdateOrderStatus handles updating the status of an order
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	ref, err := models.ParseOrderRef(c.Param("id"))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order ID format.", err.Error()))
		return
	}

	var req services.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "UpdateOrderStatus")
		return
	}
	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid order status provided.", err.Error()))
		return
	}

	updatedOrder, err := h.orderService.UpdateOrderStatus(c.Request.Context(), ref, status)
	if err != nil {
		respondServiceError(c, err, "Failed to update order status.")
		return
	}
	c.JSON(http.StatusOK, updatedOrder)
}

// CompletePayment settles an order.
func (h *OrderHandler) CompletePayment(c *gin.Context) {
	orderID, ok := pathID(c, "order")
	if !ok {
		return
	}

	var req services.CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "CompletePayment")
		return
	}

	paidOrder, err := h.orderService.CompletePayment(c.Request.Context(), orderID, req)
	if err != nil {
		respondServiceError(c, err, "Failed to complete payment.")
		return
	}
	c.JSON(http.StatusOK, paidOrder)
}

// SplitOrder partitions an order's items into new orders.
func (h *OrderHandler) SplitOrder(c *gin.Context) {
	var req services.SplitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "SplitOrder")
		return
	}

	result, err := h.orderService.SplitOrder(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "Failed to split order.")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// DeleteOrder handles deleting an order
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	orderID, ok := pathID(c, "order")
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(c.Request.Context(), orderID); err != nil {
		respondServiceError(c, err, "Failed to delete order.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order and its items deleted successfully"})
}
