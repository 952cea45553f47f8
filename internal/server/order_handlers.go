package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront-dev/storefront/internal/metrics"
	"github.com/storefront-dev/storefront/internal/models"
	"github.com/storefront-dev/storefront/internal/orders"
	"github.com/storefront-dev/storefront/internal/tasks"
)

// CreateOrderRequest is the checkout body. Item prices and totalAmount sent
// by the client are ignored; the server prices the order from the catalog.
type CreateOrderRequest struct {
	UserID        string              `json:"userId" validate:"required"`
	CartID        string              `json:"cartId"`
	CartItems     []orders.LineItem   `json:"cartItems" validate:"required,min=1,dive"`
	AddressInfo   models.OrderAddress `json:"addressInfo"`
	PaymentMethod string              `json:"paymentMethod"`
	TotalAmount   float64             `json:"totalAmount"`
}

// CreateOrderResponse is returned by the create route
type CreateOrderResponse struct {
	Success     bool    `json:"success"`
	OrderID     string  `json:"orderId"`
	TotalAmount float64 `json:"totalAmount"`
}

// CapturePaymentRequest records the payment provider's confirmation
type CapturePaymentRequest struct {
	PaymentID string `json:"paymentId" validate:"required"`
	PayerID   string `json:"payerId" validate:"required"`
	OrderID   string `json:"orderId" validate:"required"`
}

// UpdateOrderStatusRequest is the body of the admin status route
type UpdateOrderStatusRequest struct {
	OrderStatus string `json:"orderStatus" validate:"required"`
}

// @Summary Create order
// @Tags order
// @Router /api/shop/order/create [post]
func (s *Server) createOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if !s.authorizeUser(c, req.UserID) {
		return
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "paypal"
	}

	order, err := orders.Create(c.Request.Context(), getDB(c), orders.CreateInput{
		UserID:        req.UserID,
		CartID:        req.CartID,
		Items:         req.CartItems,
		Address:       req.AddressInfo,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		s.sendOrderError(c, err)
		return
	}

	metrics.RecordOrder(models.OrderStatusPending)
	s.scheduleOrderExpiry(order.ID)

	s.logger.Info().
		Str("order_id", order.ID).
		Str("user_id", order.UserID).
		Float64("total_amount", order.TotalAmount).
		Msg("Order created")

	c.JSON(http.StatusCreated, CreateOrderResponse{
		Success:     true,
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount,
	})
}

// scheduleOrderExpiry enqueues the task that cancels the order if it is not
// paid in time. Enqueue failures are logged; the order stands.
func (s *Server) scheduleOrderExpiry(orderID string) {
	if s.enqueuer == nil {
		return
	}

	task, opts, err := tasks.NewExpireOrderTask(orderID, s.config.Worker.PendingOrderTTL)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("Failed to create order expiry task")
		return
	}
	if _, err := s.enqueuer.Enqueue(task, opts...); err != nil {
		s.logger.Warn().Err(err).Str("order_id", orderID).Msg("Failed to enqueue order expiry task")
	}
}

// @Summary Capture payment
// @Tags order
// @Router /api/shop/order/capture [post]
func (s *Server) capturePayment(c *gin.Context) {
	var req CapturePaymentRequest
	if !s.bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	db := getDB(c)

	existing, err := orders.Get(ctx, db, req.OrderID)
	if err != nil {
		s.sendOrderError(c, err)
		return
	}
	if !s.authorizeUser(c, existing.UserID) {
		return
	}

	order, err := orders.Capture(ctx, db, req.OrderID, req.PaymentID, req.PayerID)
	if err != nil {
		s.sendOrderError(c, err)
		return
	}

	metrics.RecordOrder(models.OrderStatusConfirmed)
	s.logger.Info().
		Str("order_id", order.ID).
		Str("payment_id", order.PaymentID).
		Msg("Payment captured")

	sendSuccess(c, "Order confirmed", order)
}

// @Summary List user orders
// @Tags order
// @Router /api/shop/order/list/{userId} [get]
func (s *Server) listUserOrders(c *gin.Context) {
	userID := c.Param("userId")
	if !s.authorizeUser(c, userID) {
		return
	}

	list, err := orders.ListByUser(c.Request.Context(), getDB(c), userID)
	if err != nil {
		s.sendInternalError(c, err, "Failed to list orders")
		return
	}
	sendData(c, list)
}

// @Summary Order details
// @Tags order
// @Router /api/shop/order/details/{id} [get]
func (s *Server) orderDetails(c *gin.Context) {
	order, err := orders.Get(c.Request.Context(), getDB(c), c.Param("id"))
	if err != nil {
		s.sendOrderError(c, err)
		return
	}
	if !s.authorizeUser(c, order.UserID) {
		return
	}
	sendData(c, order)
}

// @Summary List all orders
// @Tags admin
// @Router /api/admin/orders/get [get]
func (s *Server) listAllOrders(c *gin.Context) {
	list, err := orders.ListAll(c.Request.Context(), getDB(c))
	if err != nil {
		s.sendInternalError(c, err, "Failed to list orders")
		return
	}
	sendData(c, list)
}

// @Summary Order details (admin)
// @Tags admin
// @Router /api/admin/orders/details/{id} [get]
func (s *Server) adminOrderDetails(c *gin.Context) {
	order, err := orders.Get(c.Request.Context(), getDB(c), c.Param("id"))
	if err != nil {
		s.sendOrderError(c, err)
		return
	}
	sendData(c, order)
}

// @Summary Update order status
// @Tags admin
// @Router /api/admin/orders/update/{id} [put]
func (s *Server) updateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if !s.bindJSON(c, &req) {
		return
	}

	order, err := orders.UpdateStatus(c.Request.Context(), getDB(c), c.Param("id"), req.OrderStatus)
	if err != nil {
		s.sendOrderError(c, err)
		return
	}

	metrics.RecordOrder(order.OrderStatus)
	sendSuccess(c, "Order status is updated successfully!", order)
}

func (s *Server) sendOrderError(c *gin.Context, err error) {
	var stockErr *orders.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		sendError(c, http.StatusBadRequest, stockErr.Error())
	case errors.Is(err, orders.ErrOrderNotFound):
		sendError(c, http.StatusNotFound, "Order not found!")
	case errors.Is(err, orders.ErrProductNotFound):
		sendError(c, http.StatusNotFound, "Product not found")
	case errors.Is(err, orders.ErrAddressNotFound):
		sendError(c, http.StatusNotFound, "Address not found")
	case errors.Is(err, orders.ErrCartNotFound):
		sendError(c, http.StatusNotFound, "Cart not found!")
	case errors.Is(err, orders.ErrNotPending):
		sendError(c, http.StatusConflict, "Order is no longer awaiting payment")
	case errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrIncompleteAddress),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, orders.ErrInvalidStatus):
		sendError(c, http.StatusBadRequest, "Invalid data provided!")
	default:
		s.sendInternalError(c, err, "Order operation failed")
	}
}
