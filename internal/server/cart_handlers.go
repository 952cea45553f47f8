package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront-dev/storefront/internal/carts"
)

// CartItemRequest is the body of the add and update cart routes
type CartItemRequest struct {
	UserID    string `json:"userId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// @Summary Add to cart
// @Tags cart
// @Router /api/shop/cart/add [post]
func (s *Server) addToCart(c *gin.Context) {
	var req CartItemRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if !s.authorizeUser(c, req.UserID) {
		return
	}

	view, err := carts.AddItem(c.Request.Context(), getDB(c), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		s.sendCartError(c, err)
		return
	}
	sendData(c, view)
}

// @Summary Get cart
// @Tags cart
// @Router /api/shop/cart/get/{userId} [get]
func (s *Server) getCart(c *gin.Context) {
	userID := c.Param("userId")
	if !s.authorizeUser(c, userID) {
		return
	}

	view, err := carts.Get(c.Request.Context(), getDB(c), userID)
	if err != nil {
		s.sendCartError(c, err)
		return
	}
	sendData(c, view)
}

// @Summary Update cart quantity
// @Tags cart
// @Router /api/shop/cart/update-cart [put]
func (s *Server) updateCartQuantity(c *gin.Context) {
	var req CartItemRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if !s.authorizeUser(c, req.UserID) {
		return
	}

	view, err := carts.UpdateQuantity(c.Request.Context(), getDB(c), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		s.sendCartError(c, err)
		return
	}
	sendData(c, view)
}

// @Summary Remove from cart
// @Tags cart
// @Router /api/shop/cart/{userId}/{productId} [delete]
func (s *Server) removeFromCart(c *gin.Context) {
	userID := c.Param("userId")
	if !s.authorizeUser(c, userID) {
		return
	}

	view, err := carts.RemoveItem(c.Request.Context(), getDB(c), userID, c.Param("productId"))
	if err != nil {
		s.sendCartError(c, err)
		return
	}
	sendData(c, view)
}

func (s *Server) sendCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, carts.ErrCartNotFound):
		sendError(c, http.StatusNotFound, "Cart not found!")
	case errors.Is(err, carts.ErrItemNotFound):
		sendError(c, http.StatusNotFound, "Cart item not present !")
	case errors.Is(err, carts.ErrProductNotFound):
		sendError(c, http.StatusNotFound, "Product not found")
	case errors.Is(err, carts.ErrInvalidQuantity), errors.Is(err, carts.ErrInvalidArguments):
		sendError(c, http.StatusBadRequest, "Invalid data provided!")
	default:
		s.sendInternalError(c, err, "Cart operation failed")
	}
}
