package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/models"
)

// AddressRequest is the body of the add and update address routes
type AddressRequest struct {
	UserID  string `json:"userId"`
	Address string `json:"address" validate:"required,notblank"`
	City    string `json:"city" validate:"required,notblank"`
	Pincode string `json:"pincode" validate:"required,notblank"`
	Phone   string `json:"phone" validate:"required,notblank"`
	Notes   string `json:"notes"`
}

// @Summary Add address
// @Tags address
// @Router /api/shop/address/add [post]
func (s *Server) addAddress(c *gin.Context) {
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid data provided!")
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid data provided!")
		return
	}
	if !s.authorizeUser(c, req.UserID) {
		return
	}

	address := models.Address{
		UserID:  req.UserID,
		Address: req.Address,
		City:    req.City,
		Pincode: req.Pincode,
		Phone:   req.Phone,
		Notes:   req.Notes,
	}
	if err := getDB(c).Create(&address).Error; err != nil {
		s.sendInternalError(c, err, "Failed to create address")
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: address})
}

// @Summary List addresses
// @Tags address
// @Router /api/shop/address/get/{userId} [get]
func (s *Server) listAddresses(c *gin.Context) {
	userID := c.Param("userId")
	if !s.authorizeUser(c, userID) {
		return
	}

	addresses := []models.Address{}
	if err := getDB(c).Where("user_id = ?", userID).Order("created_at ASC").Find(&addresses).Error; err != nil {
		s.sendInternalError(c, err, "Failed to list addresses")
		return
	}
	sendData(c, addresses)
}

// @Summary Update address
// @Tags address
// @Router /api/shop/address/update/{userId}/{addressId} [put]
func (s *Server) updateAddress(c *gin.Context) {
	userID := c.Param("userId")
	if !s.authorizeUser(c, userID) {
		return
	}

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid data provided!")
		return
	}
	db := getDB(c)

	var address models.Address
	err := db.Where("id = ? AND user_id = ?", c.Param("addressId"), userID).First(&address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendError(c, http.StatusNotFound, "Address not found")
			return
		}
		s.sendInternalError(c, err, "Failed to load address")
		return
	}

	// partial update, empty fields keep their value
	if req.Address != "" {
		address.Address = req.Address
	}
	if req.City != "" {
		address.City = req.City
	}
	if req.Pincode != "" {
		address.Pincode = req.Pincode
	}
	if req.Phone != "" {
		address.Phone = req.Phone
	}
	if req.Notes != "" {
		address.Notes = req.Notes
	}

	if err := db.Save(&address).Error; err != nil {
		s.sendInternalError(c, err, "Failed to update address")
		return
	}
	sendData(c, address)
}

// @Summary Delete address
// @Tags address
// @Router /api/shop/address/delete/{userId}/{addressId} [delete]
func (s *Server) deleteAddress(c *gin.Context) {
	userID := c.Param("userId")
	if !s.authorizeUser(c, userID) {
		return
	}

	result := getDB(c).Where("id = ? AND user_id = ?", c.Param("addressId"), userID).Delete(&models.Address{})
	if result.Error != nil {
		s.sendInternalError(c, result.Error, "Failed to delete address")
		return
	}
	if result.RowsAffected == 0 {
		sendError(c, http.StatusNotFound, "Address not found")
		return
	}
	sendSuccess(c, "Address deleted successfully", nil)
}
