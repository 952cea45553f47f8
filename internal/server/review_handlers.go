package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/catalog"
	"github.com/storefront-dev/storefront/internal/models"
	"github.com/storefront-dev/storefront/internal/orders"
)

// ReviewRequest is the body of the add review route
type ReviewRequest struct {
	ProductID     string `json:"productId" validate:"required"`
	UserID        string `json:"userId" validate:"required"`
	UserName      string `json:"userName"`
	ReviewMessage string `json:"reviewMessage"`
	ReviewValue   int    `json:"reviewValue" validate:"required,min=1,max=5"`
}

var errAlreadyReviewed = errors.New("already reviewed")

// @Summary Add review
// @Tags review
// @Router /api/shop/review/add [post]
func (s *Server) addReview(c *gin.Context) {
	var req ReviewRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if !s.authorizeUser(c, req.UserID) {
		return
	}
	ctx := c.Request.Context()
	db := getDB(c)

	if _, ok := s.findProduct(c, db, req.ProductID); !ok {
		return
	}

	purchased, err := orders.HasPurchased(ctx, db, req.UserID, req.ProductID)
	if err != nil {
		s.sendInternalError(c, err, "Failed to check purchase history")
		return
	}
	if !purchased {
		sendError(c, http.StatusForbidden, "You need to purchase product to review it.")
		return
	}

	userName := req.UserName
	if session, ok := GetSessionData(c); ok && session.UserID == req.UserID {
		userName = session.UserName
	}

	review := models.ProductReview{
		ProductID:     req.ProductID,
		UserID:        req.UserID,
		UserName:      userName,
		ReviewMessage: req.ReviewMessage,
		ReviewValue:   req.ReviewValue,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ProductReview{}).
			Where("product_id = ? AND user_id = ?", req.ProductID, req.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errAlreadyReviewed
		}

		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		_, err := catalog.RecomputeAverageReview(ctx, tx, req.ProductID)
		return err
	})
	if err != nil {
		if errors.Is(err, errAlreadyReviewed) {
			sendError(c, http.StatusBadRequest, "You already reviewed this product!")
			return
		}
		s.sendInternalError(c, err, "Failed to add review")
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: review})
}

// @Summary List reviews
// @Tags review
// @Router /api/shop/review/{productId} [get]
func (s *Server) listReviews(c *gin.Context) {
	reviews := []models.ProductReview{}
	err := getDB(c).
		Where("product_id = ?", c.Param("productId")).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		s.sendInternalError(c, err, "Failed to list reviews")
		return
	}
	sendData(c, reviews)
}
