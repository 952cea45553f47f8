package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront-dev/storefront/internal/models"
)

// FeatureRequest is the body of the add feature route
type FeatureRequest struct {
	Image string `json:"image" validate:"required,notblank"`
}

// @Summary Add feature image
// @Tags feature
// @Router /api/common/feature/add [post]
func (s *Server) addFeature(c *gin.Context) {
	var req FeatureRequest
	if !s.bindJSON(c, &req) {
		return
	}

	feature := models.Feature{Image: req.Image}
	if err := getDB(c).Create(&feature).Error; err != nil {
		s.sendInternalError(c, err, "Failed to add feature image")
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: feature})
}

// @Summary List feature images
// @Tags feature
// @Router /api/common/feature/get [get]
func (s *Server) listFeatures(c *gin.Context) {
	features := []models.Feature{}
	if err := getDB(c).Order("created_at ASC").Find(&features).Error; err != nil {
		s.sendInternalError(c, err, "Failed to list feature images")
		return
	}
	sendData(c, features)
}

// @Summary Delete feature image
// @Tags feature
// @Router /api/common/feature/delete/{id} [delete]
func (s *Server) deleteFeature(c *gin.Context) {
	result := getDB(c).Where("id = ?", c.Param("id")).Delete(&models.Feature{})
	if result.Error != nil {
		s.sendInternalError(c, result.Error, "Failed to delete feature image")
		return
	}
	if result.RowsAffected == 0 {
		sendError(c, http.StatusNotFound, "Feature image not found")
		return
	}
	sendSuccess(c, "Feature image deleted", nil)
}
