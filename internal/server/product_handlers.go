package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/catalog"
	"github.com/storefront-dev/storefront/internal/models"
)

// ProductRequest is the body of the admin add and edit routes
type ProductRequest struct {
	Image       string   `json:"image"`
	Title       string   `json:"title" validate:"required,notblank"`
	Description string   `json:"description"`
	Category    string   `json:"category" validate:"required"`
	Brand       string   `json:"brand" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	SalePrice   float64  `json:"salePrice" validate:"gte=0"`
	TotalStock  *int     `json:"totalStock" validate:"required,gte=0"`
}

func (r *ProductRequest) apply(p *models.Product) {
	p.Image = r.Image
	p.Title = r.Title
	p.Description = r.Description
	p.Category = r.Category
	p.Brand = r.Brand
	p.Price = *r.Price
	p.SalePrice = r.SalePrice
	p.TotalStock = *r.TotalStock
}

// @Summary Add product
// @Tags admin
// @Router /api/admin/products/add [post]
func (s *Server) addProduct(c *gin.Context) {
	var req ProductRequest
	if !s.bindJSON(c, &req) {
		return
	}

	var product models.Product
	req.apply(&product)
	if err := getDB(c).Create(&product).Error; err != nil {
		s.sendInternalError(c, err, "Failed to create product")
		return
	}

	s.logger.Info().Str("product_id", product.ID).Str("title", product.Title).Msg("Product added")
	c.JSON(http.StatusCreated, Response{Success: true, Data: product})
}

// @Summary Edit product
// @Tags admin
// @Router /api/admin/products/edit/{id} [put]
func (s *Server) editProduct(c *gin.Context) {
	var req ProductRequest
	if !s.bindJSON(c, &req) {
		return
	}
	db := getDB(c)

	product, ok := s.findProduct(c, db, c.Param("id"))
	if !ok {
		return
	}

	req.apply(product)
	if err := db.Save(product).Error; err != nil {
		s.sendInternalError(c, err, "Failed to update product")
		return
	}

	sendData(c, product)
}

// @Summary Delete product
// @Tags admin
// @Router /api/admin/products/delete/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	result := getDB(c).Where("id = ?", c.Param("id")).Delete(&models.Product{})
	if result.Error != nil {
		s.sendInternalError(c, result.Error, "Failed to delete product")
		return
	}
	if result.RowsAffected == 0 {
		sendError(c, http.StatusNotFound, "Product not found")
		return
	}

	s.logger.Info().Str("product_id", c.Param("id")).Msg("Product deleted")
	sendSuccess(c, "Product delete successfully", nil)
}

// @Summary List all products
// @Tags admin
// @Router /api/admin/products/get [get]
func (s *Server) listAllProducts(c *gin.Context) {
	products := []models.Product{}
	if err := getDB(c).Order("created_at DESC").Find(&products).Error; err != nil {
		s.sendInternalError(c, err, "Failed to list products")
		return
	}
	sendData(c, products)
}

// @Summary List products with filters
// @Tags shop
// @Param category query string false "comma separated categories"
// @Param brand query string false "comma separated brands"
// @Param sortBy query string false "price-lowtohigh, price-hightolow, title-atoz, title-ztoa"
// @Router /api/shop/products/get [get]
func (s *Server) listFilteredProducts(c *gin.Context) {
	filter := catalog.ParseFilter(c.Query("category"), c.Query("brand"), c.Query("sortBy"))

	products, err := catalog.List(c.Request.Context(), getDB(c), filter)
	if err != nil {
		s.sendInternalError(c, err, "Failed to list products")
		return
	}
	sendData(c, products)
}

// @Summary Product details
// @Tags shop
// @Router /api/shop/products/get/{id} [get]
func (s *Server) productDetails(c *gin.Context) {
	product, ok := s.findProduct(c, getDB(c), c.Param("id"))
	if !ok {
		return
	}
	sendData(c, product)
}

// @Summary Search products
// @Tags shop
// @Router /api/shop/search/{keyword} [get]
func (s *Server) searchProducts(c *gin.Context) {
	products, err := catalog.Search(c.Request.Context(), getDB(c), c.Param("keyword"))
	if err != nil {
		if errors.Is(err, catalog.ErrEmptyKeyword) {
			sendError(c, http.StatusBadRequest, "Keyword is required and must be in string format")
			return
		}
		s.sendInternalError(c, err, "Failed to search products")
		return
	}
	sendData(c, products)
}

func (s *Server) findProduct(c *gin.Context, db *gorm.DB, id string) (*models.Product, bool) {
	var product models.Product
	if err := models.FindByID(db, id, &product); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendError(c, http.StatusNotFound, "Product not found!")
			return nil, false
		}
		s.sendInternalError(c, err, "Failed to load product")
		return nil, false
	}
	return &product, true
}
