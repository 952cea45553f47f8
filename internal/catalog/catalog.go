// Package catalog holds product listing, search and rating queries.
package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/models"
)

// Sort orders accepted by the shop listing
const (
	SortPriceLowToHigh = "price-lowtohigh"
	SortPriceHighToLow = "price-hightolow"
	SortTitleAToZ      = "title-atoz"
	SortTitleZToA      = "title-ztoa"
)

var ErrEmptyKeyword = errors.New("keyword is empty")

var sortClauses = map[string]string{
	SortPriceLowToHigh: "price ASC",
	SortPriceHighToLow: "price DESC",
	SortTitleAToZ:      "title ASC",
	SortTitleZToA:      "title DESC",
}

// Filter narrows and orders the product listing
type Filter struct {
	Categories []string
	Brands     []string
	SortBy     string
}

// ParseFilter builds a filter from the comma separated query parameters used
// by the storefront. Unknown sort orders fall back to price ascending.
func ParseFilter(category, brand, sortBy string) Filter {
	f := Filter{
		Categories: splitCSV(category),
		Brands:     splitCSV(brand),
		SortBy:     sortBy,
	}
	if _, ok := sortClauses[f.SortBy]; !ok {
		f.SortBy = SortPriceLowToHigh
	}
	return f
}

// List returns the products matching f
func List(ctx context.Context, db *gorm.DB, f Filter) ([]models.Product, error) {
	query := db.WithContext(ctx).Model(&models.Product{})
	if len(f.Categories) > 0 {
		query = query.Where("category IN ?", f.Categories)
	}
	if len(f.Brands) > 0 {
		query = query.Where("brand IN ?", f.Brands)
	}

	order, ok := sortClauses[f.SortBy]
	if !ok {
		order = sortClauses[SortPriceLowToHigh]
	}

	products := []models.Product{}
	if err := query.Order(order).Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Search returns products whose title, description, category or brand
// contains keyword, ignoring case
func Search(ctx context.Context, db *gorm.DB, keyword string) ([]models.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}

	pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"

	products := []models.Product{}
	err := db.WithContext(ctx).
		Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\' OR LOWER(brand) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern, pattern).
		Order("title ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// RecomputeAverageReview stores the mean review value on the product and
// returns it
func RecomputeAverageReview(ctx context.Context, tx *gorm.DB, productID string) (float64, error) {
	var avg struct {
		Value float64
	}
	err := tx.WithContext(ctx).
		Model(&models.ProductReview{}).
		Select("COALESCE(AVG(review_value), 0) AS value").
		Where("product_id = ?", productID).
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}

	err = tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("average_review", avg.Value).Error
	if err != nil {
		return 0, err
	}
	return avg.Value, nil
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
