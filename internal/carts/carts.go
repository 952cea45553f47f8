// Package carts manages per-user shopping carts.
package carts

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/models"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrItemNotFound     = errors.New("cart item not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrInvalidArguments = errors.New("user and product are required")
)

// View is a cart with its items joined to the current product data
type View struct {
	ID     string     `json:"id"`
	UserID string     `json:"userId"`
	Items  []ItemView `json:"items"`
}

// ItemView is one populated cart line
type ItemView struct {
	ProductID string  `json:"productId"`
	Image     string  `json:"image"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	SalePrice float64 `json:"salePrice"`
	Quantity  int     `json:"quantity"`
}

// AddItem adds quantity of a product to the user's cart, creating the cart on
// first use. Adding a product already in the cart increases its quantity.
func AddItem(ctx context.Context, db *gorm.DB, userID, productID string, quantity int) (*View, error) {
	if userID == "" || productID == "" {
		return nil, ErrInvalidArguments
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := models.FindByID(tx, productID, &product); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		var cart models.Cart
		err := tx.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error
		if err != nil {
			return err
		}

		var item models.CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&item).Update("quantity", item.Quantity+quantity).Error; err != nil {
				return err
			}
		}

		return touch(tx, &cart)
	})
	if err != nil {
		return nil, err
	}

	return Get(ctx, db, userID)
}

// UpdateQuantity sets the quantity of a product already in the cart
func UpdateQuantity(ctx context.Context, db *gorm.DB, userID, productID string, quantity int) (*View, error) {
	if userID == "" || productID == "" {
		return nil, ErrInvalidArguments
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := findCart(tx, userID)
		if err != nil {
			return err
		}

		result := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			Update("quantity", quantity)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrItemNotFound
		}

		return touch(tx, cart)
	})
	if err != nil {
		return nil, err
	}

	return Get(ctx, db, userID)
}

// RemoveItem deletes a product from the user's cart
func RemoveItem(ctx context.Context, db *gorm.DB, userID, productID string) (*View, error) {
	if userID == "" || productID == "" {
		return nil, ErrInvalidArguments
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := findCart(tx, userID)
		if err != nil {
			return err
		}

		result := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).Delete(&models.CartItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrItemNotFound
		}

		return touch(tx, cart)
	})
	if err != nil {
		return nil, err
	}

	return Get(ctx, db, userID)
}

// Get returns the populated cart of a user. Items whose product has been
// deleted are left out.
func Get(ctx context.Context, db *gorm.DB, userID string) (*View, error) {
	if userID == "" {
		return nil, ErrInvalidArguments
	}

	db = db.WithContext(ctx)

	cart, err := findCart(db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC").Order("id ASC")
	}), userID)
	if err != nil {
		return nil, err
	}

	productIDs := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		productIDs = append(productIDs, item.ProductID)
	}

	products := map[string]models.Product{}
	if len(productIDs) > 0 {
		var found []models.Product
		if err := db.Where("id IN ?", productIDs).Find(&found).Error; err != nil {
			return nil, err
		}
		for _, p := range found {
			products[p.ID] = p
		}
	}

	view := &View{ID: cart.ID, UserID: cart.UserID, Items: []ItemView{}}
	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			continue
		}
		view.Items = append(view.Items, ItemView{
			ProductID: product.ID,
			Image:     product.Image,
			Title:     product.Title,
			Price:     product.Price,
			SalePrice: product.SalePrice,
			Quantity:  item.Quantity,
		})
	}
	return view, nil
}

// Delete removes a cart of userID and its items. A cart owned by someone
// else is left untouched.
func Delete(ctx context.Context, tx *gorm.DB, userID, cartID string) error {
	tx = tx.WithContext(ctx)
	owned := tx.Model(&models.Cart{}).Select("id").Where("id = ? AND user_id = ?", cartID, userID)
	if err := tx.Where("cart_id IN (?)", owned).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ? AND user_id = ?", cartID, userID).Delete(&models.Cart{}).Error
}

// Prune deletes carts not modified for olderThan and returns how many were
// removed
func Prune(ctx context.Context, db *gorm.DB, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	var removed int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.Cart{}).Select("id").Where("updated_at < ?", cutoff)

		if err := tx.Where("cart_id IN (?)", stale).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		result := tx.Where("updated_at < ?", cutoff).Delete(&models.Cart{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	return removed, err
}

func findCart(db *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return &cart, nil
}

func touch(tx *gorm.DB, cart *models.Cart) error {
	return tx.Model(cart).Update("updated_at", time.Now()).Error
}
