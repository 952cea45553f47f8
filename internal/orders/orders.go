// Package orders implements checkout, payment capture and order lifecycle.
package orders

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/carts"
	"github.com/storefront-dev/storefront/internal/models"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrAddressNotFound   = errors.New("address not found")
	ErrCartNotFound      = errors.New("cart not found")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrIncompleteAddress = errors.New("address, city, pincode and phone are required")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrNotPending        = errors.New("order is no longer awaiting payment")
	ErrInvalidStatus     = errors.New("invalid order status")
)

// InsufficientStockError reports a product that cannot cover the ordered
// quantity
type InsufficientStockError struct {
	ProductID string
	Title     string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough stock for this product %s", e.Title)
}

// LineItem is a requested product and quantity
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreateInput describes a checkout request
type CreateInput struct {
	UserID        string
	CartID        string
	Items         []LineItem
	Address       models.OrderAddress
	PaymentMethod string
}

// Create places a pending order. Titles, images and prices are snapshotted
// from the catalog and the total is computed here; client supplied amounts
// are not trusted.
func Create(ctx context.Context, db *gorm.DB, in CreateInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	var order *models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		address, err := resolveAddress(tx, in.UserID, in.Address)
		if err != nil {
			return err
		}

		if in.CartID != "" {
			if err := checkCartOwner(tx, in.UserID, in.CartID); err != nil {
				return err
			}
		}

		items := make([]models.OrderItem, 0, len(in.Items))
		var total float64
		for _, line := range in.Items {
			if line.Quantity <= 0 {
				return ErrInvalidQuantity
			}

			var product models.Product
			if err := models.FindByID(tx, line.ProductID, &product); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
				}
				return err
			}

			price := product.EffectivePrice()
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Title:     product.Title,
				Image:     product.Image,
				Price:     price,
				Quantity:  line.Quantity,
			})
			total += price * float64(line.Quantity)
		}

		now := time.Now().UTC()
		order = &models.Order{
			UserID:          in.UserID,
			CartID:          in.CartID,
			CartItems:       items,
			AddressInfo:     address,
			OrderStatus:     models.OrderStatusPending,
			PaymentMethod:   in.PaymentMethod,
			PaymentStatus:   models.PaymentStatusPending,
			TotalAmount:     total,
			OrderDate:       now,
			OrderUpdateDate: now,
		}
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Capture records a successful payment: the order is confirmed, stock is
// decremented for every line and the originating cart is deleted, all in one
// transaction.
func Capture(ctx context.Context, db *gorm.DB, orderID, paymentID, payerID string) (*models.Order, error) {
	var order models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOrder(tx, orderID, &order); err != nil {
			return err
		}
		if order.PaymentStatus != models.PaymentStatusPending {
			return ErrNotPending
		}

		for _, item := range order.CartItems {
			if err := decrementStock(tx, item); err != nil {
				return err
			}
		}

		order.OrderStatus = models.OrderStatusConfirmed
		order.PaymentStatus = models.PaymentStatusPaid
		order.PaymentID = paymentID
		order.PayerID = payerID
		order.OrderUpdateDate = time.Now().UTC()
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		if order.CartID != "" {
			return carts.Delete(ctx, tx, order.UserID, order.CartID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Expire cancels an order whose payment is still pending. It reports whether
// the order was changed; orders that were paid or already expired are left
// alone.
func Expire(ctx context.Context, db *gorm.DB, orderID string) (bool, error) {
	result := db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, models.PaymentStatusPending).
		Updates(map[string]any{
			"order_status":      models.OrderStatusCancelled,
			"payment_status":    models.PaymentStatusExpired,
			"order_update_date": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateStatus moves an order to status
func UpdateStatus(ctx context.Context, db *gorm.DB, orderID, status string) (*models.Order, error) {
	if !slices.Contains(models.OrderStatuses, status) {
		return nil, ErrInvalidStatus
	}

	var order models.Order
	if err := findOrder(db.WithContext(ctx), orderID, &order); err != nil {
		return nil, err
	}

	order.OrderStatus = status
	order.OrderUpdateDate = time.Now().UTC()
	if err := db.WithContext(ctx).Save(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Get loads one order
func Get(ctx context.Context, db *gorm.DB, orderID string) (*models.Order, error) {
	var order models.Order
	if err := findOrder(db.WithContext(ctx), orderID, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns a user's orders, newest first
func ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := db.WithContext(ctx).Where("user_id = ?", userID).Order("order_date DESC").Find(&orders).Error
	return orders, err
}

// ListAll returns every order, newest first
func ListAll(ctx context.Context, db *gorm.DB) ([]models.Order, error) {
	orders := []models.Order{}
	err := db.WithContext(ctx).Order("order_date DESC").Find(&orders).Error
	return orders, err
}

// HasPurchased reports whether the user has a confirmed or delivered order
// containing the product
func HasPurchased(ctx context.Context, db *gorm.DB, userID, productID string) (bool, error) {
	var orders []models.Order
	err := db.WithContext(ctx).
		Where("user_id = ? AND order_status IN ?", userID, []string{models.OrderStatusConfirmed, models.OrderStatusDelivered}).
		Find(&orders).Error
	if err != nil {
		return false, err
	}

	for i := range orders {
		if orders[i].HasProduct(productID) {
			return true, nil
		}
	}
	return false, nil
}

func findOrder(db *gorm.DB, orderID string, order *models.Order) error {
	if err := models.FindByID(db, orderID, order); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	return nil
}

// decrementStock takes quantity out of stock only if enough is left, so two
// concurrent captures cannot oversell
func decrementStock(tx *gorm.DB, item models.OrderItem) error {
	result := tx.Model(&models.Product{}).
		Where("id = ? AND total_stock >= ?", item.ProductID, item.Quantity).
		UpdateColumn("total_stock", gorm.Expr("total_stock - ?", item.Quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var product models.Product
	if err := models.FindByID(tx, item.ProductID, &product); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		return err
	}
	return &InsufficientStockError{ProductID: product.ID, Title: product.Title}
}

func resolveAddress(tx *gorm.DB, userID string, in models.OrderAddress) (models.OrderAddress, error) {
	if in.AddressID != "" {
		var address models.Address
		err := tx.Where("id = ? AND user_id = ?", in.AddressID, userID).First(&address).Error
		if err == nil {
			return models.OrderAddress{
				AddressID: address.ID,
				Address:   address.Address,
				City:      address.City,
				Pincode:   address.Pincode,
				Phone:     address.Phone,
				Notes:     address.Notes,
			}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.OrderAddress{}, err
		}
		return models.OrderAddress{}, ErrAddressNotFound
	}

	if in.Address == "" || in.City == "" || in.Pincode == "" || in.Phone == "" {
		return models.OrderAddress{}, ErrIncompleteAddress
	}
	return in, nil
}

func checkCartOwner(tx *gorm.DB, userID, cartID string) error {
	var count int64
	err := tx.Model(&models.Cart{}).
		Where("id = ? AND user_id = ?", cartID, userID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrCartNotFound
	}
	return nil
}
