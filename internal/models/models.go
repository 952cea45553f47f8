package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/assert"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Order and payment states
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusInProcess  = "inProcess"
	OrderStatusInShipping = "inShipping"
	OrderStatusDelivered  = "delivered"
	OrderStatusRejected   = "rejected"
	OrderStatusCancelled  = "cancelled"

	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusExpired = "expired"
)

// OrderStatuses lists the states an admin may move an order into
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusInProcess,
	OrderStatusInShipping,
	OrderStatusDelivered,
	OrderStatusRejected,
	OrderStatusCancelled,
}

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	assert.Length(b.ID, ulid.EncodedSize)
	return nil
}

// User is a storefront account
type User struct {
	BaseModel
	UserName     string `json:"userName" gorm:"unique;not null"`
	Email        string `json:"email" gorm:"unique;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	Role         string `json:"role" gorm:"not null;default:user"`
}

// IsAdmin reports whether the user may use the admin routes
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Product is a catalog entry
type Product struct {
	BaseModel
	Image         string  `json:"image"`
	Title         string  `json:"title" gorm:"not null;index"`
	Description   string  `json:"description" gorm:"type:text"`
	Category      string  `json:"category" gorm:"index"`
	Brand         string  `json:"brand" gorm:"index"`
	Price         float64 `json:"price" gorm:"not null;default:0"`
	SalePrice     float64 `json:"salePrice" gorm:"not null;default:0"`
	TotalStock    int     `json:"totalStock" gorm:"not null;default:0"`
	AverageReview float64 `json:"averageReview" gorm:"not null;default:0"`
}

// EffectivePrice is the sale price when one is set, otherwise the list price
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice > 0 {
		return p.SalePrice
	}
	return p.Price
}

// Cart holds the pending line items of one user
type Cart struct {
	BaseModel
	UserID string     `json:"userId" gorm:"type:varchar(26);unique;not null"`
	Items  []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

// CartItem is one product line in a cart
type CartItem struct {
	BaseModel
	CartID    string `json:"-" gorm:"type:varchar(26);not null;index"`
	ProductID string `json:"productId" gorm:"type:varchar(26);not null"`
	Quantity  int    `json:"quantity" gorm:"not null"`
}

// Address is an entry of a user's address book
type Address struct {
	BaseModel
	UserID  string `json:"userId" gorm:"type:varchar(26);not null;index"`
	Address string `json:"address" gorm:"not null"`
	City    string `json:"city" gorm:"not null"`
	Pincode string `json:"pincode" gorm:"not null"`
	Phone   string `json:"phone" gorm:"not null"`
	Notes   string `json:"notes"`
}

// OrderItem is a snapshot of a cart line at checkout time
type OrderItem struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// OrderAddress is a snapshot of the shipping address at checkout time
type OrderAddress struct {
	AddressID string `json:"addressId"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Pincode   string `json:"pincode"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
}

// Order is a placed order. Line items and the address are embedded
// documents stored as JSON.
type Order struct {
	BaseModel
	UserID          string       `json:"userId" gorm:"type:varchar(26);not null;index"`
	CartID          string       `json:"cartId"`
	CartItems       []OrderItem  `json:"cartItems" gorm:"serializer:json;type:text"`
	AddressInfo     OrderAddress `json:"addressInfo" gorm:"serializer:json;type:text"`
	OrderStatus     string       `json:"orderStatus" gorm:"not null;default:pending"`
	PaymentMethod   string       `json:"paymentMethod"`
	PaymentStatus   string       `json:"paymentStatus" gorm:"not null;default:pending"`
	TotalAmount     float64      `json:"totalAmount" gorm:"not null"`
	OrderDate       time.Time    `json:"orderDate"`
	OrderUpdateDate time.Time    `json:"orderUpdateDate"`
	PaymentID       string       `json:"paymentId"`
	PayerID         string       `json:"payerId"`
}

// HasProduct reports whether the order contains the given product
func (o *Order) HasProduct(productID string) bool {
	for _, item := range o.CartItems {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// ProductReview is a rating left by a buyer
type ProductReview struct {
	BaseModel
	ProductID     string `json:"productId" gorm:"type:varchar(26);not null;uniqueIndex:idx_review_product_user"`
	UserID        string `json:"userId" gorm:"type:varchar(26);not null;uniqueIndex:idx_review_product_user"`
	UserName      string `json:"userName"`
	ReviewMessage string `json:"reviewMessage" gorm:"type:text"`
	ReviewValue   int    `json:"reviewValue" gorm:"not null"`
}

// Feature is a promotional banner shown on the storefront home page
type Feature struct {
	BaseModel
	Image string `json:"image" gorm:"not null"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&User{}, &Product{}, &Cart{}, &CartItem{}, &Address{}, &Order{}, &ProductReview{}, &Feature{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
