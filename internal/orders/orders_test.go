package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/carts"
	"github.com/storefront-dev/storefront/internal/models"
	"github.com/storefront-dev/storefront/internal/testhelpers"
)

var shipTo = models.OrderAddress{Address: "1 Main St", City: "Springfield", Pincode: "12345", Phone: "555-0100"}

type fixture struct {
	db    *gorm.DB
	user  *models.User
	shoe  *models.Product
	scarf *models.Product
}

func newFixture(t *testing.T) fixture {
	db := testhelpers.NewDB(t)
	return fixture{
		db:    db,
		user:  testhelpers.CreateUser(t, db, "ana", "ana@example.com", "secret123", models.RoleUser),
		shoe:  testhelpers.CreateProduct(t, db, models.Product{Title: "Runner", Price: 100, SalePrice: 80, TotalStock: 5}),
		scarf: testhelpers.CreateProduct(t, db, models.Product{Title: "Scarf", Price: 20, TotalStock: 1}),
	}
}

func TestCreate_SnapshotsPricesAndTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := Create(ctx, f.db, CreateInput{
		UserID:        f.user.ID,
		Items:         []LineItem{{ProductID: f.shoe.ID, Quantity: 2}, {ProductID: f.scarf.ID, Quantity: 1}},
		Address:       shipTo,
		PaymentMethod: "paypal",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.InDelta(t, 180.0, order.TotalAmount, 0.001)
	require.Len(t, order.CartItems, 2)
	assert.Equal(t, "Runner", order.CartItems[0].Title)
	assert.InDelta(t, 80.0, order.CartItems[0].Price, 0.001)

	stored, err := Get(ctx, f.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.CartItems, stored.CartItems)
	assert.Equal(t, "Springfield", stored.AddressInfo.City)

	var shoe models.Product
	require.NoError(t, f.db.First(&shoe, "id = ?", f.shoe.ID).Error)
	assert.Equal(t, 5, shoe.TotalStock, "stock only moves on capture")
}

func TestCreate_UsesSavedAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved := models.Address{UserID: f.user.ID, Address: "9 Elm", City: "Shelbyville", Pincode: "54321", Phone: "555-0199"}
	require.NoError(t, f.db.Create(&saved).Error)

	order, err := Create(ctx, f.db, CreateInput{
		UserID:  f.user.ID,
		Items:   []LineItem{{ProductID: f.scarf.ID, Quantity: 1}},
		Address: models.OrderAddress{AddressID: saved.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", order.AddressInfo.City)
	assert.Equal(t, saved.ID, order.AddressInfo.AddressID)

	other := testhelpers.CreateUser(t, f.db, "bo", "bo@example.com", "secret123", models.RoleUser)
	_, err = Create(ctx, f.db, CreateInput{
		UserID:  other.ID,
		Items:   []LineItem{{ProductID: f.scarf.ID, Quantity: 1}},
		Address: models.OrderAddress{AddressID: saved.ID},
	})
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestCreate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]struct {
		in   CreateInput
		want error
	}{
		"no items": {
			in:   CreateInput{UserID: f.user.ID, Address: shipTo},
			want: ErrEmptyOrder,
		},
		"unknown product": {
			in:   CreateInput{UserID: f.user.ID, Items: []LineItem{{ProductID: "missing", Quantity: 1}}, Address: shipTo},
			want: ErrProductNotFound,
		},
		"zero quantity": {
			in:   CreateInput{UserID: f.user.ID, Items: []LineItem{{ProductID: f.shoe.ID}}, Address: shipTo},
			want: ErrInvalidQuantity,
		},
		"unknown cart": {
			in:   CreateInput{UserID: f.user.ID, CartID: "someone-elses", Items: []LineItem{{ProductID: f.shoe.ID, Quantity: 1}}, Address: shipTo},
			want: ErrCartNotFound,
		},
		"partial address": {
			in:   CreateInput{UserID: f.user.ID, Items: []LineItem{{ProductID: f.shoe.ID, Quantity: 1}}, Address: models.OrderAddress{City: "x"}},
			want: ErrIncompleteAddress,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Create(ctx, f.db, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCapture_ConfirmsAndDecrementsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cart, err := carts.AddItem(ctx, f.db, f.user.ID, f.shoe.ID, 2)
	require.NoError(t, err)

	order, err := Create(ctx, f.db, CreateInput{
		UserID:  f.user.ID,
		CartID:  cart.ID,
		Items:   []LineItem{{ProductID: f.shoe.ID, Quantity: 2}},
		Address: shipTo,
	})
	require.NoError(t, err)

	captured, err := Capture(ctx, f.db, order.ID, "PAY-1", "PAYER-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, captured.OrderStatus)
	assert.Equal(t, models.PaymentStatusPaid, captured.PaymentStatus)
	assert.Equal(t, "PAY-1", captured.PaymentID)
	assert.Equal(t, "PAYER-1", captured.PayerID)

	var shoe models.Product
	require.NoError(t, f.db.First(&shoe, "id = ?", f.shoe.ID).Error)
	assert.Equal(t, 3, shoe.TotalStock)

	_, err = carts.Get(ctx, f.db, f.user.ID)
	assert.ErrorIs(t, err, carts.ErrCartNotFound)

	_, err = Capture(ctx, f.db, order.ID, "PAY-1", "PAYER-1")
	assert.ErrorIs(t, err, ErrNotPending)
	require.NoError(t, f.db.First(&shoe, "id = ?", f.shoe.ID).Error)
	assert.Equal(t, 3, shoe.TotalStock, "second capture must not decrement again")
}

func TestCapture_InsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := Create(ctx, f.db, CreateInput{
		UserID:  f.user.ID,
		Items:   []LineItem{{ProductID: f.shoe.ID, Quantity: 1}, {ProductID: f.scarf.ID, Quantity: 2}},
		Address: shipTo,
	})
	require.NoError(t, err)

	_, err = Capture(ctx, f.db, order.ID, "PAY-2", "PAYER-2")
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Not enough stock for this product Scarf", stockErr.Error())

	var shoe models.Product
	require.NoError(t, f.db.First(&shoe, "id = ?", f.shoe.ID).Error)
	assert.Equal(t, 5, shoe.TotalStock, "earlier decrements roll back")

	stored, err := Get(ctx, f.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestCapture_ConcurrentCapturesDoNotOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for range 3 {
		order, err := Create(ctx, f.db, CreateInput{
			UserID:  f.user.ID,
			Items:   []LineItem{{ProductID: f.scarf.ID, Quantity: 1}},
			Address: shipTo,
		})
		require.NoError(t, err)
		ids = append(ids, order.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = Capture(ctx, f.db, id, "PAY", "PAYER")
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	var scarf models.Product
	require.NoError(t, f.db.First(&scarf, "id = ?", f.scarf.ID).Error)
	assert.Equal(t, 0, scarf.TotalStock)
}

func TestExpire(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := Create(ctx, f.db, CreateInput{
		UserID:  f.user.ID,
		Items:   []LineItem{{ProductID: f.shoe.ID, Quantity: 1}},
		Address: shipTo,
	})
	require.NoError(t, err)

	changed, err := Expire(ctx, f.db, order.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := Get(ctx, f.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.OrderStatus)
	assert.Equal(t, models.PaymentStatusExpired, stored.PaymentStatus)

	changed, err = Expire(ctx, f.db, order.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = Capture(ctx, f.db, order.ID, "PAY", "PAYER")
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestExpire_LeavesPaidOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := Create(ctx, f.db, CreateInput{
		UserID:  f.user.ID,
		Items:   []LineItem{{ProductID: f.shoe.ID, Quantity: 1}},
		Address: shipTo,
	})
	require.NoError(t, err)
	_, err = Capture(ctx, f.db, order.ID, "PAY", "PAYER")
	require.NoError(t, err)

	changed, err := Expire(ctx, f.db, order.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := Get(ctx, f.db, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.OrderStatus)
}

func TestUpdateStatusAndListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := Create(ctx, f.db, CreateInput{
		UserID:  f.user.ID,
		Items:   []LineItem{{ProductID: f.shoe.ID, Quantity: 1}},
		Address: shipTo,
	})
	require.NoError(t, err)

	updated, err := UpdateStatus(ctx, f.db, order.ID, models.OrderStatusInShipping)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInShipping, updated.OrderStatus)

	_, err = UpdateStatus(ctx, f.db, order.ID, "teleported")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = UpdateStatus(ctx, f.db, "missing", models.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	mine, err := ListByUser(ctx, f.db, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := ListByUser(ctx, f.db, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := ListAll(ctx, f.db)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestHasPurchased(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := Create(ctx, f.db, CreateInput{
		UserID:  f.user.ID,
		Items:   []LineItem{{ProductID: f.shoe.ID, Quantity: 1}},
		Address: shipTo,
	})
	require.NoError(t, err)

	bought, err := HasPurchased(ctx, f.db, f.user.ID, f.shoe.ID)
	require.NoError(t, err)
	assert.False(t, bought, "unpaid orders do not count")

	_, err = Capture(ctx, f.db, order.ID, "PAY", "PAYER")
	require.NoError(t, err)

	bought, err = HasPurchased(ctx, f.db, f.user.ID, f.shoe.ID)
	require.NoError(t, err)
	assert.True(t, bought)

	bought, err = HasPurchased(ctx, f.db, f.user.ID, f.scarf.ID)
	require.NoError(t, err)
	assert.False(t, bought)
}
