package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-dev/storefront/internal/models"
	"github.com/storefront-dev/storefront/internal/orders"
	"github.com/storefront-dev/storefront/internal/testhelpers"
)

func ptr[T any](v T) *T { return &v }

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "ana", "ana@example.com", models.RoleUser)

	rec := env.do(t, http.MethodGet, "/api/admin/products/get", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/products/get", nil, env.login(t, "ana@example.com"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminProducts(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin", "admin@example.com", models.RoleAdmin)
	cookie := env.login(t, "admin@example.com")

	rec := env.do(t, http.MethodPost, "/api/admin/products/add", ProductRequest{
		Title: "Runner", Category: "footwear", Brand: "nike", Price: ptr(100.0), TotalStock: ptr(5),
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decode[envelope[models.Product]](t, rec).Data
	assert.NotEmpty(t, product.ID)

	rec = env.do(t, http.MethodPost, "/api/admin/products/add", ProductRequest{Title: "No price", Category: "x", Brand: "y"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/admin/products/edit/"+product.ID, ProductRequest{
		Title: "Runner 2", Category: "footwear", Brand: "nike", Price: ptr(110.0), SalePrice: 99, TotalStock: ptr(0),
	}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	edited := decode[envelope[models.Product]](t, rec).Data
	assert.Equal(t, "Runner 2", edited.Title)
	assert.Equal(t, 0, edited.TotalStock)

	rec = env.do(t, http.MethodGet, "/api/admin/products/get", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[envelope[[]models.Product]](t, rec).Data, 1)

	rec = env.do(t, http.MethodDelete, "/api/admin/products/delete/"+product.ID, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/admin/products/delete/"+product.ID, nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminOrders(t *testing.T) {
	env := newTestEnv(t)
	ana := env.createUser(t, "ana", "ana@example.com", models.RoleUser)
	env.createUser(t, "admin", "admin@example.com", models.RoleAdmin)
	shoe := testhelpers.CreateProduct(t, env.db, models.Product{Title: "Runner", Price: 100, TotalStock: 3})
	cookie := env.login(t, "admin@example.com")

	order, err := orders.Create(t.Context(), env.db, orders.CreateInput{
		UserID:  ana.ID,
		Items:   []orders.LineItem{{ProductID: shoe.ID, Quantity: 1}},
		Address: testAddress,
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/admin/orders/get", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[envelope[[]models.Order]](t, rec).Data, 1)

	rec = env.do(t, http.MethodGet, "/api/admin/orders/details/"+order.ID, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/admin/orders/update/"+order.ID, UpdateOrderStatusRequest{OrderStatus: models.OrderStatusInShipping}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.OrderStatusInShipping, decode[envelope[models.Order]](t, rec).Data.OrderStatus)

	rec = env.do(t, http.MethodPut, "/api/admin/orders/update/"+order.ID, UpdateOrderStatusRequest{OrderStatus: "lost"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// admins may read any user's orders through the shop routes too
	rec = env.do(t, http.MethodGet, "/api/shop/order/list/"+ana.ID, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFeatures(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "admin", "admin@example.com", models.RoleAdmin)
	env.createUser(t, "ana", "ana@example.com", models.RoleUser)
	admin := env.login(t, "admin@example.com")

	rec := env.do(t, http.MethodPost, "/api/common/feature/add", FeatureRequest{Image: "https://cdn.example.com/b.jpg"}, env.login(t, "ana@example.com"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/common/feature/add", FeatureRequest{Image: "https://cdn.example.com/b.jpg"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	feature := decode[envelope[models.Feature]](t, rec).Data

	rec = env.do(t, http.MethodGet, "/api/common/feature/get", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[envelope[[]models.Feature]](t, rec).Data, 1)

	rec = env.do(t, http.MethodDelete, "/api/common/feature/delete/"+feature.ID, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/common/feature/get", nil)
	assert.Empty(t, decode[envelope[[]models.Feature]](t, rec).Data)
}
