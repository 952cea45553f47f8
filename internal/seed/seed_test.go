package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-dev/storefront/internal/auth"
	"github.com/storefront-dev/storefront/internal/models"
	"github.com/storefront-dev/storefront/internal/testhelpers"
)

const catalog = `
admin:
  userName: admin
  email: admin@example.com
  password: change-me
products:
  - title: Runner
    category: footwear
    brand: nike
    price: 100
    salePrice: 80
    totalStock: 10
  - title: Scarf
    category: accessories
    brand: zara
    price: 20
    totalStock: 3
features:
  - https://cdn.example.com/banner-1.jpg
`

func TestParse_Validates(t *testing.T) {
	_, err := Parse([]byte("products:\n  - price: 5\n"))
	assert.ErrorContains(t, err, "title is required")

	_, err = Parse([]byte("products:\n  - title: x\n    totalStock: -1\n"))
	assert.ErrorContains(t, err, "must not be negative")

	_, err = Parse([]byte("admin:\n  email: a@b.c\n"))
	assert.ErrorContains(t, err, "admin")

	_, err = Parse([]byte("products: [unclosed"))
	assert.Error(t, err)
}

func TestApply_IsIdempotent(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()

	f, err := Parse([]byte(catalog))
	require.NoError(t, err)

	summary, err := Apply(ctx, db, f)
	require.NoError(t, err)
	assert.Equal(t, Summary{Admin: true, Products: 2, Features: 1}, summary)

	summary, err = Apply(ctx, db, f)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)

	var products int64
	require.NoError(t, db.Model(&models.Product{}).Count(&products).Error)
	assert.Equal(t, int64(2), products)

	var admin models.User
	require.NoError(t, db.Where("email = ?", "admin@example.com").First(&admin).Error)
	assert.True(t, admin.IsAdmin())
	assert.NoError(t, auth.VerifyPassword("change-me", admin.PasswordHash))
}

func TestSetup_ReadsFile(t *testing.T) {
	db := testhelpers.NewDB(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o600))

	require.NoError(t, Setup(path, zerolog.Nop())(context.Background(), db))

	var features int64
	require.NoError(t, db.Model(&models.Feature{}).Count(&features).Error)
	assert.Equal(t, int64(1), features)

	assert.NoError(t, Setup("", zerolog.Nop())(context.Background(), db))
	assert.Error(t, Setup(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())(context.Background(), db))
}
