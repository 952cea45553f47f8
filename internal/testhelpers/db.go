// Package testhelpers provides database fixtures shared by package tests.
package testhelpers

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/auth"
	"github.com/storefront-dev/storefront/internal/database"
	"github.com/storefront-dev/storefront/internal/models"
)

// NewDB opens a migrated in-memory SQLite database that is closed with the test
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// CreateUser inserts a user with the given role and password
func CreateUser(t *testing.T, db *gorm.DB, userName, email, password, role string) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateProduct inserts a product
func CreateProduct(t *testing.T, db *gorm.DB, product models.Product) *models.Product {
	t.Helper()

	require.NoError(t, db.Create(&product).Error)
	return &product
}
