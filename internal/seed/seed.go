// Package seed loads a YAML catalog (products, banners and an optional admin
// account) into an empty or partially populated database.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/auth"
	"github.com/storefront-dev/storefront/internal/models"
)

// File is the on-disk seed format
type File struct {
	Admin    *Admin    `yaml:"admin"`
	Products []Product `yaml:"products"`
	Features []string  `yaml:"features"`
}

// Admin describes the administrator account to create
type Admin struct {
	UserName string `yaml:"userName"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Product is one catalog entry
type Product struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Image       string  `yaml:"image"`
	Category    string  `yaml:"category"`
	Brand       string  `yaml:"brand"`
	Price       float64 `yaml:"price"`
	SalePrice   float64 `yaml:"salePrice"`
	TotalStock  int     `yaml:"totalStock"`
}

// Summary counts the rows created by Apply
type Summary struct {
	Admin    bool
	Products int
	Features int
}

// LoadFile reads and validates a seed file
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates seed data
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, p := range f.Products {
		if p.Title == "" {
			return nil, fmt.Errorf("product %d: title is required", i)
		}
		if p.Price < 0 || p.SalePrice < 0 || p.TotalStock < 0 {
			return nil, fmt.Errorf("product %q: price and stock must not be negative", p.Title)
		}
	}
	if f.Admin != nil && (f.Admin.Email == "" || f.Admin.Password == "" || f.Admin.UserName == "") {
		return nil, fmt.Errorf("admin: userName, email and password are required")
	}

	return &f, nil
}

// Apply inserts whatever part of the seed is not present yet. Products are
// matched by title, features by image and the admin by email, so running it
// again is a no-op.
func Apply(ctx context.Context, db *gorm.DB, f *File) (Summary, error) {
	var summary Summary

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if f.Admin != nil {
			created, err := ensureAdmin(tx, f.Admin)
			if err != nil {
				return err
			}
			summary.Admin = created
		}

		for _, p := range f.Products {
			product := models.Product{
				Title:       p.Title,
				Description: p.Description,
				Image:       p.Image,
				Category:    p.Category,
				Brand:       p.Brand,
				Price:       p.Price,
				SalePrice:   p.SalePrice,
				TotalStock:  p.TotalStock,
			}
			created, err := createMissing(tx, &product, "title = ?", p.Title)
			if err != nil {
				return fmt.Errorf("failed to seed product %q: %w", p.Title, err)
			}
			if created {
				summary.Products++
			}
		}

		for _, image := range f.Features {
			feature := models.Feature{Image: image}
			created, err := createMissing(tx, &feature, "image = ?", image)
			if err != nil {
				return fmt.Errorf("failed to seed feature: %w", err)
			}
			if created {
				summary.Features++
			}
		}
		return nil
	})
	return summary, err
}

// Setup returns a database setup step that applies the seed file at path. An
// empty path disables seeding.
func Setup(path string, zlog zerolog.Logger) func(ctx context.Context, db *gorm.DB) error {
	return func(ctx context.Context, db *gorm.DB) error {
		if path == "" {
			return nil
		}

		f, err := LoadFile(path)
		if err != nil {
			return err
		}

		summary, err := Apply(ctx, db, f)
		if err != nil {
			return err
		}

		zlog.Info().
			Str("file", path).
			Bool("admin_created", summary.Admin).
			Int("products_created", summary.Products).
			Int("features_created", summary.Features).
			Msg("Seed applied")
		return nil
	}
}

// createMissing inserts row unless a row of the same type matches the query
func createMissing[T any](tx *gorm.DB, row *T, query string, args ...any) (bool, error) {
	var count int64
	if err := tx.Model(new(T)).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	return true, tx.Create(row).Error
}

func ensureAdmin(tx *gorm.DB, admin *Admin) (bool, error) {
	var existing models.User
	err := tx.Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return false, err
	}

	user := models.User{
		UserName:     admin.UserName,
		Email:        admin.Email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := tx.Create(&user).Error; err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	return true, nil
}
