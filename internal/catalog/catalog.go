// Package catalog provides the product database backing the reference
// toolset. It runs on an in-memory SQLite database by default so the service
// is self-contained; a Postgres DSN can be configured instead.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/go-logr/logr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/edderleonardo/adk-agui-tutorial/pkg/apperrors"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned by Get for an unknown product id.
var ErrNotFound = errors.New("catalog: product not found")

// Product is one catalog entry. Position preserves the catalog's natural
// ordering, which search results must keep.
type Product struct {
	ID          string  `gorm:"primaryKey" json:"id"`
	Position    int     `gorm:"index" json:"-"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Rating      float64 `json:"rating"`
	InStock     bool    `json:"in_stock"`
	Description string  `json:"description"`
}

// Filters narrows a search. Nil pointer fields are not applied.
type Filters struct {
	Category    *string
	MaxPrice    *float64
	InStockOnly bool
}

// Config selects the database backing the catalog.
type Config struct {
	Driver string
	DSN    string
}

// Store is the catalog repository.
type Store struct {
	db  *gorm.DB
	log logr.Logger
}

// Open connects to the configured database, migrates the schema and seeds
// the reference products if the table is empty.
func Open(cfg Config, log logr.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite, "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, apperrors.New(apperrors.ErrCodeConfigInvalid, "postgres catalog requires a DSN", nil)
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, apperrors.New(apperrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unsupported catalog driver %q", cfg.Driver), nil)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeCatalog, "failed to open catalog database", err)
	}
	if err := db.AutoMigrate(&Product{}); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeCatalog, "failed to migrate catalog schema", err)
	}

	s := &Store{db: db, log: log}
	if err := s.seed(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) seed() error {
	var count int64
	if err := s.db.Model(&Product{}).Count(&count).Error; err != nil {
		return apperrors.New(apperrors.ErrCodeCatalog, "failed to inspect catalog", err)
	}
	if count > 0 {
		return nil
	}
	if err := s.db.Create(seedProducts()).Error; err != nil {
		return apperrors.New(apperrors.ErrCodeCatalog, "failed to seed catalog", err)
	}
	s.log.V(1).Info("seeded catalog", "products", len(seedProducts()))
	return nil
}

// Search returns products whose name or description contains query
// (case-insensitive), narrowed by the supplied filters, in catalog order.
func (s *Store) Search(ctx context.Context, query string, f Filters) ([]Product, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	tx := s.db.WithContext(ctx).
		Where("lower(name) LIKE ? OR lower(description) LIKE ?", pattern, pattern)
	if f.Category != nil {
		tx = tx.Where("category = ?", *f.Category)
	}
	if f.MaxPrice != nil {
		tx = tx.Where("price <= ?", *f.MaxPrice)
	}
	if f.InStockOnly {
		tx = tx.Where("in_stock = ?", true)
	}

	var products []Product
	if err := tx.Order("position").Find(&products).Error; err != nil {
		return nil, apperrors.New(apperrors.ErrCodeCatalog, "catalog search failed", err)
	}
	return products, nil
}

// Get returns the product with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeCatalog, "catalog lookup failed", err)
	}
	return &p, nil
}

// IDs returns every product id in catalog order.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Product{}).Order("position").Pluck("id", &ids).Error
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeCatalog, "catalog id listing failed", err)
	}
	return ids, nil
}

func seedProducts() []Product {
	return []Product{
		{
			ID: "prod_001", Position: 1,
			Name: "Wireless Headphones Pro", Price: 149.99,
			Category: "electronics", Rating: 4.5, InStock: true,
			Description: "Premium wireless headphones with noise cancellation",
		},
		{
			ID: "prod_002", Position: 2,
			Name: "Mechanical Keyboard RGB", Price: 89.99,
			Category: "electronics", Rating: 4.8, InStock: true,
			Description: "Mechanical gaming keyboard with RGB lighting",
		},
		{
			ID: "prod_003", Position: 3,
			Name: "Ergonomic Mouse", Price: 59.99,
			Category: "electronics", Rating: 4.2, InStock: false,
			Description: "Ergonomic wireless mouse for comfortable use",
		},
		{
			ID: "prod_004", Position: 4,
			Name: "4K Monitor 27 inch", Price: 399.99,
			Category: "electronics", Rating: 4.7, InStock: true,
			Description: "27 inch 4K UHD monitor for professionals",
		},
		{
			ID: "prod_005", Position: 5,
			Name: "USB-C Hub", Price: 49.99,
			Category: "accessories", Rating: 4.3, InStock: true,
			Description: "Multi-port USB-C hub with HDMI and SD card reader",
		},
	}
}
