package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xelth-com/eckclaims/internal/database"
	"github.com/xelth-com/eckclaims/internal/models"
	"gorm.io/gorm"
)

// SearchLimit caps product search results
const SearchLimit = 50

// Store reads and replaces the product master table
type Store struct {
	db *gorm.DB
}

// NewStore creates a catalog store on db
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Lookup returns the product with code, or nil when the code is unknown
func (s *Store) Lookup(ctx context.Context, code string) (*models.ProductMaster, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var p models.ProductMaster
	err := s.db.WithContext(ctx).Where("product_code = ?", code).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup product %s: %w", code, err)
	}
	return &p, nil
}

// Search matches code, name or brand case-insensitively, code ascending
func (s *Store) Search(ctx context.Context, query string) ([]models.ProductMaster, error) {
	products := []models.ProductMaster{}
	query = strings.TrimSpace(query)
	if query == "" {
		return products, nil
	}
	pattern := database.ContainsPattern(query)
	err := s.db.WithContext(ctx).
		Where("LOWER(product_code) LIKE ? ESCAPE '!' OR LOWER(product_name) LIKE ? ESCAPE '!' OR LOWER(brand_name) LIKE ? ESCAPE '!'", pattern, pattern, pattern).
		Order("product_code ASC").
		Limit(SearchLimit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

// Count returns the number of catalog rows
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ProductMaster{}).Count(&n).Error
	return n, err
}

// ReplaceAll deletes every product and inserts rows in one transaction.
// Rows repeating an oid or product code already seen in the upload are skipped.
func (s *Store) ReplaceAll(ctx context.Context, rows []models.ProductMaster) (int, error) {
	seenCode := make(map[string]bool, len(rows))
	seenOID := make(map[int64]bool, len(rows))
	unique := make([]models.ProductMaster, 0, len(rows))
	for _, r := range rows {
		if seenCode[r.ProductCode] || seenOID[r.OID] {
			continue
		}
		seenCode[r.ProductCode] = true
		seenOID[r.OID] = true
		unique = append(unique, r)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ProductMaster{}).Error; err != nil {
			return err
		}
		if len(unique) == 0 {
			return nil
		}
		return tx.CreateInBatches(unique, 500).Error
	})
	if err != nil {
		return 0, fmt.Errorf("replace product catalog: %w", err)
	}
	return len(unique), nil
}
