package traffic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xelth-com/eckclaims/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrSerialInUse rejects a second record with the same serial
	ErrSerialInUse  = errors.New("SerialNo already in use")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("traffic record not found")
)

// Store keeps weekly branch traffic counts
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create stores rec after checking its serial is unused
func (s *Store) Create(ctx context.Context, rec *models.TrafficRecord) error {
	rec.SerialNo = strings.TrimSpace(rec.SerialNo)
	if rec.SerialNo == "" || strings.TrimSpace(rec.Branch) == "" {
		return fmt.Errorf("%w: branch and serial number are required", ErrInvalidInput)
	}
	if rec.Traffic < 0 {
		return fmt.Errorf("%w: traffic cannot be negative", ErrInvalidInput)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.TrafficRecord{}).Where("serial_no = ?", rec.SerialNo).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrSerialInUse
	}

	err := s.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSerialInUse
	}
	return err
}

// List returns every record, newest first
func (s *Store) List(ctx context.Context) ([]models.TrafficRecord, error) {
	records := []models.TrafficRecord{}
	err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&records).Error
	return records, err
}

// Get returns one record by id
func (s *Store) Get(ctx context.Context, id uint) (*models.TrafficRecord, error) {
	var rec models.TrafficRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get traffic %d: %w", id, err)
	}
	return &rec, nil
}
