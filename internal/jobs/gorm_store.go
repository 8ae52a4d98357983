package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xelth-com/eckclaims/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormStore persists serial jobs through gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store on db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// translateError maps driver and gorm failures onto the jobs error taxonomy
func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConstraintViolation),
		errors.Is(err, ErrDuplicateSerial), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrStorageUnavailable), errors.Is(err, ErrForbidden):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

func (s *GormStore) take(ctx context.Context, query string, arg interface{}) (*models.SerialJob, error) {
	var job models.SerialJob
	err := s.db.WithContext(ctx).Where(query, arg).Take(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &job, nil
}

func (s *GormStore) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SerialJob{}).Where(query, arg).Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// FindBySerial matches the folded serial exactly
func (s *GormStore) FindBySerial(ctx context.Context, serial string) (*models.SerialJob, error) {
	return s.take(ctx, "serial_key = ?", models.FoldSerial(serial))
}

// FindByReplacementTarget returns jobs replacing serial, highest round first
func (s *GormStore) FindByReplacementTarget(ctx context.Context, serial string) ([]models.SerialJob, error) {
	var jobs []models.SerialJob
	err := s.db.WithContext(ctx).
		Where("replace_key = ?", models.FoldSerial(serial)).
		Order("round_number DESC").Order("created_at DESC").Order("id DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, translateError(err)
	}
	return jobs, nil
}

// FindByRowKey returns the job or nil
func (s *GormStore) FindByRowKey(ctx context.Context, rowKey string) (*models.SerialJob, error) {
	return s.take(ctx, "row_key = ?", rowKey)
}

// IdentityKeyExists reports whether any job uses key
func (s *GormStore) IdentityKeyExists(ctx context.Context, key string) (bool, error) {
	return s.exists(ctx, "identity_key = ?", key)
}

// RowKeyExists reports whether any job uses key
func (s *GormStore) RowKeyExists(ctx context.Context, key string) (bool, error) {
	return s.exists(ctx, "row_key = ?", key)
}

// HasSuccessor reports whether the chain has a round above round
func (s *GormStore) HasSuccessor(ctx context.Context, identityKey string, round int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SerialJob{}).
		Where("identity_key = ? AND round_number > ?", identityKey, round).
		Count(&count).Error
	if err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Create inserts job. The unique indexes on serial_key and row_key decide races.
func (s *GormStore) Create(ctx context.Context, job *models.SerialJob) error {
	job.SyncKeys()
	return translateError(s.db.WithContext(ctx).Create(job).Error)
}

func newAudit(rowKey, action, actor string, changes interface{}) (*models.JobAudit, error) {
	raw, err := json.Marshal(changes)
	if err != nil {
		return nil, err
	}
	return &models.JobAudit{
		RowKey:  rowKey,
		Action:  action,
		Actor:   actor,
		Changes: datatypes.JSON(raw),
	}, nil
}

// Update applies fields to the job with rowKey and records an audit entry
func (s *GormStore) Update(ctx context.Context, rowKey string, fields EditableFields, actor string) (*models.SerialJob, error) {
	var job models.SerialJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("row_key = ?", rowKey).Take(&job).Error; err != nil {
			return err
		}
		fields.Apply(&job)
		job.UpdatedBy = actor
		if err := tx.Save(&job).Error; err != nil {
			return err
		}
		audit, err := newAudit(rowKey, "update", actor, fields.Changes())
		if err != nil {
			return err
		}
		return tx.Create(audit).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &job, nil
}

// Delete removes the job with rowKey and keeps a snapshot in the audit table
func (s *GormStore) Delete(ctx context.Context, rowKey string, actor string) (*models.SerialJob, error) {
	var job models.SerialJob
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("row_key = ?", rowKey).Take(&job).Error; err != nil {
			return err
		}
		if err := tx.Delete(&job).Error; err != nil {
			return err
		}
		audit, err := newAudit(rowKey, "delete", actor, job)
		if err != nil {
			return err
		}
		return tx.Create(audit).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return &job, nil
}

// Query returns jobs matching f in f's order
func (s *GormStore) Query(ctx context.Context, f Filter) ([]models.SerialJob, error) {
	var jobs []models.SerialJob
	if err := f.Apply(s.db.WithContext(ctx).Model(&models.SerialJob{})).Find(&jobs).Error; err != nil {
		return nil, translateError(err)
	}
	return jobs, nil
}

// Chain returns all rounds of identityKey, lowest first
func (s *GormStore) Chain(ctx context.Context, identityKey string) ([]models.SerialJob, error) {
	return s.Query(ctx, Filter{IdentityKey: identityKey, OrderByRound: true})
}

// Audits lists the audit trail of one job, oldest first
func (s *GormStore) Audits(ctx context.Context, rowKey string) ([]models.JobAudit, error) {
	var audits []models.JobAudit
	err := s.db.WithContext(ctx).Where("row_key = ?", rowKey).Order("id ASC").Find(&audits).Error
	if err != nil {
		return nil, translateError(err)
	}
	return audits, nil
}

// WithinTx runs fn inside one database transaction
func (s *GormStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
	return translateError(err)
}
