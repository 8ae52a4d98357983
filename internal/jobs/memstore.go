package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xelth-com/eckclaims/internal/models"
	"gorm.io/datatypes"
)

// MemoryStore is an in-process Store used by tests.
// It enforces the same unique keys as the database schema.
type MemoryStore struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	jobs   []models.SerialJob
	audits []models.JobAudit
	nextID uint
	now    func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
}

func (m *MemoryStore) indexWhere(match func(models.SerialJob) bool) int {
	for i, j := range m.jobs {
		if match(j) {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) FindBySerial(ctx context.Context, serial string) (*models.SerialJob, error) {
	key := models.FoldSerial(serial)
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexWhere(func(j models.SerialJob) bool { return j.SerialKey == key }); i >= 0 {
		job := m.jobs[i]
		return &job, nil
	}
	return nil, nil
}

func (m *MemoryStore) FindByReplacementTarget(ctx context.Context, serial string) ([]models.SerialJob, error) {
	key := models.FoldSerial(serial)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SerialJob
	for _, j := range m.jobs {
		if j.ReplaceKey != nil && *j.ReplaceKey == key {
			out = append(out, j)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].RoundNumber != out[b].RoundNumber {
			return out[a].RoundNumber > out[b].RoundNumber
		}
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID > out[b].ID
	})
	return out, nil
}

func (m *MemoryStore) FindByRowKey(ctx context.Context, rowKey string) (*models.SerialJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexWhere(func(j models.SerialJob) bool { return j.RowKey == rowKey }); i >= 0 {
		job := m.jobs[i]
		return &job, nil
	}
	return nil, nil
}

func (m *MemoryStore) IdentityKeyExists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexWhere(func(j models.SerialJob) bool { return j.IdentityKey == key }) >= 0, nil
}

func (m *MemoryStore) RowKeyExists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexWhere(func(j models.SerialJob) bool { return j.RowKey == key }) >= 0, nil
}

func (m *MemoryStore) HasSuccessor(ctx context.Context, identityKey string, round int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexWhere(func(j models.SerialJob) bool {
		return j.IdentityKey == identityKey && j.RoundNumber > round
	}) >= 0, nil
}

func (m *MemoryStore) Create(ctx context.Context, job *models.SerialJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	job.SyncKeys()
	m.mu.Lock()
	defer m.mu.Unlock()
	conflict := m.indexWhere(func(j models.SerialJob) bool {
		return j.SerialKey == job.SerialKey || j.RowKey == job.RowKey
	})
	if conflict >= 0 {
		return fmt.Errorf("%w: serial %s or row %s", ErrConstraintViolation, job.SerialNumber, job.RowKey)
	}
	m.nextID++
	job.ID = m.nextID
	now := m.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	m.jobs = append(m.jobs, *job)
	return nil
}

func (m *MemoryStore) audit(rowKey, action, actor string, changes interface{}) {
	raw, _ := json.Marshal(changes)
	m.audits = append(m.audits, models.JobAudit{
		ID:        uint(len(m.audits) + 1),
		RowKey:    rowKey,
		Action:    action,
		Actor:     actor,
		Changes:   datatypes.JSON(raw),
		CreatedAt: m.now(),
	})
}

func (m *MemoryStore) Update(ctx context.Context, rowKey string, fields EditableFields, actor string) (*models.SerialJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexWhere(func(j models.SerialJob) bool { return j.RowKey == rowKey })
	if i < 0 {
		return nil, ErrNotFound
	}
	job := m.jobs[i]
	fields.Apply(&job)
	job.UpdatedBy = actor
	job.UpdatedAt = m.now()
	m.jobs[i] = job
	m.audit(rowKey, "update", actor, fields.Changes())
	return &job, nil
}

func (m *MemoryStore) Delete(ctx context.Context, rowKey string, actor string) (*models.SerialJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexWhere(func(j models.SerialJob) bool { return j.RowKey == rowKey })
	if i < 0 {
		return nil, ErrNotFound
	}
	job := m.jobs[i]
	m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
	m.audit(rowKey, "delete", actor, job)
	return &job, nil
}

func (m *MemoryStore) Query(ctx context.Context, f Filter) ([]models.SerialJob, error) {
	m.mu.Lock()
	var out []models.SerialJob
	for _, j := range m.jobs {
		if f.Match(j) {
			out = append(out, j)
		}
	}
	m.mu.Unlock()

	sort.SliceStable(out, func(a, b int) bool {
		if f.OrderByRound {
			if out[a].RoundNumber != out[b].RoundNumber {
				return out[a].RoundNumber < out[b].RoundNumber
			}
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID > out[b].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Chain(ctx context.Context, identityKey string) ([]models.SerialJob, error) {
	return m.Query(ctx, Filter{IdentityKey: identityKey, OrderByRound: true})
}

// Audits returns the audit trail of one job, oldest first
func (m *MemoryStore) Audits(ctx context.Context, rowKey string) ([]models.JobAudit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.JobAudit
	for _, a := range m.audits {
		if a.RowKey == rowKey {
			out = append(out, a)
		}
	}
	return out, nil
}

// WithinTx serializes transactions and rolls back every change fn made when it fails
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	jobs := append([]models.SerialJob(nil), m.jobs...)
	audits := append([]models.JobAudit(nil), m.audits...)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.jobs, m.audits = jobs, audits
		m.mu.Unlock()
		return err
	}
	return nil
}
