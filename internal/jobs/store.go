package jobs

import (
	"context"

	"github.com/xelth-com/eckclaims/internal/models"
)

// Store is the job record persistence the resolver and service depend on.
// Serial comparisons are case-insensitive. Implementations must enforce
// uniqueness of the folded serial and of row_key themselves.
type Store interface {
	// FindBySerial returns the job currently registered with serial, or nil
	FindBySerial(ctx context.Context, serial string) (*models.SerialJob, error)
	// FindByReplacementTarget returns jobs naming serial as their replacement,
	// highest round first, newest first among equal rounds
	FindByReplacementTarget(ctx context.Context, serial string) ([]models.SerialJob, error)
	FindByRowKey(ctx context.Context, rowKey string) (*models.SerialJob, error)
	IdentityKeyExists(ctx context.Context, key string) (bool, error)
	RowKeyExists(ctx context.Context, key string) (bool, error)
	// HasSuccessor reports whether the chain has a round above round
	HasSuccessor(ctx context.Context, identityKey string, round int) (bool, error)

	Create(ctx context.Context, job *models.SerialJob) error
	Update(ctx context.Context, rowKey string, fields EditableFields, actor string) (*models.SerialJob, error)
	Delete(ctx context.Context, rowKey string, actor string) (*models.SerialJob, error)

	Query(ctx context.Context, f Filter) ([]models.SerialJob, error)
	// Chain returns every round of one identity, lowest round first
	Chain(ctx context.Context, identityKey string) ([]models.SerialJob, error)
	// Audits returns the change trail of one row, oldest first
	Audits(ctx context.Context, rowKey string) ([]models.JobAudit, error)

	// WithinTx runs fn against a transactional view of the store
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// EditableFields are the only columns that change after creation.
// A nil field is left untouched, an empty string clears it.
type EditableFields struct {
	ReplaceSerial  *string `json:"replacement_of_serial"`
	JobNo          *string `json:"job_no"`
	Condition      *string `json:"condition_notes"`
	Remark         *string `json:"remarks"`
	ReplaceCode    *string `json:"replace_code"`
	ReplaceProduct *string `json:"replace_product"`
}

// Apply copies the set fields onto job
func (e EditableFields) Apply(job *models.SerialJob) {
	assign := func(dst **string, src *string) {
		if src == nil {
			return
		}
		if *src == "" {
			*dst = nil
			return
		}
		v := *src
		*dst = &v
	}
	assign(&job.ReplaceSerial, e.ReplaceSerial)
	assign(&job.JobNo, e.JobNo)
	assign(&job.Condition, e.Condition)
	assign(&job.Remark, e.Remark)
	assign(&job.ReplaceCode, e.ReplaceCode)
	assign(&job.ReplaceProduct, e.ReplaceProduct)
	job.SyncKeys()
}

// Changes lists the set fields for auditing
func (e EditableFields) Changes() map[string]string {
	out := make(map[string]string)
	add := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	add("replacement_of_serial", e.ReplaceSerial)
	add("job_no", e.JobNo)
	add("condition_notes", e.Condition)
	add("remarks", e.Remark)
	add("replace_code", e.ReplaceCode)
	add("replace_product", e.ReplaceProduct)
	return out
}
