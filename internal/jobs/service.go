package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xelth-com/eckclaims/internal/models"
	"github.com/xelth-com/eckclaims/internal/observability"
)

// ProductLookup supplies catalog defaults during job entry
type ProductLookup interface {
	Lookup(ctx context.Context, code string) (*models.ProductMaster, error)
}

// EventSink receives a notification after every committed job change
type EventSink interface {
	Publish(event Event)
}

// Event describes a committed create, update or delete
type Event struct {
	Type        string            `json:"type"` // job.created | job.updated | job.deleted
	RowKey      string            `json:"row_key"`
	IdentityKey string            `json:"identity_key"`
	Actor       string            `json:"actor"`
	Job         *models.SerialJob `json:"job,omitempty"`
	At          time.Time         `json:"at"`
}

// CreateInput is the payload of a new job
type CreateInput struct {
	SerialNumber   string `json:"serial_number"`
	ReplaceSerial  string `json:"replacement_of_serial"`
	ProductCode    string `json:"product_code"`
	ProductName    string `json:"product_name"`
	BrandName      string `json:"brand"`
	Supplier       string `json:"supplier"`
	JobNo          string `json:"job_no"`
	Condition      string `json:"condition_notes"`
	Remark         string `json:"remarks"`
	ReplaceCode    string `json:"replace_code"`
	ReplaceProduct string `json:"replace_product"`
	ReceivedDate   string `json:"received_date"`
	DateReceipt    string `json:"receipt_date"`
}

// CreateResult is returned for a successful create
type CreateResult struct {
	IdentityKey         string            `json:"identity_key"`
	RowKey              string            `json:"row_key"`
	RoundNumber         int               `json:"round_number"`
	IsReplacementSerial bool              `json:"is_replacement_serial"`
	Job                 *models.SerialJob `json:"job"`
}

// Preview is what the entry form shows before a job is saved
type Preview struct {
	ProductCode         string `json:"product_code,omitempty"`
	ProductName         string `json:"product_name,omitempty"`
	BrandName           string `json:"brand,omitempty"`
	RoundNumber         int    `json:"round_number"`
	IsReplacementSerial bool   `json:"is_replacement_serial"`
}

// Service runs serial job operations on behalf of an authenticated actor
type Service struct {
	store    Store
	resolver func(Store) *Resolver
	products ProductLookup
	events   EventSink
	now      func() time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithProducts sets the catalog used for product defaults
func WithProducts(p ProductLookup) ServiceOption {
	return func(s *Service) { s.products = p }
}

// WithEvents sets the sink notified after committed changes
func WithEvents(e EventSink) ServiceOption {
	return func(s *Service) { s.events = e }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a service on store; resolverOpts apply to every resolver it builds
func NewService(store Store, resolverOpts []ResolverOption, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		resolver: func(st Store) *Resolver {
			return NewResolver(st, resolverOpts...)
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) publish(ctx context.Context, typ string, actor Actor, job *models.SerialJob) {
	zerolog.Ctx(ctx).Info().
		Str("event", typ).
		Str("row_key", job.RowKey).
		Str("identity_key", job.IdentityKey).
		Str("actor", actor.Username).
		Msg("job change")
	if s.events == nil {
		return
	}
	s.events.Publish(Event{
		Type:        typ,
		RowKey:      job.RowKey,
		IdentityKey: job.IdentityKey,
		Actor:       actor.Username,
		Job:         job,
		At:          s.now(),
	})
}

func requireActor(actor Actor) error {
	if !actor.valid() {
		return fmt.Errorf("%w: actor is required", ErrInvalidInput)
	}
	return nil
}

// CheckSerial reports whether serial may be registered
func (s *Service) CheckSerial(ctx context.Context, serial string) (Availability, error) {
	return s.resolver(s.store).Check(ctx, serial)
}

func (s *Service) lookupProduct(ctx context.Context, code string) (*models.ProductMaster, error) {
	code = strings.TrimSpace(code)
	if s.products == nil || code == "" {
		return nil, nil
	}
	return s.products.Lookup(ctx, code)
}

// Preview returns product defaults and the round the serial would receive.
// It fails with ErrNotFound when neither a product nor a chain is known.
func (s *Service) Preview(ctx context.Context, serial, replacementOf, productCode string) (Preview, error) {
	var p Preview
	product, err := s.lookupProduct(ctx, productCode)
	if err != nil {
		return Preview{}, err
	}
	if product != nil {
		p.ProductCode = product.ProductCode
		p.ProductName = product.ProductName
		p.BrandName = product.BrandName
	}

	if strings.TrimSpace(serial) != "" {
		res, err := s.resolver(s.store).Resolve(ctx, serial, replacementOf)
		if err != nil {
			return Preview{}, err
		}
		p.RoundNumber = res.RoundNumber
		p.IsReplacementSerial = res.IsReplacementSerial
	}

	if product == nil && p.RoundNumber == 0 {
		return Preview{}, ErrNotFound
	}
	return p, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func (in CreateInput) toJob() (*models.SerialJob, error) {
	serial := strings.TrimSpace(in.SerialNumber)
	if serial == "" {
		return nil, fmt.Errorf("%w: serial number is required", ErrInvalidInput)
	}
	received, err := parseOptionalDay(in.ReceivedDate)
	if err != nil {
		return nil, err
	}
	receipt, err := parseOptionalDay(in.DateReceipt)
	if err != nil {
		return nil, err
	}
	return &models.SerialJob{
		SerialNumber:   serial,
		ReplaceSerial:  optional(in.ReplaceSerial),
		ProductCode:    optional(in.ProductCode),
		ProductName:    optional(in.ProductName),
		BrandName:      optional(in.BrandName),
		Supplier:       optional(in.Supplier),
		JobNo:          optional(in.JobNo),
		Condition:      optional(in.Condition),
		Remark:         optional(in.Remark),
		ReplaceCode:    optional(in.ReplaceCode),
		ReplaceProduct: optional(in.ReplaceProduct),
		ReceivedDate:   received,
		DateReceipt:    receipt,
	}, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateSerial):
		return "duplicate"
	case errors.Is(err, ErrConstraintViolation):
		return "race"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	}
	return ""
}

// Create resolves the serial's identity and stores a new job in one transaction
func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*CreateResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	job, err := in.toJob()
	if err != nil {
		observability.RecordSerialRejection("invalid")
		return nil, err
	}

	if job.ProductCode != nil && (job.ProductName == nil || job.BrandName == nil) {
		product, err := s.lookupProduct(ctx, *job.ProductCode)
		if err != nil {
			return nil, err
		}
		if product != nil {
			if job.ProductName == nil {
				job.ProductName = optional(product.ProductName)
			}
			if job.BrandName == nil {
				job.BrandName = optional(product.BrandName)
			}
		}
	}

	job.CreatedBy = actor.Username
	job.CreatedAt = s.now()

	var res Resolution
	err = s.store.WithinTx(ctx, func(tx Store) error {
		r := s.resolver(tx)
		var err error
		if res, err = r.Resolve(ctx, job.SerialNumber, in.ReplaceSerial); err != nil {
			return err
		}
		if job.RowKey, err = r.NewRowKey(ctx); err != nil {
			return err
		}
		job.IdentityKey = res.IdentityKey
		job.RoundNumber = res.RoundNumber
		return tx.Create(ctx, job)
	})
	if err != nil {
		if reason := rejectionReason(err); reason != "" {
			observability.RecordSerialRejection(reason)
		}
		if errors.Is(err, ErrConstraintViolation) {
			zerolog.Ctx(ctx).Warn().Str("serial", job.SerialNumber).Msg("serial registered concurrently")
		}
		return nil, err
	}

	observability.RecordJobCreated(res.IsReplacementSerial)
	s.publish(ctx, "job.created", actor, job)
	return &CreateResult{
		IdentityKey:         job.IdentityKey,
		RowKey:              job.RowKey,
		RoundNumber:         job.RoundNumber,
		IsReplacementSerial: res.IsReplacementSerial,
		Job:                 job,
	}, nil
}

// Get returns one job by row key
func (s *Service) Get(ctx context.Context, rowKey string) (*models.SerialJob, error) {
	job, err := s.store.FindByRowKey(ctx, rowKey)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	return job, nil
}

// Update changes the editable fields of one job
func (s *Service) Update(ctx context.Context, actor Actor, rowKey string, fields EditableFields) (*models.SerialJob, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rowKey) == "" {
		return nil, fmt.Errorf("%w: row key is required", ErrInvalidInput)
	}
	job, err := s.store.Update(ctx, rowKey, fields, actor.Username)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "job.updated", actor, job)
	return job, nil
}

// Delete removes one job; only admins may delete
func (s *Service) Delete(ctx context.Context, actor Actor, rowKey string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	job, err := s.store.Delete(ctx, rowKey, actor.Username)
	if err != nil {
		return err
	}
	s.publish(ctx, "job.deleted", actor, job)
	return nil
}

// Audits returns the update and delete trail of one job. Admin only; the
// trail outlives a deleted row.
func (s *Service) Audits(ctx context.Context, actor Actor, rowKey string) ([]models.JobAudit, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	audits, err := s.store.Audits(ctx, rowKey)
	if err != nil {
		return nil, err
	}
	if len(audits) == 0 {
		job, err := s.store.FindByRowKey(ctx, rowKey)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, ErrNotFound
		}
	}
	if audits == nil {
		audits = []models.JobAudit{}
	}
	return audits, nil
}

// Query returns jobs matching f
func (s *Service) Query(ctx context.Context, f Filter) ([]models.SerialJob, error) {
	return s.store.Query(ctx, f)
}

// Chain returns every round of one physical unit, lowest round first
func (s *Service) Chain(ctx context.Context, identityKey string) ([]models.SerialJob, error) {
	if strings.TrimSpace(identityKey) == "" {
		return nil, fmt.Errorf("%w: identity key is required", ErrInvalidInput)
	}
	jobs, err := s.store.Chain(ctx, identityKey)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, ErrNotFound
	}
	return jobs, nil
}

// Export returns jobs matching f for bulk download; only admins may export
func (s *Service) Export(ctx context.Context, actor Actor, f Filter) ([]models.SerialJob, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.store.Query(ctx, f)
}
