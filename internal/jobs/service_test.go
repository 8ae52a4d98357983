package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/xelth-com/eckclaims/internal/models"
)

var (
	clerk = Actor{Username: "clerk", Role: models.RoleUser}
	admin = Actor{Username: "boss", Role: models.RoleAdmin}
)

type fakeCatalog map[string]models.ProductMaster

func (c fakeCatalog) Lookup(ctx context.Context, code string) (*models.ProductMaster, error) {
	if p, ok := c[code]; ok {
		return &p, nil
	}
	return nil, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func newTestService(store Store, opts ...ServiceOption) *Service {
	return NewService(store, nil, opts...)
}

func TestCreateNewSerial(t *testing.T) {
	sink := &recordingSink{}
	catalog := fakeCatalog{"P-1": {ProductCode: "P-1", BrandName: "Bosch", ProductName: "Drill"}}
	svc := newTestService(NewMemoryStore(), WithProducts(catalog), WithEvents(sink))

	res, err := svc.Create(context.Background(), clerk, CreateInput{
		SerialNumber: "ABC123",
		ProductCode:  "P-1",
		ReceivedDate: "2024-01-15",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if res.RoundNumber != 1 || res.IdentityKey == "" || res.RowKey == "" || res.IsReplacementSerial {
		t.Errorf("Unexpected result %+v", res)
	}
	if res.Job.CreatedBy != "clerk" {
		t.Errorf("CreatedBy = %q", res.Job.CreatedBy)
	}
	if res.Job.BrandName == nil || *res.Job.BrandName != "Bosch" || *res.Job.ProductName != "Drill" {
		t.Errorf("Expected catalog defaults, got brand=%v name=%v", res.Job.BrandName, res.Job.ProductName)
	}
	if len(sink.events) != 1 || sink.events[0].Type != "job.created" {
		t.Errorf("Expected one job.created event, got %+v", sink.events)
	}

	_, err = svc.Create(context.Background(), clerk, CreateInput{SerialNumber: "abc123"})
	if !errors.Is(err, ErrDuplicateSerial) {
		t.Errorf("Expected ErrDuplicateSerial, got %v", err)
	}
}

func TestCreateReplacementChain(t *testing.T) {
	svc := newTestService(NewMemoryStore())
	ctx := context.Background()

	first, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "OLD1"})
	if err != nil {
		t.Fatalf("Create OLD1 failed: %v", err)
	}
	second, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "NEW1", ReplaceSerial: "OLD1"})
	if err != nil {
		t.Fatalf("Create NEW1 failed: %v", err)
	}
	if second.IdentityKey != first.IdentityKey || second.RoundNumber != 2 || !second.IsReplacementSerial {
		t.Errorf("Expected round 2 on %s, got %+v", first.IdentityKey, second)
	}

	chain, err := svc.Chain(ctx, first.IdentityKey)
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if len(chain) != 2 || chain[0].SerialNumber != "OLD1" || chain[1].SerialNumber != "NEW1" {
		t.Errorf("Unexpected chain %+v", chain)
	}
}

func TestCreateRequiresActorAndSerial(t *testing.T) {
	svc := newTestService(NewMemoryStore())

	if _, err := svc.Create(context.Background(), Actor{}, CreateInput{SerialNumber: "A"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput without actor, got %v", err)
	}
	if _, err := svc.Create(context.Background(), clerk, CreateInput{SerialNumber: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput without serial, got %v", err)
	}
	if _, err := svc.Create(context.Background(), clerk, CreateInput{SerialNumber: "A", ReceivedDate: "yesterday"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for bad date, got %v", err)
	}
}

func TestUpdateMissingRowKey(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store)

	remark := "checked"
	_, err := svc.Update(context.Background(), clerk, "does-not-exist", EditableFields{Remark: &remark})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	all, _ := store.Query(context.Background(), Filter{})
	if len(all) != 0 {
		t.Errorf("Update must not create records, found %d", len(all))
	}
}

func TestUpdateOnlyTouchesEditableFields(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "SN1", JobNo: "J-1", Remark: "old"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	jobNo, remark, code := "J-2", "", "RC-9"
	updated, err := svc.Update(ctx, admin, created.RowKey, EditableFields{JobNo: &jobNo, Remark: &remark, ReplaceCode: &code})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if *updated.JobNo != "J-2" || updated.Remark != nil || *updated.ReplaceCode != "RC-9" {
		t.Errorf("Unexpected editable fields %+v", updated)
	}
	if updated.SerialNumber != "SN1" || updated.IdentityKey != created.IdentityKey || updated.RoundNumber != 1 {
		t.Errorf("Immutable fields changed: %+v", updated)
	}
	if updated.CreatedBy != "clerk" || updated.UpdatedBy != "boss" {
		t.Errorf("Unexpected actors created=%q updated=%q", updated.CreatedBy, updated.UpdatedBy)
	}

	audits, err := svc.Audits(ctx, admin, created.RowKey)
	if err != nil || len(audits) != 1 || audits[0].Action != "update" || audits[0].Actor != "boss" {
		t.Errorf("Unexpected audit trail %+v, %v", audits, err)
	}
}

func TestAuditsRequireAdmin(t *testing.T) {
	svc := newTestService(NewMemoryStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "SN1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Audits(ctx, clerk, created.RowKey); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for non-admin, got %v", err)
	}

	audits, err := svc.Audits(ctx, admin, created.RowKey)
	if err != nil || audits == nil || len(audits) != 0 {
		t.Errorf("Untouched job must have an empty trail, got %+v, %v", audits, err)
	}
	if _, err := svc.Audits(ctx, admin, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown row, got %v", err)
	}

	if err := svc.Delete(ctx, admin, created.RowKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	audits, err = svc.Audits(ctx, admin, created.RowKey)
	if err != nil || len(audits) != 1 || audits[0].Action != "delete" {
		t.Errorf("Delete must stay in the trail, got %+v, %v", audits, err)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	svc := newTestService(NewMemoryStore())
	ctx := context.Background()

	created, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "SN1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Delete(ctx, clerk, created.RowKey); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for non-admin, got %v", err)
	}
	if err := svc.Delete(ctx, admin, created.RowKey); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := svc.Delete(ctx, admin, created.RowKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := svc.Get(ctx, created.RowKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestExportRequiresAdmin(t *testing.T) {
	svc := newTestService(NewMemoryStore())
	if _, err := svc.Export(context.Background(), clerk, Filter{}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	if _, err := svc.Export(context.Background(), admin, Filter{}); err != nil {
		t.Errorf("Export failed: %v", err)
	}
}

func TestPreview(t *testing.T) {
	store := NewMemoryStore()
	catalog := fakeCatalog{"P-1": {ProductCode: "P-1", BrandName: "Bosch", ProductName: "Drill"}}
	svc := newTestService(store, WithProducts(catalog))
	seedJob(t, store, "r1", "K1", "OLD1", 1, "")

	p, err := svc.Preview(context.Background(), "NEW1", "OLD1", "P-1")
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if p.BrandName != "Bosch" || p.RoundNumber != 2 || !p.IsReplacementSerial {
		t.Errorf("Unexpected preview %+v", p)
	}

	if _, err := svc.Preview(context.Background(), "", "", "UNKNOWN"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown product, got %v", err)
	}
	if all, _ := store.Query(context.Background(), Filter{}); len(all) != 1 {
		t.Errorf("Preview must not write, found %d jobs", len(all))
	}
}

// staleStore hides existing serials from the pre-check so the unique
// index alone decides the outcome, as when two requests interleave.
type staleStore struct {
	Store
}

func (s staleStore) FindBySerial(ctx context.Context, serial string) (*models.SerialJob, error) {
	return nil, nil
}

func (s staleStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	return s.Store.WithinTx(ctx, func(tx Store) error { return fn(staleStore{tx}) })
}

func TestCreateRaceLostToUniqueIndex(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(staleStore{store})
	ctx := context.Background()

	if _, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "RACE1"}); err != nil {
		t.Fatalf("First create failed: %v", err)
	}
	_, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "race1"})
	if !errors.Is(err, ErrConstraintViolation) || !IsSerialConflict(err) {
		t.Errorf("Expected ErrConstraintViolation, got %v", err)
	}
	if all, _ := store.Query(ctx, Filter{}); len(all) != 1 {
		t.Errorf("Expected exactly one stored job, got %d", len(all))
	}
}

func TestConcurrentCreatesExactlyOneWins(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), clerk, CreateInput{SerialNumber: "SAME"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case !IsSerialConflict(err):
			t.Errorf("Unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("Expected exactly one successful create, got %d", wins)
	}
}
