package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/xelth-com/eckclaims/internal/config"
	"github.com/xelth-com/eckclaims/internal/database"
	"github.com/xelth-com/eckclaims/internal/models"
)

func setupTestDB(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"), config.DatabaseConfig{MaxOpenConns: 1, Quiet: true})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return NewGormStore(db.DB)
}

func TestGormStoreCreateAndFind(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	job := models.SerialJob{RowKey: "r1", IdentityKey: "K1", SerialNumber: "ABC123", RoundNumber: 1, ReplaceSerial: strPtr("NEXT-1")}
	if err := store.Create(ctx, &job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := store.FindBySerial(ctx, " abc123")
	if err != nil || found == nil || found.RowKey != "r1" {
		t.Fatalf("FindBySerial = %+v, %v", found, err)
	}
	missing, err := store.FindBySerial(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil for unknown serial, got %+v, %v", missing, err)
	}

	preds, err := store.FindByReplacementTarget(ctx, "next-1")
	if err != nil || len(preds) != 1 {
		t.Fatalf("FindByReplacementTarget = %v, %v", preds, err)
	}

	if ok, _ := store.RowKeyExists(ctx, "r1"); !ok {
		t.Error("Expected row key r1 to exist")
	}
	if ok, _ := store.IdentityKeyExists(ctx, "K2"); ok {
		t.Error("Expected identity key K2 to be free")
	}
}

func TestGormStoreDuplicateSerialIsConstraintViolation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Create(ctx, &models.SerialJob{RowKey: "r1", IdentityKey: "K1", SerialNumber: "ABC123", RoundNumber: 1}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := store.Create(ctx, &models.SerialJob{RowKey: "r2", IdentityKey: "K2", SerialNumber: "Abc123", RoundNumber: 1})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("Expected ErrConstraintViolation, got %v", err)
	}
}

func TestGormStoreUpdateAndDeleteAudit(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.Create(ctx, &models.SerialJob{RowKey: "r1", IdentityKey: "K1", SerialNumber: "SN1", RoundNumber: 1}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	remark := "screen cracked"
	updated, err := store.Update(ctx, "r1", EditableFields{Remark: &remark}, "boss")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Remark == nil || *updated.Remark != remark || updated.UpdatedBy != "boss" {
		t.Errorf("Unexpected update result %+v", updated)
	}

	if _, err := store.Update(ctx, "missing", EditableFields{Remark: &remark}, "boss"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if _, err := store.Delete(ctx, "r1", "boss"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Delete(ctx, "r1", "boss"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}

	audits, err := store.Audits(ctx, "r1")
	if err != nil {
		t.Fatalf("Audits failed: %v", err)
	}
	if len(audits) != 2 || audits[0].Action != "update" || audits[1].Action != "delete" {
		t.Fatalf("Unexpected audits %+v", audits)
	}
	var changes map[string]string
	if err := json.Unmarshal(audits[0].Changes, &changes); err != nil || changes["remarks"] != remark {
		t.Errorf("Unexpected update audit changes %s (%v)", audits[0].Changes, err)
	}
}

func TestGormStoreQueryMatchesMemoryStore(t *testing.T) {
	gormStore := setupTestDB(t)
	memStore := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.SerialJob{
		{RowKey: "r1", IdentityKey: "k1", SerialNumber: "SN-001", RoundNumber: 1, Supplier: strPtr("ACME Corp"), ReceivedDate: day("2024-01-01 00:00")},
		{RowKey: "r2", IdentityKey: "k2", SerialNumber: "SN-002", RoundNumber: 1, Supplier: strPtr("acme"), ReceivedDate: day("2024-01-31 23:30")},
		{RowKey: "r3", IdentityKey: "k3", SerialNumber: "SN_003", RoundNumber: 2, Supplier: strPtr("Globex"), ReceivedDate: day("2024-02-01 00:00"), DateReceipt: day("2024-02-03 10:00")},
	}
	for i := range rows {
		rows[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		g, m := rows[i], rows[i]
		if err := gormStore.Create(ctx, &g); err != nil {
			t.Fatalf("gorm Create failed: %v", err)
		}
		if err := memStore.Create(ctx, &m); err != nil {
			t.Fatalf("memory Create failed: %v", err)
		}
	}

	queries := []url.Values{
		{},
		{"supplier": {"Acme"}},
		{"received_date_from": {"2024-01-01"}, "received_date_to": {"2024-01-31"}},
		{"serial_number": {"sn_"}},
		{"receipt_date": {"2024-02-03"}},
		{"round_number": {"2"}},
		{"order": {"round"}},
	}
	for _, q := range queries {
		f, err := ParseFilter(q)
		if err != nil {
			t.Fatalf("ParseFilter(%v) failed: %v", q, err)
		}
		fromDB, err := gormStore.Query(ctx, f)
		if err != nil {
			t.Fatalf("gorm Query(%v) failed: %v", q, err)
		}
		fromMem, _ := memStore.Query(ctx, f)
		if !equalKeys(rowKeys(fromDB), rowKeys(fromMem)) {
			t.Errorf("Query(%v): db %v, memory %v", q, rowKeys(fromDB), rowKeys(fromMem))
		}
	}
}

func TestGormServiceCreateChain(t *testing.T) {
	svc := newTestService(setupTestDB(t))
	ctx := context.Background()

	first, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "OLD1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "NEW1", ReplaceSerial: "old1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if second.IdentityKey != first.IdentityKey || second.RoundNumber != 2 {
		t.Errorf("Expected chain continuation, got %+v", second)
	}
	if _, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "new1"}); !errors.Is(err, ErrDuplicateSerial) {
		t.Errorf("Expected ErrDuplicateSerial, got %v", err)
	}
}

func TestGormStoreRaceLostToUniqueIndex(t *testing.T) {
	store := setupTestDB(t)
	svc := newTestService(staleStore{store})
	ctx := context.Background()

	if _, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "RACE1"}); err != nil {
		t.Fatalf("First create failed: %v", err)
	}
	_, err := svc.Create(ctx, clerk, CreateInput{SerialNumber: "RACE1"})
	if !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("Expected ErrConstraintViolation, got %v", err)
	}
}

func TestGormStoreClosedDatabase(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	sqlDB, err := store.db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("Failed to close sql.DB: %v", err)
	}

	if _, err := store.FindBySerial(ctx, "ABC123"); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("FindBySerial error = %v, want ErrStorageUnavailable", err)
	}

	job := models.SerialJob{RowKey: "r1", IdentityKey: "K1", SerialNumber: "ABC123", RoundNumber: 1}
	err = store.Create(ctx, &job)
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Create error = %v, want ErrStorageUnavailable", err)
	}
	if IsSerialConflict(err) {
		t.Errorf("Storage failure must not read as a serial conflict: %v", err)
	}

	_, err = newTestService(store).Create(ctx, clerk, CreateInput{SerialNumber: "ABC123"})
	if !errors.Is(err, ErrStorageUnavailable) || IsSerialConflict(err) {
		t.Errorf("Service.Create error = %v, want ErrStorageUnavailable", err)
	}
}
