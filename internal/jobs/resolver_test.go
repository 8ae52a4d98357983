package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xelth-com/eckclaims/internal/models"
)

func strPtr(s string) *string { return &s }

func seedJob(t *testing.T, store *MemoryStore, rowKey, identity, serial string, round int, replaces string) models.SerialJob {
	t.Helper()
	job := models.SerialJob{
		RowKey:       rowKey,
		IdentityKey:  identity,
		SerialNumber: serial,
		RoundNumber:  round,
	}
	if replaces != "" {
		job.ReplaceSerial = strPtr(replaces)
	}
	if err := store.Create(context.Background(), &job); err != nil {
		t.Fatalf("Failed to seed %s: %v", serial, err)
	}
	return job
}

func sequence(keys ...string) func() string {
	i := 0
	return func() string {
		k := keys[i%len(keys)]
		i++
		return k
	}
}

func TestCheckUnknownSerial(t *testing.T) {
	r := NewResolver(NewMemoryStore())

	got, err := r.Check(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !got.Available || got.IsReplacementSerial {
		t.Errorf("Expected available non-replacement serial, got %+v", got)
	}
	if got.Message != msgSerialAvailable {
		t.Errorf("Unexpected message %q", got.Message)
	}
}

func TestCheckUsedSerialIsCaseInsensitive(t *testing.T) {
	store := NewMemoryStore()
	seedJob(t, store, "r1", "k1", "ABC123", 1, "")
	r := NewResolver(store)

	for _, serial := range []string{"ABC123", "abc123", "  Abc123 "} {
		got, err := r.Check(context.Background(), serial)
		if err != nil {
			t.Fatalf("Check(%q) failed: %v", serial, err)
		}
		if got.Available {
			t.Errorf("Check(%q) reported available", serial)
		}
	}
}

func TestCheckReplacementSerial(t *testing.T) {
	store := NewMemoryStore()
	seedJob(t, store, "r1", "k1", "OLD1", 1, "NEW1")
	r := NewResolver(store)

	got, err := r.Check(context.Background(), "new1")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !got.Available || !got.IsReplacementSerial || got.Message != msgReplacementSerial {
		t.Errorf("Expected replacement serial, got %+v", got)
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	seedJob(t, store, "r1", "k1", "OLD1", 1, "NEW1")
	r := NewResolver(store)

	first, err := r.Check(context.Background(), "NEW1")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	second, err := r.Check(context.Background(), "NEW1")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if first != second {
		t.Errorf("Check results differ: %+v vs %+v", first, second)
	}
}

func TestCheckRequiresSerial(t *testing.T) {
	_, err := NewResolver(NewMemoryStore()).Check(context.Background(), "   ")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestResolveNewSerialStartsChain(t *testing.T) {
	r := NewResolver(NewMemoryStore(), WithIDGenerator(sequence("fresh-key")))

	res, err := r.Resolve(context.Background(), "ABC123", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.IdentityKey != "fresh-key" || res.RoundNumber != 1 || res.IsReplacementSerial {
		t.Errorf("Unexpected resolution %+v", res)
	}
}

func TestResolveDuplicateSerial(t *testing.T) {
	store := NewMemoryStore()
	seedJob(t, store, "r1", "k1", "ABC123", 1, "")

	_, err := NewResolver(store).Resolve(context.Background(), "abc123", "")
	if !errors.Is(err, ErrDuplicateSerial) {
		t.Errorf("Expected ErrDuplicateSerial, got %v", err)
	}
}

func TestResolveFollowsDeclaredReplacement(t *testing.T) {
	store := NewMemoryStore()
	seedJob(t, store, "r1", "K1", "FIRST", 1, "")
	seedJob(t, store, "r2", "K1", "SECOND", 2, "third")

	res, err := NewResolver(store).Resolve(context.Background(), "THIRD", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.IdentityKey != "K1" || res.RoundNumber != 3 || !res.IsReplacementSerial || res.ChainedFrom != "r2" {
		t.Errorf("Unexpected resolution %+v", res)
	}
}

func TestResolveChainsFromSuppliedPredecessor(t *testing.T) {
	store := NewMemoryStore()
	seedJob(t, store, "r1", "K1", "OLD1", 2, "")

	res, err := NewResolver(store).Resolve(context.Background(), "NEW1", "old1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.IdentityKey != "K1" || res.RoundNumber != 3 || !res.IsReplacementSerial {
		t.Errorf("Expected K1 round 3 replacement, got %+v", res)
	}
}

func TestResolveOrphanReplacementStartsChain(t *testing.T) {
	r := NewResolver(NewMemoryStore(), WithIDGenerator(sequence("orphan-key")))

	res, err := r.Resolve(context.Background(), "NEW1", "NEVER-SEEN")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.IdentityKey != "orphan-key" || res.RoundNumber != 1 || res.IsReplacementSerial {
		t.Errorf("Unexpected resolution %+v", res)
	}
}

func TestResolveTieBreakPrefersNewest(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := models.SerialJob{RowKey: "r1", IdentityKey: "K-old", SerialNumber: "A", RoundNumber: 2, ReplaceSerial: strPtr("X"), CreatedAt: base}
	newer := models.SerialJob{RowKey: "r2", IdentityKey: "K-new", SerialNumber: "B", RoundNumber: 2, ReplaceSerial: strPtr("X"), CreatedAt: base.Add(time.Hour)}
	for _, j := range []*models.SerialJob{&newer, &older} {
		if err := store.Create(context.Background(), j); err != nil {
			t.Fatalf("Failed to seed: %v", err)
		}
	}

	res, err := NewResolver(store).Resolve(context.Background(), "x", "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.IdentityKey != "K-new" || res.RoundNumber != 3 {
		t.Errorf("Expected newest record to win the tie, got %+v", res)
	}
}

func TestResolveLinearChains(t *testing.T) {
	store := NewMemoryStore()
	seedJob(t, store, "r1", "K1", "OLD1", 1, "")
	seedJob(t, store, "r2", "K1", "NEW1", 2, "")

	_, err := NewResolver(store).Resolve(context.Background(), "NEW2", "OLD1")
	if err != nil {
		t.Fatalf("Branching chain should be allowed by default: %v", err)
	}

	_, err = NewResolver(store, WithLinearChains(true)).Resolve(context.Background(), "NEW2", "OLD1")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput with linear chains, got %v", err)
	}
}

func TestNewRowKeyRetriesOnCollision(t *testing.T) {
	store := NewMemoryStore()
	seedJob(t, store, "taken-1", "k1", "A", 1, "")
	seedJob(t, store, "taken-2", "k2", "B", 1, "")

	r := NewResolver(store, WithIDGenerator(sequence("taken-1", "taken-2", "free")))
	key, err := r.NewRowKey(context.Background())
	if err != nil {
		t.Fatalf("NewRowKey failed: %v", err)
	}
	if key != "free" {
		t.Errorf("Expected first unused key, got %q", key)
	}
}

func TestNewIdentityKeyStopsOnCancel(t *testing.T) {
	store := NewMemoryStore()
	seedJob(t, store, "r1", "always", "A", 1, "")
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	r := NewResolver(store, WithIDGenerator(func() string {
		calls++
		if calls == 5 {
			cancel()
		}
		return "always"
	}))

	_, err := r.NewIdentityKey(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDefaultIdentityKeysAreUnique(t *testing.T) {
	r := NewResolver(NewMemoryStore())
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := r.NewIdentityKey(context.Background())
		if err != nil {
			t.Fatalf("NewIdentityKey failed: %v", err)
		}
		if seen[key] {
			t.Fatalf("Duplicate key %s after %d draws", key, i)
		}
		seen[key] = true
	}
	if len(seen) != 100 {
		t.Errorf("Expected 100 keys, got %d", len(seen))
	}
}
