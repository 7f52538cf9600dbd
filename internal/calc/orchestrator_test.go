package calc

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/calculab/calcu/internal/history"
	"github.com/calculab/calcu/pkg/domain"
)

var testSession = &domain.Session{
	UserID:      uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
	Email:       "ada@example.com",
	AccessToken: "tok",
}

// doubler is a fake compute endpoint that doubles its input.
type doubler struct {
	fail  error
	calls int
}

func (d *doubler) Calculate(_ context.Context, input string) (float64, error) {
	d.calls++
	if d.fail != nil {
		return 0, d.fail
	}
	var v float64
	switch input {
	case "4":
		v = 8
	case "2":
		v = 4
	default:
		v = 0
	}
	return v, nil
}

// memStore records inserts and can be made to fail writes.
type memStore struct {
	inserted  [][2]float64
	failWrite error
}

func (m *memStore) History(context.Context, string, uuid.UUID) ([]domain.UsageRecord, error) {
	return nil, nil
}

func (m *memStore) Insert(_ context.Context, _ string, _ uuid.UUID, input, result float64) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	m.inserted = append(m.inserted, [2]float64{input, result})
	return nil
}

func TestCalculatePersistsAndPrepends(t *testing.T) {
	store := &memStore{}
	cache := history.NewCache(store, nil)
	o := New(&doubler{}, cache)

	result, err := o.Calculate(context.Background(), "4", testSession)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	if result != 8 {
		t.Errorf("result = %v, want 8", result)
	}

	records := cache.Records()
	if len(records) != 1 {
		t.Fatalf("cache has %d records, want 1", len(records))
	}
	if records[0].Input != 4 || records[0].Result != 8 {
		t.Errorf("head = %+v, want input 4 result 8", records[0])
	}
	if records[0].CreatedAt.IsZero() {
		t.Error("head has zero timestamp, want local time")
	}

	if len(store.inserted) != 1 || store.inserted[0] != [2]float64{4, 8} {
		t.Errorf("store inserts = %v, want one (4, 8) row", store.inserted)
	}
}

func TestCalculateAnonymousSkipsHistory(t *testing.T) {
	store := &memStore{}
	cache := history.NewCache(store, nil)
	o := New(&doubler{}, cache)

	result, err := o.Calculate(context.Background(), "2", nil)
	if err != nil {
		t.Fatalf("Calculate() error: %v", err)
	}
	if result != 4 {
		t.Errorf("result = %v, want 4", result)
	}
	if cache.Len() != 0 {
		t.Errorf("cache has %d records for anonymous call, want 0", cache.Len())
	}
	if len(store.inserted) != 0 {
		t.Errorf("store got %d inserts for anonymous call, want 0", len(store.inserted))
	}
}

func TestCalculateComputeFailureLeavesCacheUnchanged(t *testing.T) {
	store := &memStore{}
	cache := history.NewCache(store, nil)
	o := New(&doubler{fail: errors.New("HTTP 500: compute exploded")}, cache)

	_, err := o.Calculate(context.Background(), "4", testSession)
	if err == nil {
		t.Fatal("expected error from failed compute")
	}
	if errors.Is(err, ErrPersistence) {
		t.Error("compute failure reported as persistence failure")
	}
	if cache.Len() != 0 {
		t.Errorf("cache has %d records after compute failure, want 0", cache.Len())
	}
}

func TestCalculatePersistenceFailureStillReturnsResult(t *testing.T) {
	store := &memStore{failWrite: errors.New("insert denied")}
	cache := history.NewCache(store, nil)
	o := New(&doubler{}, cache)

	result, err := o.Calculate(context.Background(), "4", testSession)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("error = %v, want ErrPersistence", err)
	}
	if result != 8 {
		t.Errorf("result = %v, want 8 despite persistence failure", result)
	}
	// The optimistic prepend stays: reconciliation happens only on reload.
	if cache.Len() != 1 {
		t.Errorf("cache has %d records, want the optimistic one", cache.Len())
	}
}

func TestCalculateUnparseableInputPassesThrough(t *testing.T) {
	store := &memStore{}
	cache := history.NewCache(store, nil)
	d := &doubler{}
	o := New(d, cache)

	if _, err := o.Calculate(context.Background(), "not-a-number", testSession); err != nil {
		// Persistence of a NaN input may fail at encoding; the compute
		// call itself must still have gone out.
		if !errors.Is(err, ErrPersistence) {
			t.Fatalf("Calculate() error: %v", err)
		}
	}
	if d.calls != 1 {
		t.Errorf("compute called %d times, want 1 (raw input forwarded)", d.calls)
	}
	records := cache.Records()
	if len(records) != 1 || !math.IsNaN(records[0].Input) {
		t.Errorf("records = %+v, want one record with NaN input", records)
	}
}
