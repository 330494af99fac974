package resource

import (
	"errors"
	"math"
	"sync"
	"testing"

	werrors "github.com/wippyai/wasm-windowing/errors"
)

type testObserver struct {
	events []Event[string]
}

func (o *testObserver) OnResourceEvent(e Event[string]) {
	o.events = append(o.events, e)
}

func TestTable_Basic(t *testing.T) {
	table := NewTable[string](0)

	h, err := table.Insert("test")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	val, ok = table.Remove(h)
	if !ok {
		t.Fatal("Remove failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestTable_ZeroHandleInvalid(t *testing.T) {
	table := NewTable[string](0)
	if _, ok := table.Get(0); ok {
		t.Fatal("Get(0) should fail")
	}
	if _, ok := table.Remove(0); ok {
		t.Fatal("Remove(0) should fail")
	}
}

func TestTable_DistinctHandles(t *testing.T) {
	table := NewTable[int](0)
	seen := make(map[Handle]bool)
	for i := 0; i < 100; i++ {
		h, err := table.Insert(i)
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		if seen[h] {
			t.Fatalf("handle %d issued twice", h)
		}
		seen[h] = true
	}
	if table.Len() != 100 {
		t.Fatalf("Len = %d, want 100", table.Len())
	}
}

func TestTable_DoubleRemove(t *testing.T) {
	table := NewTable[string](0)
	h, _ := table.Insert("a")

	if _, ok := table.Remove(h); !ok {
		t.Fatal("first Remove failed")
	}
	if _, ok := table.Remove(h); ok {
		t.Fatal("second Remove should fail")
	}
	if _, ok := table.Get(h); ok {
		t.Fatal("Get after Remove should fail")
	}
}

func TestTable_StaleHandleAfterReuse(t *testing.T) {
	table := NewTable[string](0)
	old, _ := table.Insert("old")
	table.Remove(old)

	fresh, err := table.Insert("new")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if fresh == old {
		t.Fatal("reused slot must not reissue the same handle")
	}
	if _, ok := table.Get(old); ok {
		t.Fatal("stale handle resolved to reused slot")
	}
	if v, ok := table.Get(fresh); !ok || v != "new" {
		t.Fatalf("Get(fresh) = %q, %v", v, ok)
	}

	idxOld, _ := old.slot()
	idxNew, _ := fresh.slot()
	if idxOld != idxNew {
		t.Fatalf("expected slot reuse: %d vs %d", idxOld, idxNew)
	}
}

func TestTable_GenerationsNeverWrap(t *testing.T) {
	table := NewTable[string](1)
	first, err := table.Insert("first")
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	table.Remove(first)

	// use up every generation of the slot
	for i := 0; i < math.MaxUint16; i++ {
		h, err := table.Insert("cycle")
		if err != nil {
			t.Fatalf("cycle %d: Insert: %v", i, err)
		}
		if _, ok := table.Remove(h); !ok {
			t.Fatalf("cycle %d: Remove failed", i)
		}
	}

	live, err := table.Insert("live")
	if err != nil {
		t.Fatalf("Insert after retirement: %v", err)
	}
	if live == first {
		t.Fatalf("handle %#x reissued after generation wrap", uint32(live))
	}
	if v, ok := table.Get(first); ok {
		t.Fatalf("stale Get(first) = %q, want not found", v)
	}
	if _, ok := table.Remove(first); ok {
		t.Fatal("stale Remove(first) succeeded")
	}
	if v, ok := table.Get(live); !ok || v != "live" {
		t.Fatalf("Get(live) = %q, %v", v, ok)
	}
	idxFirst, _ := first.slot()
	idxLive, _ := live.slot()
	if idxFirst == idxLive {
		t.Error("retired slot was reused")
	}
}

func TestTable_Exhausted(t *testing.T) {
	table := NewTable[int](2)
	if _, err := table.Insert(1); err != nil {
		t.Fatal(err)
	}
	h2, err := table.Insert(2)
	if err != nil {
		t.Fatal(err)
	}

	_, err = table.Insert(3)
	if !errors.Is(err, werrors.ErrExhausted) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len = %d after failed insert, want 2", table.Len())
	}

	table.Remove(h2)
	if _, err := table.Insert(3); err != nil {
		t.Fatalf("Insert after Remove: %v", err)
	}
}

func TestTable_CapacityClamp(t *testing.T) {
	if got := NewTable[int](0).Capacity(); got != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", got, DefaultCapacity)
	}
	if got := NewTable[int](1 << 20).Capacity(); got != MaxCapacity {
		t.Errorf("Capacity = %d, want %d", got, MaxCapacity)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable[string](0)
	obs := &testObserver{}
	table.Subscribe(obs)

	h, _ := table.Insert("x")
	table.Remove(h)
	table.Remove(h)

	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated || obs.events[0].Handle != h {
		t.Errorf("event 0 = %+v", obs.events[0])
	}
	if obs.events[1].Type != EventDropped || obs.events[1].Value != "x" {
		t.Errorf("event 1 = %+v", obs.events[1])
	}
}

func TestTable_FindAndClear(t *testing.T) {
	table := NewTable[int](0)
	for i := 1; i <= 3; i++ {
		table.Insert(i * 10)
	}

	h, v, ok := table.Find(func(v int) bool { return v == 20 })
	if !ok || v != 20 || h == 0 {
		t.Fatalf("Find = %d, %d, %v", h, v, ok)
	}
	if _, _, ok := table.Find(func(v int) bool { return v == 99 }); ok {
		t.Fatal("Find should miss")
	}

	values := table.Clear()
	if len(values) != 3 || table.Len() != 0 {
		t.Fatalf("Clear returned %v, Len = %d", values, table.Len())
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable[int](0)
	table.Insert(1)
	if got := table.Close(); len(got) != 1 {
		t.Fatalf("Close returned %v", got)
	}
	if _, err := table.Insert(2); err == nil {
		t.Fatal("Insert after Close should fail")
	}
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTable[int](0)
	var wg sync.WaitGroup
	handles := make(chan Handle, 400)

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h, err := table.Insert(i)
				if err != nil {
					t.Error(err)
					return
				}
				handles <- h
			}
		}()
	}
	wg.Wait()
	close(handles)

	seen := make(map[Handle]bool)
	for h := range handles {
		if seen[h] {
			t.Fatalf("duplicate handle %d", h)
		}
		seen[h] = true
	}
	if table.Len() != 400 {
		t.Fatalf("Len = %d, want 400", table.Len())
	}
}
