package resource

import (
	"sync"

	"github.com/wippyai/wasm-windowing/errors"
)

// Table maps handles to values of one resource kind.
// All methods are safe for concurrent use and never block beyond the
// table's own critical section.
type Table[T any] struct {
	store     *slots[T]
	observers []Observer[T]
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

// NewTable creates a table holding at most capacity live entries.
// capacity <= 0 selects DefaultCapacity; values above MaxCapacity are clamped.
func NewTable[T any](capacity int) *Table[T] {
	return &Table[T]{
		store: newSlots[T](capacity),
	}
}

// Insert adds a value and returns its handle.
// Fails with an exhausted error when the table is full.
func (t *Table[T]) Insert(value T) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, errors.New(errors.PhaseTable, errors.KindInvalidInput).Detail("table closed").Build()
	}
	h, err := t.store.create(value)
	t.mu.Unlock()
	if err != nil {
		return 0, err
	}

	t.notify(Event[T]{Type: EventCreated, Handle: h, Value: value})
	return h, nil
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(h Handle) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store.get(h)
}

// Remove deletes the entry for h and returns (value, true) if it was live.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	t.mu.Lock()
	value, ok := t.store.drop(h)
	t.mu.Unlock()
	if !ok {
		return value, false
	}

	t.notify(Event[T]{Type: EventDropped, Handle: h, Value: value})
	return value, true
}

// Len returns the number of live entries.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store.live
}

// Capacity returns the maximum number of live entries.
func (t *Table[T]) Capacity() int {
	return t.store.capacity
}

// Each calls fn for every live entry until fn returns false.
// fn runs under the table's read lock and must not mutate the table.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	t.store.each(fn)
}

// Find returns the first live entry matching pred.
func (t *Table[T]) Find(pred func(T) bool) (Handle, T, bool) {
	var (
		found Handle
		value T
	)
	t.Each(func(h Handle, v T) bool {
		if pred(v) {
			found, value = h, v
			return false
		}
		return true
	})
	return found, value, found != 0
}

// Clear removes all entries and returns their values.
func (t *Table[T]) Clear() []T {
	var handles []Handle
	t.Each(func(h Handle, _ T) bool {
		handles = append(handles, h)
		return true
	})

	values := make([]T, 0, len(handles))
	for _, h := range handles {
		if v, ok := t.Remove(h); ok {
			values = append(values, v)
		}
	}
	return values
}

// Close clears the table and rejects further inserts.
func (t *Table[T]) Close() []T {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return t.Clear()
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer[T]) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

func (t *Table[T]) notify(e Event[T]) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
