package resource

import (
	"math"

	"github.com/wippyai/wasm-windowing/errors"
)

// slots is the in-memory store behind Table. It is not safe for concurrent
// use; Table serializes access.
type slots[T any] struct {
	entries  []entry[T]
	freeList []int
	live     int
	capacity int
}

type entry[T any] struct {
	value T
	gen   uint16
	valid bool
}

func newSlots[T any](capacity int) *slots[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity > MaxCapacity {
		capacity = MaxCapacity
	}
	return &slots[T]{
		entries:  make([]entry[T], 0, min(capacity, 64)),
		freeList: make([]int, 0, 16),
		capacity: capacity,
	}
}

func (s *slots[T]) create(value T) (Handle, error) {
	if s.live >= s.capacity {
		return 0, errors.Exhausted(s.capacity)
	}

	if n := len(s.freeList); n > 0 {
		idx := s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		e := &s.entries[idx]
		e.value = value
		e.valid = true
		s.live++
		return makeHandle(idx, e.gen), nil
	}

	// slot indexes must fit the handle's low bits; retired slots are never reused
	if len(s.entries) >= MaxCapacity {
		return 0, errors.Exhausted(s.capacity)
	}
	s.entries = append(s.entries, entry[T]{value: value, valid: true})
	s.live++
	return makeHandle(len(s.entries)-1, 0), nil
}

func (s *slots[T]) lookup(h Handle) (*entry[T], int, bool) {
	if h == 0 {
		return nil, 0, false
	}
	idx, gen := h.slot()
	if idx < 0 || idx >= len(s.entries) {
		return nil, 0, false
	}
	e := &s.entries[idx]
	if !e.valid || e.gen != gen {
		return nil, 0, false
	}
	return e, idx, true
}

func (s *slots[T]) get(h Handle) (T, bool) {
	e, _, ok := s.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// drop invalidates h and bumps the slot generation so h can never match
// the slot again. A slot whose generations are used up is retired instead
// of wrapping back to a generation an old handle still carries.
func (s *slots[T]) drop(h Handle) (T, bool) {
	var zero T
	e, idx, ok := s.lookup(h)
	if !ok {
		return zero, false
	}
	value := e.value
	e.value = zero
	e.valid = false
	s.live--
	if e.gen == math.MaxUint16 {
		return value, true
	}
	e.gen++
	s.freeList = append(s.freeList, idx)
	return value, true
}

func (s *slots[T]) each(fn func(Handle, T) bool) {
	for i := range s.entries {
		e := &s.entries[i]
		if !e.valid {
			continue
		}
		if !fn(makeHandle(i, e.gen), e.value) {
			return
		}
	}
}
