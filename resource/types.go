package resource

// Handle is an opaque reference to a resource in a table.
// Handle 0 is reserved and always invalid.
//
// The low 16 bits select a slot (offset by one), the high 16 bits carry the
// slot generation at the time of insertion.
type Handle uint32

const (
	slotBits = 16
	slotMask = 1<<slotBits - 1

	// MaxCapacity is the largest number of live entries a table can hold.
	MaxCapacity = slotMask

	// DefaultCapacity is used when a table is created with capacity <= 0.
	DefaultCapacity = 1024
)

func makeHandle(idx int, gen uint16) Handle {
	return Handle(uint32(gen)<<slotBits | uint32(idx+1))
}

// slot returns the slot index and generation encoded in h.
func (h Handle) slot() (int, uint16) {
	return int(h&slotMask) - 1, uint16(h >> slotBits)
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	}
	return "unknown"
}

// Event represents a resource lifecycle event.
type Event[T any] struct {
	Value  T
	Handle Handle
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
// Notifications are delivered synchronously on the goroutine that mutated
// the table; observers must not call back into the table.
type Observer[T any] interface {
	OnResourceEvent(Event[T])
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc[T any] func(Event[T])

func (f ObserverFunc[T]) OnResourceEvent(e Event[T]) { f(e) }
