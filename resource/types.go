package resource

import "fmt"

// Handle is an opaque reference to an entry in a table.
// The low 32 bits hold the slot index plus one, the high 32 bits the slot
// generation. Handle 0 is reserved and always invalid. A slot is retired
// once its generation is exhausted, so a stale handle never resolves again.
type Handle uint64

func makeHandle(idx, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(idx+1))
}

// Index returns the slot index, or -1 for the zero handle.
func (h Handle) Index() int {
	return int(uint32(h)) - 1
}

// Generation returns the slot generation the handle was issued for.
func (h Handle) Generation() uint32 {
	return uint32(h >> 32)
}

func (h Handle) String() string {
	if h == 0 {
		return "#0"
	}
	return fmt.Sprintf("#%d.%d", h.Index(), h.Generation())
}

// EventType identifies an entry lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRetained
	EventReleased
	EventFreed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventRetained:
		return "retained"
	case EventReleased:
		return "released"
	case EventFreed:
		return "freed"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Event represents an entry lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Refs   uint32
	Type   EventType
}

// Observer receives notifications about entry lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Backend provides the underlying storage for a table.
type Backend interface {
	// Create stores a value retaining children and returns a handle with one reference.
	Create(value any, children []Handle) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, error)

	// Retain adds a reference to a handle.
	Retain(handle Handle) (uint32, error)

	// Release drops a reference. Entries reaching zero are freed together
	// with any children that reach zero as a result.
	Release(handle Handle) (Release, error)

	// Reset frees every entry and invalidates all handles.
	Reset() int

	// Close releases all entries and stops accepting operations.
	Close() error
}

// Release describes the outcome of dropping one reference.
type Release struct {
	// Freed lists the handles whose entries were freed, outermost first.
	Freed []Handle
	// Values holds the freed values, parallel to Freed.
	Values []any
	// Refs is the remaining count of the released handle.
	Refs uint32
}
