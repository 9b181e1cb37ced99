package resource

import (
	"sync"
)

// Table wraps a LocalBackend with lifecycle observers.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a new table. limit bounds the number of live entries;
// 0 means unbounded.
func NewTable(limit int) *Table {
	return &Table{
		backend: NewLocalBackend(limit),
	}
}

// Insert stores a value retaining children and returns its handle.
func (t *Table) Insert(value any, children []Handle) (Handle, error) {
	handle, err := t.backend.Create(value, children)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Refs:   1,
		Value:  value,
	})

	return handle, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, error) {
	return t.backend.Get(handle)
}

// Children returns the handles an entry keeps alive.
func (t *Table) Children(handle Handle) ([]Handle, error) {
	return t.backend.Children(handle)
}

// Refs returns the reference count of a handle.
func (t *Table) Refs(handle Handle) (uint32, error) {
	return t.backend.Refs(handle)
}

// Retain adds a reference to a handle.
func (t *Table) Retain(handle Handle) error {
	refs, err := t.backend.Retain(handle)
	if err != nil {
		return err
	}
	t.notify(Event{
		Type:   EventRetained,
		Handle: handle,
		Refs:   refs,
	})
	return nil
}

// Release drops a reference to a handle.
func (t *Table) Release(handle Handle) (Release, error) {
	rel, err := t.backend.Release(handle)
	if err != nil {
		return rel, err
	}

	t.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		Refs:   rel.Refs,
	})
	for i, h := range rel.Freed {
		t.notify(Event{
			Type:   EventFreed,
			Handle: h,
			Value:  rel.Values[i],
		})
	}

	return rel, nil
}

// Reset frees every entry and returns how many were freed.
func (t *Table) Reset() int {
	return t.backend.Reset()
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of live entries.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over all live entries.
func (t *Table) Each(fn func(Handle, any) bool) {
	t.backend.Each(fn)
}

// Close releases all entries and stops accepting operations.
func (t *Table) Close() error {
	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
