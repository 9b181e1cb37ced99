package resource

import (
	"errors"
	"math"
	"sync"
)

var (
	ErrClosed        = errors.New("resource backend closed")
	ErrStale         = errors.New("stale handle")
	ErrInvalidHandle = errors.New("invalid handle")
	ErrExhausted     = errors.New("resource table exhausted")
)

var _ Backend = (*LocalBackend)(nil)

// LocalBackend is an in-memory backend with reference counts and slot generations.
type LocalBackend struct {
	entries  []entry
	freeList []uint32
	live     int
	limit    int
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value    any
	children []Handle
	refs     uint32
	gen      uint32
	valid    bool
}

// NewLocalBackend creates a new in-memory backend.
// limit bounds the number of live entries; 0 means unbounded.
func NewLocalBackend(limit int) *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
		limit:    limit,
	}
}

// lookup returns the live entry for handle. Caller holds mu.
func (b *LocalBackend) lookup(handle Handle) (*entry, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if handle == 0 {
		return nil, ErrInvalidHandle
	}
	idx := handle.Index()
	if idx < 0 || idx >= len(b.entries) {
		return nil, ErrInvalidHandle
	}
	e := &b.entries[idx]
	if !e.valid || e.gen != handle.Generation() {
		return nil, ErrStale
	}
	return e, nil
}

// Create stores a value and returns a handle holding one reference.
// Every child gains a reference that is dropped when the entry is freed.
func (b *LocalBackend) Create(value any, children []Handle) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	if b.limit > 0 && b.live >= b.limit {
		return 0, ErrExhausted
	}

	for _, c := range children {
		if _, err := b.lookup(c); err != nil {
			return 0, err
		}
	}
	for _, c := range children {
		b.entries[c.Index()].refs++
	}

	e := entry{
		value: value,
		refs:  1,
		valid: true,
	}
	if len(children) > 0 {
		e.children = append([]Handle(nil), children...)
	}
	b.live++

	if len(b.freeList) > 0 {
		idx := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		e.gen = b.entries[idx].gen
		b.entries[idx] = e
		return makeHandle(idx, e.gen), nil
	}

	b.entries = append(b.entries, e)
	return makeHandle(uint32(len(b.entries)-1), 0), nil
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, err := b.lookup(handle)
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// Children returns the handles an entry keeps alive.
func (b *LocalBackend) Children(handle Handle) ([]Handle, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, err := b.lookup(handle)
	if err != nil {
		return nil, err
	}
	return append([]Handle(nil), e.children...), nil
}

// Refs returns the reference count of a handle.
func (b *LocalBackend) Refs(handle Handle) (uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, err := b.lookup(handle)
	if err != nil {
		return 0, err
	}
	return e.refs, nil
}

// Retain increments the reference count of a handle.
func (b *LocalBackend) Retain(handle Handle) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(handle)
	if err != nil {
		return 0, err
	}
	e.refs++
	return e.refs, nil
}

// Release decrements the reference count of a handle, freeing entries that
// reach zero and cascading into their children.
func (b *LocalBackend) Release(handle Handle) (Release, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, err := b.lookup(handle)
	if err != nil {
		return Release{}, err
	}

	e.refs--
	out := Release{Refs: e.refs}
	if e.refs > 0 {
		return out, nil
	}

	stack := []Handle{handle}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx := uint32(h.Index())
		e := &b.entries[idx]
		out.Freed = append(out.Freed, h)
		out.Values = append(out.Values, e.value)

		for _, c := range e.children {
			ce := &b.entries[c.Index()]
			ce.refs--
			if ce.refs == 0 {
				stack = append(stack, c)
			}
		}

		b.free(idx)
	}

	return out, nil
}

// free clears a slot and bumps its generation. A slot whose generation
// would wrap is retired instead of reused. Caller holds mu.
func (b *LocalBackend) free(idx uint32) {
	e := &b.entries[idx]
	e.value = nil
	e.children = nil
	e.refs = 0
	e.valid = false
	b.live--
	if e.gen == math.MaxUint32 {
		return
	}
	e.gen++
	b.freeList = append(b.freeList, idx)
}

// Reset frees every live entry and returns how many were freed.
// All outstanding handles become stale.
func (b *LocalBackend) Reset() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for i := range b.entries {
		if b.entries[i].valid {
			b.free(uint32(i))
			n++
		}
	}
	return n
}

// Close releases all entries.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	b.entries = nil
	b.freeList = nil
	b.live = 0
	return nil
}

// Len returns the number of live entries.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each iterates over all live entries.
func (b *LocalBackend) Each(fn func(Handle, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(uint32(i), e.gen), e.value) {
				break
			}
		}
	}
}
