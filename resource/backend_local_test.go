package resource

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend(0)

	handle, err := b.Create("test value", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, err := b.Get(handle)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	rel, err := b.Release(handle)
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if len(rel.Freed) != 1 || rel.Freed[0] != handle {
		t.Fatalf("Expected handle freed, got %v", rel.Freed)
	}
	if rel.Values[0] != "test value" {
		t.Fatalf("Expected freed value 'test value', got %v", rel.Values[0])
	}

	if _, err := b.Get(handle); !errors.Is(err, ErrStale) {
		t.Fatalf("Expected ErrStale after Release, got %v", err)
	}
}

func TestLocalBackend_DoubleRelease(t *testing.T) {
	b := NewLocalBackend(0)

	h, _ := b.Create(1, nil)
	if _, err := b.Release(h); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := b.Release(h); !errors.Is(err, ErrStale) {
		t.Fatalf("Expected ErrStale on double release, got %v", err)
	}
	if _, err := b.Retain(h); !errors.Is(err, ErrStale) {
		t.Fatalf("Expected ErrStale on retain after release, got %v", err)
	}
}

func TestLocalBackend_StaleAfterReuse(t *testing.T) {
	b := NewLocalBackend(0)

	h1, _ := b.Create("old", nil)
	b.Release(h1)

	h2, _ := b.Create("new", nil)
	if h2.Index() != h1.Index() {
		t.Fatalf("Expected slot reuse, got %v and %v", h1, h2)
	}
	if h2 == h1 {
		t.Fatal("Reused slot should carry a new generation")
	}

	if _, err := b.Get(h1); !errors.Is(err, ErrStale) {
		t.Fatalf("Stale handle resolved: %v", err)
	}
	val, err := b.Get(h2)
	if err != nil || val != "new" {
		t.Fatalf("Get(h2) = %v, %v", val, err)
	}
}

func TestLocalBackend_GenerationExhausted(t *testing.T) {
	b := NewLocalBackend(0)

	if _, err := b.Create("first", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	b.entries[0].gen = math.MaxUint32
	last := makeHandle(0, math.MaxUint32)

	if _, err := b.Release(last); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if len(b.freeList) != 0 {
		t.Fatalf("exhausted slot returned to free list: %v", b.freeList)
	}

	next, err := b.Create("second", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if next.Index() == 0 {
		t.Fatalf("exhausted slot reused: %v", next)
	}
	if _, err := b.Get(last); !errors.Is(err, ErrStale) {
		t.Fatalf("Expected ErrStale for retired slot, got %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("Expected 1 live entry, got %d", b.Len())
	}
}

func TestLocalBackend_RefCounts(t *testing.T) {
	b := NewLocalBackend(0)

	h, _ := b.Create("shared", nil)
	for i := 0; i < 3; i++ {
		if _, err := b.Retain(h); err != nil {
			t.Fatalf("Retain %d failed: %v", i, err)
		}
	}
	if refs, _ := b.Refs(h); refs != 4 {
		t.Fatalf("Expected 4 refs, got %d", refs)
	}

	for i := 0; i < 3; i++ {
		rel, err := b.Release(h)
		if err != nil {
			t.Fatalf("Release %d failed: %v", i, err)
		}
		if len(rel.Freed) != 0 {
			t.Fatalf("Freed early at release %d", i)
		}
	}

	rel, err := b.Release(h)
	if err != nil {
		t.Fatalf("final Release failed: %v", err)
	}
	if len(rel.Freed) != 1 {
		t.Fatalf("Expected entry freed on last release, got %v", rel.Freed)
	}
}

func TestLocalBackend_Children(t *testing.T) {
	b := NewLocalBackend(0)

	arg, _ := b.Create("arg", nil)
	fn1, _ := b.Create("fn1", []Handle{arg})
	fn2, _ := b.Create("fn2", []Handle{arg})

	if refs, _ := b.Refs(arg); refs != 3 {
		t.Fatalf("Expected arg refs 3, got %d", refs)
	}

	// owner drops its reference; parents keep arg alive
	if _, err := b.Release(arg); err != nil {
		t.Fatalf("Release arg failed: %v", err)
	}
	if _, err := b.Get(arg); err != nil {
		t.Fatalf("arg should be alive while referenced: %v", err)
	}

	rel, _ := b.Release(fn1)
	if len(rel.Freed) != 1 || rel.Freed[0] != fn1 {
		t.Fatalf("Expected only fn1 freed, got %v", rel.Freed)
	}

	rel, _ = b.Release(fn2)
	if len(rel.Freed) != 2 {
		t.Fatalf("Expected fn2 and arg freed, got %v", rel.Freed)
	}
	if rel.Freed[0] != fn2 || rel.Freed[1] != arg {
		t.Fatalf("Unexpected free order %v", rel.Freed)
	}
	if b.Len() != 0 {
		t.Fatalf("Expected empty backend, got %d", b.Len())
	}
}

func TestLocalBackend_CreateWithStaleChild(t *testing.T) {
	b := NewLocalBackend(0)

	arg, _ := b.Create("arg", nil)
	b.Release(arg)

	if _, err := b.Create("fn", []Handle{arg}); !errors.Is(err, ErrStale) {
		t.Fatalf("Expected ErrStale, got %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("Failed Create should not allocate, Len = %d", b.Len())
	}
}

func TestLocalBackend_Limit(t *testing.T) {
	b := NewLocalBackend(2)

	h1, _ := b.Create(1, nil)
	b.Create(2, nil)
	if _, err := b.Create(3, nil); !errors.Is(err, ErrExhausted) {
		t.Fatalf("Expected ErrExhausted, got %v", err)
	}

	b.Release(h1)
	if _, err := b.Create(3, nil); err != nil {
		t.Fatalf("Create after release failed: %v", err)
	}
}

func TestLocalBackend_Reset(t *testing.T) {
	b := NewLocalBackend(0)

	h1, _ := b.Create(1, nil)
	h2, _ := b.Create(2, []Handle{h1})

	if n := b.Reset(); n != 2 {
		t.Fatalf("Expected 2 entries reset, got %d", n)
	}
	for _, h := range []Handle{h1, h2} {
		if _, err := b.Get(h); !errors.Is(err, ErrStale) {
			t.Fatalf("Expected ErrStale after Reset, got %v", err)
		}
	}

	h3, err := b.Create(3, nil)
	if err != nil {
		t.Fatalf("Create after Reset failed: %v", err)
	}
	if h3 == h1 || h3 == h2 {
		t.Fatal("Handle after Reset collides with a stale handle")
	}
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend(0)

	h, _ := b.Create(1, nil)
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if _, err := b.Create(1, nil); !errors.Is(err, ErrClosed) {
		t.Fatal("Expected ErrClosed after Close")
	}
	if _, err := b.Get(h); !errors.Is(err, ErrClosed) {
		t.Fatalf("Expected ErrClosed from Get, got %v", err)
	}
}

func TestLocalBackend_InvalidHandle(t *testing.T) {
	b := NewLocalBackend(0)

	if _, err := b.Get(0); !errors.Is(err, ErrInvalidHandle) {
		t.Fatal("Handle 0 should be invalid")
	}
	if _, err := b.Release(0); !errors.Is(err, ErrInvalidHandle) {
		t.Fatal("Handle 0 should fail Release")
	}
	if _, err := b.Retain(makeHandle(999, 0)); !errors.Is(err, ErrInvalidHandle) {
		t.Fatal("Non-existent handle should be invalid")
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend(0)
	shared, _ := b.Create("shared", nil)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := b.Retain(shared); err != nil {
				t.Errorf("Retain failed: %v", err)
				return
			}
			h, err := b.Create(id, []Handle{shared})
			if err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			b.Release(h)
			b.Release(shared)
		}(i)
	}

	wg.Wait()
	if b.Len() != 1 {
		t.Fatalf("Expected only shared entry left, got %d", b.Len())
	}
	if refs, _ := b.Refs(shared); refs != 1 {
		t.Fatalf("Expected shared refs 1, got %d", refs)
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend(0)

	b.Create("a", nil)
	h, _ := b.Create("b", nil)
	b.Create("c", nil)
	b.Release(h)

	count := 0
	b.Each(func(h Handle, value any) bool {
		count++
		return true
	})
	if count != 2 {
		t.Fatalf("Expected to iterate over 2 items, got %d", count)
	}

	count = 0
	b.Each(func(h Handle, value any) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Expected to iterate over 1 item (early term), got %d", count)
	}
}

func TestHandle_String(t *testing.T) {
	if Handle(0).String() != "#0" {
		t.Errorf("zero handle = %s", Handle(0))
	}
	if s := makeHandle(3, 2).String(); s != "#3.2" {
		t.Errorf("handle = %s, want #3.2", s)
	}
}
