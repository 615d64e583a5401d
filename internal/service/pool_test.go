package service

import (
	"sync"
	"testing"
)

func TestGroupPoolAllocateRelease(t *testing.T) {
	pool := NewGroupPool([]string{"g1", "g2"})

	if got := pool.FreeCount(); got != 2 {
		t.Fatalf("FreeCount = %d, want 2", got)
	}

	first, ok := pool.Allocate()
	if !ok {
		t.Fatal("first Allocate failed")
	}
	second, ok := pool.Allocate()
	if !ok {
		t.Fatal("second Allocate failed")
	}
	if first == second {
		t.Fatalf("both allocations returned %q", first)
	}
	if _, ok := pool.Allocate(); ok {
		t.Fatal("Allocate succeeded on exhausted pool")
	}

	pool.Release(first)
	if got := pool.FreeCount(); got != 1 {
		t.Fatalf("FreeCount after release = %d, want 1", got)
	}
	got, ok := pool.Allocate()
	if !ok || got != first {
		t.Fatalf("Allocate after release = %q, %v, want %q, true", got, ok, first)
	}
}

func TestGroupPoolReleaseIdempotent(t *testing.T) {
	pool := NewGroupPool([]string{"g1"})

	pool.Release("g1")
	pool.Release("unknown")
	if got := pool.FreeCount(); got != 1 {
		t.Fatalf("FreeCount = %d, want 1", got)
	}

	if _, ok := pool.Allocate(); !ok {
		t.Fatal("Allocate failed on free pool")
	}
	pool.Release("g1")
	pool.Release("g1")
	if got := pool.FreeCount(); got != 1 {
		t.Fatalf("FreeCount after double release = %d, want 1", got)
	}
}

func TestGroupPoolMarkBusy(t *testing.T) {
	pool := NewGroupPool([]string{"g1", "g2"})

	pool.MarkBusy("g1")
	pool.MarkBusy("unknown")

	if !pool.Contains("g1") || pool.Contains("unknown") {
		t.Fatal("Contains membership wrong")
	}
	if got := pool.FreeCount(); got != 1 {
		t.Fatalf("FreeCount = %d, want 1", got)
	}
	got, ok := pool.Allocate()
	if !ok || got != "g2" {
		t.Fatalf("Allocate = %q, %v, want g2, true", got, ok)
	}
}

func TestGroupPoolConcurrentAllocate(t *testing.T) {
	groups := []string{"g1", "g2", "g3"}
	pool := NewGroupPool(groups)

	var wg sync.WaitGroup
	results := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if id, ok := pool.Allocate(); ok {
				results <- id
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for id := range results {
		if seen[id] {
			t.Fatalf("group %q allocated twice", id)
		}
		seen[id] = true
	}
	if len(seen) != len(groups) {
		t.Fatalf("allocated %d groups, want %d", len(seen), len(groups))
	}
}
