package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	c := New[string, int](Config{Capacity: 4})
	c.Put("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v, want 1, true", v, ok)
	}
}

func TestPutNilValuePanics(t *testing.T) {
	c := New[string, *int](Config{Capacity: 4})
	defer func() {
		if recover() == nil {
			t.Fatal("Put(key, nil) did not panic")
		}
	}()
	c.Put("a", nil)
}

func TestGetMiss(t *testing.T) {
	c := New[string, int](Config{Capacity: 4})
	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) = true, want false")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](Config{Capacity: 2})
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3) // evicts a, the LRU

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have been evicted")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("Get(b) = %d, %v, want 2, true", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("Get(c) = %d, %v, want 3, true", v, ok)
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c := New[string, int](Config{Capacity: 2})
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")       // a is now more recently used than b
	c.Put("c", 3)    // evicts b, not a

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted, a was touched more recently")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should still be cached")
	}
}

func TestPutOverwritesValueAndRecency(t *testing.T) {
	c := New[string, int](Config{Capacity: 2})
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 99) // overwrite, a becomes most recently used
	c.Put("c", 3)  // evicts b

	v, ok := c.Get("a")
	if !ok || v != 99 {
		t.Fatalf("Get(a) = %d, %v, want 99, true", v, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c := New[string, int](Config{Capacity: 4})
	var calls atomic.Int64
	compute := func(string) (int, bool, error) {
		calls.Add(1)
		return 42, true, nil
	}

	v, found, err := c.GetOrCompute("a", compute)
	if err != nil || !found || v != 42 {
		t.Fatalf("GetOrCompute = %d, %v, %v, want 42, true, nil", v, found, err)
	}
	v, found, err = c.GetOrCompute("a", compute)
	if err != nil || !found || v != 42 {
		t.Fatalf("second GetOrCompute = %d, %v, %v, want 42, true, nil", v, found, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("compute called %d times, want 1", calls.Load())
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := New[string, int](Config{Capacity: 4})
	boom := errors.New("boom")
	_, found, err := c.GetOrCompute("a", func(string) (int, bool, error) { return 0, false, boom })
	if err != boom {
		t.Fatalf("GetOrCompute error = %v, want boom", err)
	}
	if found {
		t.Fatal("GetOrCompute found = true on a failed compute, want false")
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0 after a failed compute", c.Size())
	}
}

func TestGetOrComputeAbsentNotCached(t *testing.T) {
	c := New[string, int](Config{Capacity: 4})
	var calls atomic.Int64
	v, found, err := c.GetOrCompute("a", func(string) (int, bool, error) {
		calls.Add(1)
		return 0, false, nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute error = %v, want nil", err)
	}
	if found {
		t.Fatal("GetOrCompute found = true for an absent compute result, want false")
	}
	if v != 0 {
		t.Fatalf("GetOrCompute value = %d, want zero value", v)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0: an absent result must not be cached", c.Size())
	}

	// A second call should invoke compute again, since nothing was cached.
	c.GetOrCompute("a", func(string) (int, bool, error) {
		calls.Add(1)
		return 0, false, nil
	})
	if calls.Load() != 2 {
		t.Fatalf("compute called %d times, want 2 (absent result is never cached)", calls.Load())
	}
}

func TestGetOrComputeRaceKeepsFirstWriter(t *testing.T) {
	c := New[string, int](Config{Capacity: 4})
	var wg sync.WaitGroup
	results := make([]int, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, _ := c.GetOrCompute("shared", func(string) (int, bool, error) { return i, true, nil })
			results[i] = v
		}(i)
	}
	wg.Wait()

	first := results[0]
	for i, v := range results {
		if v != first {
			t.Fatalf("results[%d] = %d, want %d (every goroutine should observe the same winner)", i, v, first)
		}
	}
}

func TestClearRemovesEverything(t *testing.T) {
	c := New[string, int](Config{Capacity: 4})
	c.Put("a", 1)
	c.Put("b", 2)
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("Size() = %d after Clear, want 0", c.Size())
	}
	c.Put("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("Get(c) after Clear+Put = %d, %v, want 3, true", v, ok)
	}
}

func TestConcurrentPutGetStaysWithinCapacity(t *testing.T) {
	const capacity = 16
	c := New[int, int](Config{Capacity: capacity})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := (w*500 + i) % 64
				c.Put(key, key)
				c.Get(key)
			}
		}(w)
	}
	wg.Wait()

	if got := c.Size(); got > capacity {
		t.Fatalf("Size() = %d, want <= %d", got, capacity)
	}
}
