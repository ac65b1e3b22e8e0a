package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAcquireWithinLimit(t *testing.T) {
	r := NewRegistry(3, time.Minute, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		d, ok := r.Acquire("device-auth-192.0.2.1")
		if !ok {
			t.Fatal("acquisition timed out")
		}
		if !d.Allowed {
			t.Fatalf("request %d denied within limit", i+1)
		}
		if d.Remaining != 3-(i+1) {
			t.Errorf("remaining = %d, want %d", d.Remaining, 3-(i+1))
		}
	}

	d, ok := r.Acquire("device-auth-192.0.2.1")
	if !ok {
		t.Fatal("acquisition timed out")
	}
	if d.Allowed {
		t.Error("4th request allowed past a limit of 3")
	}
	if d.Remaining != 0 {
		t.Errorf("remaining after denial = %d, want 0", d.Remaining)
	}
	if d.Limit != 3 {
		t.Errorf("limit = %d, want 3", d.Limit)
	}
	if d.ResetAt.Before(time.Now()) {
		t.Error("reset time already in the past")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	r := NewRegistry(1, time.Minute, 100*time.Millisecond)

	if d, _ := r.Acquire("device-auth-192.0.2.1"); !d.Allowed {
		t.Fatal("first key denied")
	}
	if d, _ := r.Acquire("device-auth-192.0.2.2"); !d.Allowed {
		t.Error("second key throttled by first key's usage")
	}
	if d, _ := r.Acquire("device-auth-192.0.2.1"); d.Allowed {
		t.Error("first key not throttled after its budget was spent")
	}
}

func TestWindowExpiryResetsBudget(t *testing.T) {
	r := NewRegistry(1, 20*time.Millisecond, 100*time.Millisecond)

	if d, _ := r.Acquire("k"); !d.Allowed {
		t.Fatal("first request denied")
	}
	if d, _ := r.Acquire("k"); d.Allowed {
		t.Fatal("second request in window allowed")
	}

	time.Sleep(30 * time.Millisecond)

	if d, _ := r.Acquire("k"); !d.Allowed {
		t.Error("request after window expiry denied")
	}
}

// Exactly N concurrent acquisitions succeed against a budget of N,
// regardless of interleaving.
func TestConcurrentAcquireNoDoubleCounting(t *testing.T) {
	const limit = 50
	const attempts = 200
	r := NewRegistry(limit, time.Minute, time.Second)

	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	start := make(chan struct{})

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d, ok := r.Acquire("device-auth-192.0.2.1")
			results <- ok && d.Allowed
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	allowed := 0
	for granted := range results {
		if granted {
			allowed++
		}
	}
	if allowed != limit {
		t.Errorf("allowed = %d, want exactly %d", allowed, limit)
	}
}

func TestConcurrentDistinctKeys(t *testing.T) {
	r := NewRegistry(2, time.Minute, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		key := fmt.Sprintf("device-auth-198.51.100.%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, ok := r.Acquire(key); !ok || !d.Allowed {
				t.Errorf("fresh key %s denied", key)
			}
		}()
	}
	wg.Wait()

	if got := r.Stats().Keys; got != 32 {
		t.Errorf("tracked keys = %d, want 32", got)
	}
}

func TestSweepEvictsIdleAndGrantsFreshWindow(t *testing.T) {
	r := NewRegistry(2, time.Minute, 100*time.Millisecond)

	// Spend one of two permits; a permit is still grantable, so the
	// entry counts as idle for eviction purposes.
	if d, _ := r.Acquire("k"); !d.Allowed {
		t.Fatal("setup acquisition denied")
	}
	if evicted := r.Sweep(); evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if got := r.Stats().Keys; got != 0 {
		t.Errorf("keys after sweep = %d, want 0", got)
	}

	// A request after eviction sees a full fresh window.
	d, _ := r.Acquire("k")
	if !d.Allowed || d.Remaining != 1 {
		t.Errorf("post-sweep decision = %+v, want allowed with remaining 1", d)
	}
}

func TestSweepKeepsSaturatedWindows(t *testing.T) {
	r := NewRegistry(1, time.Minute, 100*time.Millisecond)

	if d, _ := r.Acquire("hot"); !d.Allowed {
		t.Fatal("setup acquisition denied")
	}
	// Budget exhausted and window still open: no permit is grantable,
	// so the entry must survive the sweep and keep throttling.
	if evicted := r.Sweep(); evicted != 0 {
		t.Errorf("evicted = %d, want 0", evicted)
	}
	if d, _ := r.Acquire("hot"); d.Allowed {
		t.Error("saturated key granted a permit after sweep")
	}
}

func TestSweepConcurrentWithAcquire(t *testing.T) {
	r := NewRegistry(5, 10*time.Millisecond, time.Second)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				r.Sweep()
			}
		}
	}()

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("device-auth-10.0.0.%d", n)
			for j := 0; j < 200; j++ {
				r.Acquire(key)
			}
		}(i)
	}

	wg.Wait()
	close(stop)
	<-done
}
