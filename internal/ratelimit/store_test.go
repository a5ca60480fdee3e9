package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_NoDoubleAdmitUnderConcurrency(t *testing.T) {
	store := NewMemoryStore()
	defer store.Stop()

	policy := Policy{WindowMs: 60000, MaxRequests: 5}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	const workers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			result, err := store.Take("student-1", policy, now.Add(time.Duration(offset)*time.Millisecond))
			if err != nil {
				t.Errorf("Take() error: %v", err)
				return
			}
			if result.Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if admitted != policy.MaxRequests {
		t.Fatalf("admitted = %d, want exactly %d", admitted, policy.MaxRequests)
	}
}

func TestMemoryStore_IdentifiersAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	defer store.Stop()

	policy := Policy{WindowMs: 60000, MaxRequests: 1}
	now := time.Now()

	if result, _ := store.Take("ip:198.51.100.1", policy, now); !result.Allowed {
		t.Fatalf("first identifier denied, want admitted")
	}
	if result, _ := store.Take("ip:198.51.100.2", policy, now); !result.Allowed {
		t.Fatalf("second identifier denied, want admitted (windows must be independent)")
	}
	if result, _ := store.Take("ip:198.51.100.1", policy, now); result.Allowed {
		t.Fatalf("second request for full window admitted, want denied")
	}

	if got := store.TrackedIdentifiers(); got != 2 {
		t.Fatalf("TrackedIdentifiers() = %d, want 2", got)
	}
}

func TestMemoryStore_WindowSlidesForward(t *testing.T) {
	store := NewMemoryStore()
	defer store.Stop()

	policy := Policy{WindowMs: 60000, MaxRequests: 2}
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store.Take("caller", policy, base)
	store.Take("caller", policy, base.Add(10*time.Second))

	if result, _ := store.Take("caller", policy, base.Add(20*time.Second)); result.Allowed {
		t.Fatalf("third request inside window admitted, want denied")
	}

	// 61s after the first request it has aged out; one slot is free again.
	result, _ := store.Take("caller", policy, base.Add(61*time.Second))
	if !result.Allowed {
		t.Fatalf("request after oldest aged out denied, want admitted")
	}
}

func TestMemoryStore_SweepKeepsLiveLongWindows(t *testing.T) {
	store := NewMemoryStore()
	defer store.Stop()

	policy := Policy{WindowMs: 600000, MaxRequests: 1} // 10 minutes
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if result, _ := store.Take("caller", policy, base); !result.Allowed {
		t.Fatalf("first request denied, want admitted")
	}
	if result, _ := store.Take("caller", policy, base.Add(time.Second)); result.Allowed {
		t.Fatalf("second request in full window admitted, want denied")
	}

	// 6m30s of idleness is still inside the 10-minute window. The sweep must
	// not evict the entry, and the caller must stay denied.
	if removed := store.evictExpired(base.Add(390 * time.Second)); removed != 0 {
		t.Fatalf("sweep evicted %d live windows, want 0", removed)
	}
	if result, _ := store.Take("caller", policy, base.Add(390*time.Second)); result.Allowed {
		t.Fatalf("admitted inside a full 10-minute window after sweep, want denied")
	}
}

func TestMemoryStore_SweepEvictsAfterWindowPlusGrace(t *testing.T) {
	store := NewMemoryStore()
	defer store.Stop()

	policy := Policy{WindowMs: 600000, MaxRequests: 1}
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store.Take("caller", policy, base)
	store.Take("caller", policy, base.Add(time.Second))

	// lastSeen is base+1s; window (10m) plus grace (5m) must elapse first.
	if removed := store.evictExpired(base.Add(1*time.Second + 600*time.Second + idleGrace)); removed != 0 {
		t.Fatalf("sweep evicted %d windows exactly at the deadline, want 0", removed)
	}
	if removed := store.evictExpired(base.Add(2*time.Second + 600*time.Second + idleGrace)); removed != 1 {
		t.Fatalf("sweep evicted %d windows past the deadline, want 1", removed)
	}
	if got := store.TrackedIdentifiers(); got != 0 {
		t.Fatalf("TrackedIdentifiers() = %d, want 0 after eviction", got)
	}
}
