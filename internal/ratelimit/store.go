package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

// Store is the keyed sliding-window backend. Implementations own locking and
// window state; the admission algorithm itself lives in decide. The in-memory
// store below is correct for a single instance; a multi-instance deployment
// swaps in a store backed by a shared KV without touching decision logic.
type Store interface {
	// Take runs the read-purge-append sequence for one identifier atomically
	// with respect to other calls for the same identifier.
	Take(identifier string, policy Policy, now time.Time) (Result, error)
	Stop()
}

const storeShards = 32

// MemoryStore is a sharded in-process Store. Requests for the same identifier
// always land on the same shard, so the check-then-act sequence is serialized
// under the shard mutex and a full window can never double-admit.
type MemoryStore struct {
	shards   [storeShards]*storeShard
	stopChan chan struct{}
	stopOnce sync.Once
}

type storeShard struct {
	mu      sync.Mutex
	windows map[string]*windowEntry
}

type windowEntry struct {
	timestamps []time.Time
	// window is the policy window this entry was last taken against. The
	// janitor must never evict before lastSeen + window has passed: deleting
	// a live entry hands the caller a fresh budget early.
	window   time.Duration
	lastSeen time.Time
}

// NewMemoryStore creates a sharded in-memory store and starts its janitor
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		stopChan: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &storeShard{windows: make(map[string]*windowEntry)}
	}

	go s.cleanup()
	return s
}

// Take implements Store
func (s *MemoryStore) Take(identifier string, policy Policy, now time.Time) (Result, error) {
	shard := s.shardFor(identifier)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.windows[identifier]
	if !ok {
		entry = &windowEntry{}
		shard.windows[identifier] = entry
	}

	result, timestamps := decide(entry.timestamps, policy, now)
	entry.timestamps = timestamps
	entry.window = policy.Window()
	entry.lastSeen = now

	return result, nil
}

func (s *MemoryStore) shardFor(identifier string) *storeShard {
	h := fnv.New32a()
	h.Write([]byte(identifier))
	return s.shards[h.Sum32()%storeShards]
}

const idleGrace = 5 * time.Minute

// cleanup periodically evicts expired windows. Correctness does not depend
// on this: purging happens lazily on every Take. The sweep only bounds
// memory for identifiers that stopped sending traffic.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired(time.Now())
		case <-s.stopChan:
			return
		}
	}
}

// evictExpired removes windows whose full policy window has elapsed since
// the last request, plus a grace period. An entry inside its window still
// carries countable timestamps and must survive the sweep.
func (s *MemoryStore) evictExpired(now time.Time) int {
	removed := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		for key, entry := range shard.windows {
			if now.Sub(entry.lastSeen) > entry.window+idleGrace {
				delete(shard.windows, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// Stop stops the janitor goroutine
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// TrackedIdentifiers returns the number of windows currently held
func (s *MemoryStore) TrackedIdentifiers() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		total += len(shard.windows)
		shard.mu.Unlock()
	}
	return total
}
