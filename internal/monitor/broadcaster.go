package monitor

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

const (
	maxClients    = 100
	channelBuffer = 100
)

// Broadcaster fans security events out to SSE clients. Sends are
// non-blocking: a slow client drops events instead of stalling the monitor.
type Broadcaster struct {
	clients   map[string]chan *SecurityEvent
	mu        sync.RWMutex
	clientSeq atomic.Uint64
}

// NewBroadcaster creates a new broadcaster instance
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan *SecurityEvent),
	}
}

// Subscribe adds a new client and returns an event channel.
// Returns ("", nil) if at capacity.
func (b *Broadcaster) Subscribe() (string, <-chan *SecurityEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.clients) >= maxClients {
		log.Printf("⚠️ Event broadcaster at capacity (%d clients)", maxClients)
		return "", nil
	}

	clientID := fmt.Sprintf("sse_%d", b.clientSeq.Add(1))
	ch := make(chan *SecurityEvent, channelBuffer)
	b.clients[clientID] = ch

	log.Printf("📡 Event stream client connected: %s (total: %d)", clientID, len(b.clients))
	return clientID, ch
}

// Unsubscribe removes a client from the broadcaster
func (b *Broadcaster) Unsubscribe(clientID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[clientID]; ok {
		close(ch)
		delete(b.clients, clientID)
		log.Printf("📡 Event stream client disconnected: %s (total: %d)", clientID, len(b.clients))
	}
}

// Broadcast sends an event to all connected clients (non-blocking)
func (b *Broadcaster) Broadcast(event *SecurityEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for clientID, ch := range b.clients {
		select {
		case ch <- event:
			// Event sent successfully
		default:
			// Channel full, skip this client
			log.Printf("⚠️ Event channel full for client %s, dropping event", clientID)
		}
	}
}

// ClientCount returns the current number of connected clients
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}
