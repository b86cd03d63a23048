// Package memory remembers webhook delivery ids in-process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/ymm-sync/internal/fitment"
)

// Guard claims delivery ids for a TTL.
type Guard struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock fitment.Clock
	seen  map[string]time.Time
}

// New returns a Guard that forgets ids after ttl. A zero ttl remembers forever.
func New(ttl time.Duration, clock fitment.Clock) *Guard {
	return &Guard{ttl: ttl, clock: clock, seen: make(map[string]time.Time)}
}

// Claim reports true the first time an id is seen within the TTL window.
func (g *Guard) Claim(_ context.Context, deliveryID string) (bool, error) {
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.evict(now)
	if _, ok := g.seen[deliveryID]; ok {
		return false, nil
	}
	g.seen[deliveryID] = now
	return true, nil
}

// Release forgets deliveryID.
func (g *Guard) Release(_ context.Context, deliveryID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, deliveryID)
	return nil
}

func (g *Guard) evict(now time.Time) {
	if g.ttl <= 0 {
		return
	}
	for id, at := range g.seen {
		if now.Sub(at) >= g.ttl {
			delete(g.seen, id)
		}
	}
}
