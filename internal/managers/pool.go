package managers

import (
	"errors"
	"sync"
	"time"

	"github.com/vk/imgboot/internal/eventbus"
)

// TopicPoolExhausted is published when Acquire finds no free slot.
const TopicPoolExhausted = "pool:exhausted"

var ErrPoolExhausted = errors.New("resource pool exhausted")

type pooled struct {
	buf      []byte
	released time.Time
}

// Pool recycles pixel buffers between decode and render passes.
type Pool struct {
	bus   *eventbus.Bus
	clock Clock
	max   int

	mu    sync.Mutex
	inUse int
	idle  []pooled
}

// NewPool creates a pool holding at most max buffers at a time.
func NewPool(bus *eventbus.Bus, clock Clock, max int) *Pool {
	if max <= 0 {
		max = 1
	}
	return &Pool{bus: bus, clock: clock, max: max}
}

// Acquire returns a buffer of at least size bytes.
func (p *Pool) Acquire(size int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := len(p.idle) - 1; i >= 0; i-- {
		if cap(p.idle[i].buf) >= size {
			buf := p.idle[i].buf[:size]
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			p.inUse++
			return buf, nil
		}
	}
	if p.inUse+len(p.idle) >= p.max {
		if len(p.idle) == 0 {
			p.bus.Publish(TopicPoolExhausted, p.max)
			return nil, ErrPoolExhausted
		}
		// Too small to reuse; drop the oldest idle buffer to make room.
		p.idle = p.idle[1:]
	}
	p.inUse++
	return make([]byte, size), nil
}

// Release hands a buffer back.
func (p *Pool) Release(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inUse == 0 {
		return
	}
	p.inUse--
	p.idle = append(p.idle, pooled{buf: buf, released: p.clock()})
}

// Prune drops idle buffers released more than ttl ago and returns how many
// were dropped.
func (p *Pool) Prune(ttl time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.clock().Add(-ttl)
	kept := p.idle[:0]
	for _, b := range p.idle {
		if b.released.After(cutoff) {
			kept = append(kept, b)
		}
	}
	dropped := len(p.idle) - len(kept)
	p.idle = kept
	return dropped
}

// Stats returns buffers in use and idle.
func (p *Pool) Stats() (inUse, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse, len(p.idle)
}
