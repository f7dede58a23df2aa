package managers

import (
	"fmt"
	"sync"

	"github.com/vk/imgboot/internal/config"
	"github.com/vk/imgboot/internal/eventbus"
)

// TopicDebug carries debug messages from any subsystem.
const TopicDebug = "debug:log"

const debugHistory = 200

// Debug collects debug messages published on the bus while enabled. With
// the overlay on, every message is also shown as a UI notice.
type Debug struct {
	bus *eventbus.Bus
	cfg config.Debug

	mu      sync.Mutex
	entries []string
}

// NewDebug subscribes to the debug topic. A disabled manager still exists so
// other managers can publish unconditionally.
func NewDebug(bus *eventbus.Bus, cfg config.Debug) (*Debug, error) {
	d := &Debug{bus: bus, cfg: cfg}
	if !cfg.Enabled {
		return d, nil
	}
	if _, err := bus.Subscribe(TopicDebug, d.record); err != nil {
		return nil, fmt.Errorf("debug manager: %w", err)
	}
	return d, nil
}

func (d *Debug) record(ev eventbus.Event) {
	msg := fmt.Sprint(ev.Payload)
	d.mu.Lock()
	d.entries = append(d.entries, msg)
	if len(d.entries) > debugHistory {
		d.entries = d.entries[len(d.entries)-debugHistory:]
	}
	d.mu.Unlock()

	if d.cfg.Overlay {
		d.bus.Publish(TopicNotice, "[debug] "+msg)
	}
}

// Enabled reports whether messages are being collected.
func (d *Debug) Enabled() bool { return d.cfg.Enabled }

// Entries returns the collected messages, oldest first.
func (d *Debug) Entries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.entries...)
}
