package managers

import (
	"fmt"
	"sync"
	"time"

	"github.com/vk/imgboot/internal/eventbus"
)

// TopicMeasure is published for every completed measurement.
const TopicMeasure = "perf:measure"

// Measurement is one timed span.
type Measurement struct {
	Name     string
	Duration time.Duration
}

// PerfMonitor times named spans and keeps a bounded history.
type PerfMonitor struct {
	bus     *eventbus.Bus
	clock   Clock
	history int

	mu       sync.Mutex
	marks    map[string]time.Time
	measures []Measurement
}

// NewPerfMonitor creates a monitor keeping the last history measurements.
func NewPerfMonitor(bus *eventbus.Bus, clock Clock, history int) *PerfMonitor {
	if history <= 0 {
		history = 1
	}
	return &PerfMonitor{
		bus:     bus,
		clock:   clock,
		history: history,
		marks:   make(map[string]time.Time),
	}
}

// Mark starts a span.
func (m *PerfMonitor) Mark(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[name] = m.clock()
}

// Measure ends a span started with Mark.
func (m *PerfMonitor) Measure(name string) (Measurement, error) {
	m.mu.Lock()
	start, ok := m.marks[name]
	if !ok {
		m.mu.Unlock()
		return Measurement{}, fmt.Errorf("no mark named %q", name)
	}
	delete(m.marks, name)
	ms := m.record(name, m.clock().Sub(start))
	m.mu.Unlock()

	m.bus.Publish(TopicMeasure, ms)
	return ms, nil
}

// Lap ends the running span of name, records it and starts the next one at
// the same instant. Without a running span it only starts one and reports
// false.
func (m *PerfMonitor) Lap(name string) (Measurement, bool) {
	m.mu.Lock()
	now := m.clock()
	start, ok := m.marks[name]
	m.marks[name] = now
	if !ok {
		m.mu.Unlock()
		return Measurement{}, false
	}
	ms := m.record(name, now.Sub(start))
	m.mu.Unlock()

	m.bus.Publish(TopicMeasure, ms)
	return ms, true
}

// Snapshot returns the retained measurements, oldest first.
func (m *PerfMonitor) Snapshot() []Measurement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Measurement(nil), m.measures...)
}

// record appends a measurement to the bounded history. m.mu must be held.
func (m *PerfMonitor) record(name string, d time.Duration) Measurement {
	ms := Measurement{Name: name, Duration: d}
	m.measures = append(m.measures, ms)
	if len(m.measures) > m.history {
		m.measures = m.measures[len(m.measures)-m.history:]
	}
	return ms
}
