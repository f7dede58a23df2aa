package managers

import (
	"context"
	"errors"
	"sync"
)

// Surface is the rendering surface. It picks the first backend the host
// supports when initialized.
type Surface struct {
	preferred []string
	supported func(backend string) bool
	antialias bool

	mu        sync.Mutex
	backend   string
	smoothing bool
}

// NewSurface creates a surface that will try the backends in order.
func NewSurface(preferred ...string) *Surface {
	if len(preferred) == 0 {
		preferred = []string{"webgl2", "webgl", "canvas2d"}
	}
	return &Surface{
		preferred: preferred,
		supported: func(string) bool { return true },
	}
}

// WithSupport sets the host capability probe.
func (s *Surface) WithSupport(fn func(backend string) bool) *Surface {
	s.supported = fn
	return s
}

// WithAntialias requests antialiased rendering.
func (s *Surface) WithAntialias(on bool) *Surface {
	s.antialias = on
	return s
}

// Initialize implements registry.Initializer.
func (s *Surface) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.preferred {
		if s.supported(b) {
			s.backend = b
			// Antialiasing needs a webgl backend.
			s.smoothing = s.antialias && b != "canvas2d"
			return nil
		}
	}
	return errors.New("no supported rendering backend")
}

// Backend returns the selected backend, or "" before Initialize.
func (s *Surface) Backend() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend
}

// Antialias reports whether the selected backend renders antialiased.
func (s *Surface) Antialias() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.smoothing
}
