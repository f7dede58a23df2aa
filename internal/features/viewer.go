package features

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/vk/imgboot/internal/config"
	"github.com/vk/imgboot/internal/managers"
)

// Decoder turns the stored bitstream into pixels. The codec itself is an
// external collaborator.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (width, height int, err error)
}

// Viewer displays a stored image. Unlike the uploader, construction does not
// start any work: Start must be called to fetch and decode.
type Viewer struct {
	cfg     *config.Application
	ui      *managers.UI
	decoder Decoder
	read    func(string) ([]byte, error)

	mu       sync.Mutex
	started  bool
	rendered bool
}

// NewViewer creates the viewer without touching the image source.
func NewViewer(cfg *config.Application, ui *managers.UI, decoder Decoder) (*Viewer, error) {
	if cfg == nil || ui == nil {
		return nil, errors.New("viewer requires configuration and ui manager")
	}
	return &Viewer{cfg: cfg, ui: ui, decoder: decoder, read: os.ReadFile}, nil
}

// Start loads and decodes the configured source. It runs once.
func (v *Viewer) Start(ctx context.Context) error {
	v.mu.Lock()
	if v.started {
		v.mu.Unlock()
		return errors.New("viewer already started")
	}
	v.started = true
	v.mu.Unlock()

	src := v.cfg.Viewer.Source
	if src == "" {
		return errors.New("viewer has no image source configured")
	}
	data, err := v.read(src)
	if err != nil {
		return fmt.Errorf("load %s: %w", src, err)
	}
	if v.decoder == nil {
		return errors.New("viewer has no decoder")
	}
	w, h, err := v.decoder.Decode(ctx, data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}

	v.mu.Lock()
	v.rendered = true
	v.mu.Unlock()
	v.ui.Notify(fmt.Sprintf("displaying %s (%dx%d)", src, w, h))
	return nil
}

// Started reports whether Start has been called.
func (v *Viewer) Started() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.started
}

// Rendered reports whether the image was decoded and shown.
func (v *Viewer) Rendered() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rendered
}
