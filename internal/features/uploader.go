// Package features holds the two page entry points: the uploader and the
// viewer. Exactly one of them is constructed per run, depending on the page.
package features

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/vk/imgboot/internal/config"
	"github.com/vk/imgboot/internal/managers"
)

// ActionUpload is the UI action the uploader binds.
const ActionUpload = "upload"

// Upload is the payload of the upload action.
type Upload struct {
	Name string
	Data []byte
}

// Classifier assigns a content class to an image. The analyzer manager
// implements it.
type Classifier interface {
	Analyze(stats managers.ImageStats) (string, error)
}

// Buffers lends staging buffers. The resource pool implements it.
type Buffers interface {
	Acquire(size int) ([]byte, error)
	Release(buf []byte)
}

// Uploader accepts images, classifies them and queues them for encoding with
// the configured encoder settings.
type Uploader struct {
	cfg      *config.Application
	ui       *managers.UI
	decoder  Decoder
	analyzer Classifier
	buffers  Buffers

	mu     sync.Mutex
	queued []string
}

// NewUploader binds the upload action. Construction alone makes the page
// interactive.
func NewUploader(cfg *config.Application, ui *managers.UI, decoder Decoder, analyzer Classifier, buffers Buffers) (*Uploader, error) {
	if cfg == nil || ui == nil {
		return nil, errors.New("uploader requires configuration and ui manager")
	}
	if decoder == nil || analyzer == nil || buffers == nil {
		return nil, errors.New("uploader requires a decoder, an analyzer and a buffer pool")
	}
	u := &Uploader{cfg: cfg, ui: ui, decoder: decoder, analyzer: analyzer, buffers: buffers}
	if err := ui.Bind(ActionUpload, u.handle); err != nil {
		return nil, fmt.Errorf("uploader: %w", err)
	}
	return u, nil
}

func (u *Uploader) handle(ctx context.Context, payload any) error {
	up, ok := payload.(Upload)
	if !ok {
		return fmt.Errorf("upload action expects Upload, got %T", payload)
	}
	if len(up.Data) == 0 {
		return fmt.Errorf("upload %q is empty", up.Name)
	}

	buf, err := u.buffers.Acquire(len(up.Data))
	if err != nil {
		return fmt.Errorf("stage %s: %w", up.Name, err)
	}
	defer u.buffers.Release(buf)
	copy(buf, up.Data)

	w, h, err := u.decoder.Decode(ctx, buf)
	if err != nil {
		return fmt.Errorf("read %s: %w", up.Name, err)
	}
	class, err := u.analyzer.Analyze(managers.ImageStats{Width: w, Height: h, Entropy: byteEntropy(buf)})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", up.Name, err)
	}

	u.mu.Lock()
	u.queued = append(u.queued, up.Name)
	u.mu.Unlock()
	u.ui.Notify(fmt.Sprintf("%s (%s, %dx%d) queued for %s encoding at quality %d",
		up.Name, class, w, h, u.cfg.Encoder.Format, u.cfg.Encoder.Quality))
	return nil
}

// byteEntropy is the Shannon entropy of data in bits per byte.
func byteEntropy(data []byte) float64 {
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	n := float64(len(data))
	var e float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		e -= p * math.Log2(p)
	}
	return e
}

// Queued returns the names accepted so far.
func (u *Uploader) Queued() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.queued...)
}
