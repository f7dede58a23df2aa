package features

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/imgboot/internal/config"
	"github.com/vk/imgboot/internal/eventbus"
	"github.com/vk/imgboot/internal/managers"
)

func newUI(t *testing.T) (*managers.UI, *[]any) {
	t.Helper()
	bus := eventbus.New()
	var notices []any
	_, err := bus.Subscribe(managers.TopicNotice, func(e eventbus.Event) { notices = append(notices, e.Payload) })
	require.NoError(t, err)
	ui := managers.NewUI(bus)
	require.NoError(t, ui.Initialize(context.Background()))
	return ui, &notices
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

// stubClassifier records the stats it saw and answers with class.
type stubClassifier struct {
	class string
	err   error
	seen  []managers.ImageStats
}

func (c *stubClassifier) Analyze(s managers.ImageStats) (string, error) {
	c.seen = append(c.seen, s)
	return c.class, c.err
}

func newPool(max int) *managers.Pool {
	return managers.NewPool(eventbus.New(), managers.SystemClock, max)
}

func TestUploader_BindsUploadAction(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ui, notices := newUI(t)
	classifier := &stubClassifier{class: "graphic"}
	pool := newPool(2)
	u, err := NewUploader(config.Default(), ui, HeaderDecoder{}, classifier, pool)
	require.NoError(t, err)
	data, err := os.ReadFile(writePNG(t, 6, 4))
	require.NoError(t, err)
	ctx := context.Background()

	// --- Act ---
	require.NoError(t, ui.Trigger(ctx, ActionUpload, Upload{Name: "cat.png", Data: data}))

	// --- Assert ---
	assert.Equal(t, []string{"cat.png"}, u.Queued())
	assert.Equal(t, []any{"cat.png (graphic, 6x4) queued for webp encoding at quality 85"}, *notices)
	require.Len(t, classifier.seen, 1)
	assert.Equal(t, 6, classifier.seen[0].Width)
	assert.Equal(t, 4, classifier.seen[0].Height)
	assert.Positive(t, classifier.seen[0].Entropy)
	inUse, idle := pool.Stats()
	assert.Equal(t, 0, inUse, "the staging buffer goes back to the pool")
	assert.Equal(t, 1, idle)

	_, err = NewUploader(config.Default(), ui, HeaderDecoder{}, classifier, pool)
	require.Error(t, err, "a second uploader cannot bind the same action")
}

func TestUploader_RejectsBadUploads(t *testing.T) {
	t.Parallel()

	img, err := os.ReadFile(writePNG(t, 2, 2))
	require.NoError(t, err)

	testCases := []struct {
		name       string
		payload    any
		classifier *stubClassifier
		want       string
	}{
		{"wrong payload", "nope", &stubClassifier{}, "expects Upload"},
		{"empty", Upload{Name: "empty.png"}, &stubClassifier{}, "is empty"},
		{"not an image", Upload{Name: "notes.txt", Data: []byte("hello")}, &stubClassifier{}, "read notes.txt"},
		{"classifier error", Upload{Name: "a.png", Data: img}, &stubClassifier{err: errors.New("script threw")}, "analyze a.png: script threw"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ui, notices := newUI(t)
			u, err := NewUploader(config.Default(), ui, HeaderDecoder{}, tc.classifier, newPool(1))
			require.NoError(t, err)

			err = ui.Trigger(context.Background(), ActionUpload, tc.payload)

			require.ErrorContains(t, err, tc.want)
			assert.Empty(t, u.Queued())
			assert.Empty(t, *notices)
		})
	}
}

func TestUploader_PoolExhausted(t *testing.T) {
	t.Parallel()

	ui, _ := newUI(t)
	pool := newPool(1)
	held, err := pool.Acquire(8)
	require.NoError(t, err)
	defer pool.Release(held)
	_, err = NewUploader(config.Default(), ui, HeaderDecoder{}, &stubClassifier{}, pool)
	require.NoError(t, err)

	err = ui.Trigger(context.Background(), ActionUpload, Upload{Name: "big.png", Data: []byte{1}})

	require.ErrorIs(t, err, managers.ErrPoolExhausted)
}

func TestNewUploader_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	ui, _ := newUI(t)
	_, err := NewUploader(config.Default(), ui, nil, &stubClassifier{}, newPool(1))
	require.ErrorContains(t, err, "requires a decoder")
	_, err = NewUploader(nil, ui, HeaderDecoder{}, &stubClassifier{}, newPool(1))
	require.Error(t, err)
}

func TestByteEntropy(t *testing.T) {
	t.Parallel()

	assert.Zero(t, byteEntropy([]byte{7, 7, 7, 7}))
	assert.InDelta(t, 1.0, byteEntropy([]byte{0, 1, 0, 1}), 1e-9)
	assert.InDelta(t, 2.0, byteEntropy([]byte{0, 1, 2, 3}), 1e-9)
}

func TestViewer_ConstructionDoesNotStart(t *testing.T) {
	t.Parallel()

	ui, notices := newUI(t)
	cfg := config.Default()
	cfg.Viewer.Source = writePNG(t, 3, 2)

	v, err := NewViewer(cfg, ui, HeaderDecoder{})
	require.NoError(t, err)
	assert.False(t, v.Started())
	assert.Empty(t, *notices)

	require.NoError(t, v.Start(context.Background()))
	assert.True(t, v.Rendered())
	assert.Equal(t, []any{"displaying " + cfg.Viewer.Source + " (3x2)"}, *notices)
	require.Error(t, v.Start(context.Background()), "Start runs once")
}

type failingDecoder struct{}

func (failingDecoder) Decode(context.Context, []byte) (int, int, error) {
	return 0, 0, errors.New("corrupt bitstream")
}

func TestViewer_StartFailures(t *testing.T) {
	t.Parallel()

	ui, _ := newUI(t)
	path := writePNG(t, 1, 1)

	testCases := []struct {
		name    string
		source  string
		decoder Decoder
		want    string
	}{
		{"no source", "", HeaderDecoder{}, "no image source"},
		{"missing file", filepath.Join(t.TempDir(), "gone.png"), HeaderDecoder{}, "load "},
		{"no decoder", path, nil, "no decoder"},
		{"decode error", path, failingDecoder{}, "corrupt bitstream"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Viewer.Source = tc.source
			v, err := NewViewer(cfg, ui, tc.decoder)
			require.NoError(t, err)

			err = v.Start(context.Background())

			require.ErrorContains(t, err, tc.want)
			assert.False(t, v.Rendered())
		})
	}
}

func TestHeaderDecoder_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := HeaderDecoder{}.Decode(context.Background(), []byte("not an image"))
	require.Error(t, err)
}
