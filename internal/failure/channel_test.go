package failure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a thread-safe Sink used across the failure tests.
type recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *recorder) Report(rep Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return nil
}

func (r *recorder) errs() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.reports))
	for i, rep := range r.reports {
		out[i] = rep.Err
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandle_ForwardsToSinks(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rec := &recorder{}
	ch := New(discardLogger(), "run-1", rec)
	boom := errors.New("boom")

	// --- Act ---
	ch.Handle(boom)
	ch.Handle(nil)

	// --- Assert ---
	require.Equal(t, []error{boom}, rec.errs())
	assert.EqualValues(t, 1, ch.Handled())
	assert.Equal(t, "run-1", rec.reports[0].RunID)
	assert.False(t, rec.reports[0].At.IsZero())
}

func TestHandle_NeverPanics(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	ch := New(discardLogger(), "run")
	ch.AddSink(SinkFunc(func(Report) error { panic("sink exploded") }))
	ch.AddSink(SinkFunc(func(Report) error { return errors.New("sink refused") }))
	ch.AddSink(rec)

	require.NotPanics(t, func() { ch.Handle(errors.New("x")) })
	require.Len(t, rec.errs(), 1, "later sinks still receive the report")
}

func TestGuard(t *testing.T) {
	t.Parallel()

	ch := New(discardLogger(), "run")

	err := ch.Guard(func() error { panic("constructor blew up") })
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "constructor blew up", pe.Value)
	assert.NotEmpty(t, pe.Stack)

	sentinel := errors.New("wrapped")
	err = ch.Guard(func() error { panic(sentinel) })
	require.ErrorIs(t, err, sentinel)

	err = ch.Guard(func() error { return sentinel })
	require.Same(t, sentinel, err)

	assert.Zero(t, ch.Handled(), "Guard returns errors instead of handling them")
}

func TestRecover(t *testing.T) {
	t.Parallel()

	err := Recover(func() error { panic("validator threw") })
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "validator threw", pe.Value)

	plain := errors.New("plain")
	require.Same(t, plain, Recover(func() error { return plain }))
	require.NoError(t, Recover(func() error { return nil }))
}

func TestGo_RoutesAsyncFailures(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rec := &recorder{}
	ch := New(discardLogger(), "run", rec)
	decodeErr := errors.New("decode failed")

	// --- Act ---
	ch.Go(context.Background(), "viewer", func(context.Context) error { return decodeErr })
	ch.Go(context.Background(), "sampler", func(context.Context) error { panic("tick") })
	ch.Go(context.Background(), "quiet", func(context.Context) error { return nil })
	ch.Go(context.Background(), "stopped", func(context.Context) error { return context.Canceled })
	ch.Wait()

	// --- Assert ---
	errs := rec.errs()
	require.Len(t, errs, 2)
	var sawDecode, sawPanic bool
	for _, err := range errs {
		if errors.Is(err, decodeErr) {
			sawDecode = true
			assert.Contains(t, err.Error(), "viewer: ")
		}
		var pe *PanicError
		if errors.As(err, &pe) {
			sawPanic = true
			assert.Contains(t, err.Error(), "sampler: ")
		}
	}
	assert.True(t, sawDecode)
	assert.True(t, sawPanic)
}

type fakeEmitter struct {
	event string
	args  []any
}

func (f *fakeEmitter) Emit(ev string, args ...any) error {
	f.event = ev
	f.args = args
	return nil
}

func TestSocketIOSink_Report(t *testing.T) {
	t.Parallel()

	out := &fakeEmitter{}
	sink := &SocketIOSink{logger: discardLogger(), out: out}
	ch := New(discardLogger(), "run-42", sink)

	ch.Handle(errors.New("surface lost"))

	require.Equal(t, ReportEvent, out.event)
	require.Len(t, out.args, 1)
	payload := out.args[0].(map[string]any)
	assert.Equal(t, "run-42", payload["run_id"])
	assert.Equal(t, "surface lost", payload["message"])
	require.NoError(t, sink.Close())
}

func TestNewSocketIOSink_RejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := NewSocketIOSink(discardLogger(), SocketIOOptions{URL: "/collector"})
	require.ErrorContains(t, err, "must be absolute")
}
