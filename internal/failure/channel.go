// Package failure is the process-wide sink for errors nobody else handles.
//
// Go has no ambient "uncaught error" hook, so the Channel is injected
// explicitly: synchronous work that may panic runs through Guard, background
// work runs through Go, and both end up in Handle. Handle itself never panics;
// a misbehaving sink is logged and skipped.
package failure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Report is what sinks receive for every handled error.
type Report struct {
	RunID string
	Err   error
	At    time.Time
}

// Sink consumes reports. Implementations may fail; the channel logs and
// continues.
type Sink interface {
	Report(r Report) error
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(Report) error

// Report implements Sink.
func (f SinkFunc) Report(r Report) error { return f(r) }

// PanicError wraps a recovered panic value.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Channel forwards errors to its sinks.
type Channel struct {
	logger  *slog.Logger
	runID   string
	now     func() time.Time
	mu      sync.RWMutex
	sinks   []Sink
	handled atomic.Int64
	wg      sync.WaitGroup
}

// New creates a Channel that always logs through logger, plus any extra sinks.
func New(logger *slog.Logger, runID string, sinks ...Sink) *Channel {
	c := &Channel{
		logger: logger,
		runID:  runID,
		now:    time.Now,
	}
	c.sinks = append(c.sinks, NewLogSink(logger))
	c.sinks = append(c.sinks, sinks...)
	return c
}

// AddSink registers another sink for subsequent errors.
func (c *Channel) AddSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
}

// Handle forwards err to every sink. Nil errors are ignored.
func (c *Channel) Handle(err error) {
	if err == nil {
		return
	}
	c.handled.Add(1)

	c.mu.RLock()
	sinks := append([]Sink(nil), c.sinks...)
	c.mu.RUnlock()

	r := Report{RunID: c.runID, Err: err, At: c.now()}
	for i, s := range sinks {
		c.report(i, s, r)
	}
}

func (c *Channel) report(i int, s Sink, r Report) {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Warn("Failure sink panicked, skipping.", "sink", i, "panic", p)
		}
	}()
	if err := s.Report(r); err != nil {
		c.logger.Warn("Failure sink rejected report.", "sink", i, "error", err)
	}
}

// Handled returns how many errors went through Handle.
func (c *Channel) Handled() int64 {
	return c.handled.Load()
}

// Guard runs fn on the calling goroutine and converts a panic into a
// *PanicError. The result is returned to the caller, not handled, so the
// caller decides whether it is fatal.
func (c *Channel) Guard(fn func() error) error {
	return Recover(fn)
}

// Recover runs fn and converts a panic into a *PanicError. It is Guard for
// code that runs before any channel exists.
func Recover(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// Go runs fn on its own goroutine. Its error or panic is handled by the
// channel; nothing propagates to the caller.
func (c *Channel) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.Guard(func() error { return fn(ctx) })
		if err != nil && !errors.Is(err, context.Canceled) {
			c.Handle(fmt.Errorf("%s: %w", name, err))
		}
	}()
}

// Wait blocks until every goroutine started with Go has returned.
func (c *Channel) Wait() {
	c.wg.Wait()
}

// LogSink writes reports to a slog.Logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Report implements Sink.
func (s *LogSink) Report(r Report) error {
	attrs := []any{"run_id", r.RunID, "error", r.Err}
	var pe *PanicError
	if errors.As(r.Err, &pe) {
		attrs = append(attrs, "stack", string(pe.Stack))
	}
	s.logger.Error("Unhandled error.", attrs...)
	return nil
}
