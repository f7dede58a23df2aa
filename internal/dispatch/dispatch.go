package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/imgboot/internal/config"
	"github.com/vk/imgboot/internal/ctxlog"
	"github.com/vk/imgboot/internal/failure"
	"github.com/vk/imgboot/internal/registry"
)

// Registry names of the feature entry points.
const (
	UploaderName = "uploader"
	ViewerName   = "viewer"
)

// Starter is an entry point that needs an explicit trigger after construction.
type Starter interface {
	Start(ctx context.Context) error
}

// EntryPoints construct the feature for each context.
type EntryPoints struct {
	Uploader func(ctx context.Context, cfg *config.Application, reg *registry.Registry) (any, error)
	Viewer   func(ctx context.Context, cfg *config.Application, reg *registry.Registry) (Starter, error)
}

// Dispatcher starts the entry point matching a detected Context.
type Dispatcher struct {
	entries EntryPoints
	channel *failure.Channel
}

// NewDispatcher creates a Dispatcher. Background work it starts reports to ch.
func NewDispatcher(entries EntryPoints, ch *failure.Channel) *Dispatcher {
	return &Dispatcher{entries: entries, channel: ch}
}

// Dispatch constructs exactly one entry point for c, or none for Unknown.
// The constructed entry point is registered under its name. A viewer is
// triggered right after construction; its work runs in the background and
// its failures go to the failure channel.
func (d *Dispatcher) Dispatch(ctx context.Context, c Context, cfg *config.Application, reg *registry.Registry) error {
	ctx = ctxlog.With(ctx, "context", c)
	logger := ctxlog.FromContext(ctx)

	switch c {
	case Uploader:
		if d.entries.Uploader == nil {
			return errors.New("no uploader entry point configured")
		}
		var u any
		err := d.channel.Guard(func() error {
			var err error
			u, err = d.entries.Uploader(ctx, cfg, reg)
			return err
		})
		if err != nil {
			return fmt.Errorf("uploader: %w", err)
		}
		if err := reg.Add(UploaderName, u); err != nil {
			return err
		}
		logger.Info("⬆️  Uploader started.")
		return nil

	case Viewer:
		if d.entries.Viewer == nil {
			return errors.New("no viewer entry point configured")
		}
		var v Starter
		err := d.channel.Guard(func() error {
			var err error
			v, err = d.entries.Viewer(ctx, cfg, reg)
			return err
		})
		if err != nil {
			return fmt.Errorf("viewer: %w", err)
		}
		if v == nil {
			return errors.New("viewer entry point returned nil")
		}
		if err := reg.Add(ViewerName, v); err != nil {
			return err
		}
		d.channel.Go(ctx, ViewerName, v.Start)
		logger.Info("🖼️  Viewer started.")
		return nil

	default:
		logger.Warn("No uploader or viewer anchor found on the page, nothing to start.",
			"uploader_anchor", UploaderAnchor, "viewer_anchor", ViewerAnchor)
		return nil
	}
}
