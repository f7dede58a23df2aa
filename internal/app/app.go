package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/vk/imgboot/internal/ctxlog"
	"github.com/vk/imgboot/internal/dispatch"
	"github.com/vk/imgboot/internal/failure"
	"github.com/vk/imgboot/internal/loader"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	ctx        context.Context
	config     *Config
	scripts    fs.FS
	page       *dispatch.Document
	boot       *Bootstrapper
	reporter   *failure.SocketIOSink
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It reads the hosted
// page and prepares the Bootstrapper; nothing starts until Run.
func NewApp(outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	page, err := dispatch.OpenDocument(cfg.PagePath)
	if err != nil {
		return nil, err
	}

	scripts := Scripts()
	if cfg.ScriptsPath != "" {
		logger.Debug("Using script units from disk.", "path", cfg.ScriptsPath)
		scripts = os.DirFS(cfg.ScriptsPath)
	}

	a := &App{
		outW:    outW,
		logger:  logger,
		ctx:     ctx,
		config:  cfg,
		scripts: scripts,
		page:    page,
	}

	var sinks []failure.Sink
	if cfg.ReportURL != "" {
		sink, err := failure.NewSocketIOSink(logger, failure.SocketIOOptions{URL: cfg.ReportURL, Namespace: "/"})
		if err != nil {
			return nil, err
		}
		a.reporter = sink
		sinks = append(sinks, sink)
	}

	a.boot = NewBootstrapper(logger, Options{
		Manifest: CoreManifest(loader.FSFetcher{FS: scripts}),
		Config:   FileConfig(cfg.ConfigPath),
		Anchors:  page,
		Page:     page,
		Sinks:    sinks,
	})
	return a, nil
}

// Bootstrapper returns the application's bootstrapper. This is primarily for testing.
func (a *App) Bootstrapper() *Bootstrapper {
	return a.boot
}

// Page returns the hosted page.
func (a *App) Page() *dispatch.Document {
	return a.page
}

// Run boots the application, waits for the work it started and writes the
// resulting page. With the health check enabled a ready application keeps
// serving, maintenance loops included, until ctx is done. A failed bootstrap
// is returned as an error after the fallback page was written.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer()
	if a.reporter != nil {
		defer a.reporter.Close()
	}

	outcome := a.boot.Initialize(ctx)
	if outcome.Ready() && a.config.HealthcheckPort > 0 {
		a.logger.Info("Serving until interrupted.", "port", a.config.HealthcheckPort)
		<-ctx.Done()
	}
	a.boot.Close()

	if err := a.writePage(); err != nil {
		return err
	}
	if !outcome.Ready() {
		return outcome.Err
	}

	a.logger.Info("🏁 Run finished.", "context", outcome.Context)
	return nil
}

func (a *App) writePage() error {
	if a.config.OutPath == "" {
		return nil
	}
	f, err := os.Create(a.config.OutPath)
	if err != nil {
		return fmt.Errorf("failed to create page output %s: %w", a.config.OutPath, err)
	}
	defer f.Close()
	if err := a.page.Render(f); err != nil {
		return fmt.Errorf("failed to write page output %s: %w", a.config.OutPath, err)
	}
	a.logger.Debug("Page written.", "path", a.config.OutPath)
	return nil
}
