package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/imgboot/internal/config"
	"github.com/vk/imgboot/internal/ctxlog"
	"github.com/vk/imgboot/internal/dispatch"
	"github.com/vk/imgboot/internal/failure"
	"github.com/vk/imgboot/internal/loader"
	"github.com/vk/imgboot/internal/managers"
	"github.com/vk/imgboot/internal/registry"
)

// FallbackHeading is the heading of the terminal error notice.
const FallbackHeading = "Application failed to start"

// Run holds everything one bootstrap run owns. It is created when
// Initialize starts and passed to every stage; nothing else keeps it.
type Run struct {
	ID       string
	Linker   *loader.Linker
	Config   *config.Application
	Channel  *failure.Channel
	Registry *registry.Registry
	Context  dispatch.Context
}

// ConfigSource produces the decoded, not yet validated, configuration.
type ConfigSource func(ctx context.Context) (*config.Application, error)

// StaticConfig is a ConfigSource returning cfg.
func StaticConfig(cfg *config.Application) ConfigSource {
	return func(context.Context) (*config.Application, error) { return cfg, nil }
}

// FileConfig is a ConfigSource reading an HCL file. An empty path yields
// the defaults.
func FileConfig(path string) ConfigSource {
	return func(ctx context.Context) (*config.Application, error) { return config.Load(ctx, path) }
}

// Options wires a Bootstrapper. Manifest, Anchors and Page are required in
// production; the rest have defaults.
type Options struct {
	Manifest  loader.Manifest
	Config    ConfigSource
	Validator *config.Validator
	Anchors   dispatch.AnchorProvider
	Page      dispatch.Page
	Sinks     []failure.Sink
	Clock     managers.Clock

	// Managers and EntryPoints default to ManagerPlan and EntryPointsFor.
	Managers    func(run *Run) []registry.Step
	EntryPoints func(run *Run) dispatch.EntryPoints

	// NewChannel defaults to failure.New.
	NewChannel func(logger *slog.Logger, runID string, sinks ...failure.Sink) *failure.Channel

	// OnTransition is called after every state change.
	OnTransition func(from, to State)
}

// Bootstrapper drives one application start.
type Bootstrapper struct {
	logger *slog.Logger
	opts   Options
	loader *loader.Loader

	mu          sync.Mutex
	state       State
	initialized bool
	run         *Run
	outcome     Outcome
	stop        context.CancelFunc
}

// NewBootstrapper creates a Bootstrapper in the Idle state.
func NewBootstrapper(logger *slog.Logger, opts Options) *Bootstrapper {
	if opts.Config == nil {
		opts.Config = StaticConfig(config.Default())
	}
	if opts.Validator == nil {
		opts.Validator = config.NewValidator()
	}
	if opts.Clock == nil {
		opts.Clock = managers.SystemClock
	}
	if opts.Managers == nil {
		clock := opts.Clock
		opts.Managers = func(run *Run) []registry.Step { return ManagerPlan(run, clock) }
	}
	if opts.EntryPoints == nil {
		opts.EntryPoints = EntryPointsFor
	}
	if opts.NewChannel == nil {
		opts.NewChannel = failure.New
	}
	return &Bootstrapper{logger: logger, opts: opts, loader: loader.New()}
}

// State returns the current state.
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Outcome returns the outcome of Initialize, or the zero Outcome before it
// finished.
func (b *Bootstrapper) Outcome() Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outcome
}

// Run returns the run state, or nil before Initialize.
func (b *Bootstrapper) Run() *Run {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run
}

// Records returns the module load records.
func (b *Bootstrapper) Records() []loader.Record {
	return b.loader.Records()
}

// Close stops the maintenance loops and blocks until every task started
// after Ready has returned. Feature work is not cancelled, only awaited.
func (b *Bootstrapper) Close() {
	b.mu.Lock()
	stop, run := b.stop, b.run
	b.mu.Unlock()
	if stop != nil {
		stop()
	}
	if run != nil && run.Channel != nil {
		run.Channel.Wait()
	}
}

// Initialize runs the bootstrap sequence once. Each stage runs only after the
// previous one succeeded; the first failure is routed through the failure
// channel when installed, replaces the page content with the fallback
// notice and ends the run.
func (b *Bootstrapper) Initialize(ctx context.Context) Outcome {
	b.mu.Lock()
	if b.initialized {
		b.mu.Unlock()
		return Outcome{Err: ErrAlreadyInitialized}
	}
	b.initialized = true
	run := &Run{ID: uuid.NewString()}
	b.run = run
	b.mu.Unlock()

	logger := b.logger.With("run_id", run.ID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("🚀 Bootstrapping application...")

	b.transition(ctx, LoadingModules)
	linker, err := b.loader.Load(ctx, b.opts.Manifest)
	if err != nil {
		return b.fail(ctx, run, PhaseLoad, err)
	}
	run.Linker = linker

	b.transition(ctx, ValidatingConfig)
	// No channel exists yet, so panics are recovered locally.
	err = failure.Recover(func() error {
		cfg, err := b.opts.Config(ctx)
		if err != nil {
			return err
		}
		if err := b.opts.Validator.Validate(cfg); err != nil {
			return err
		}
		run.Config = cfg
		return nil
	})
	if err != nil {
		return b.fail(ctx, run, PhaseValidate, err)
	}
	logger.Debug("Configuration validated.", "name", run.Config.Name)

	b.transition(ctx, InstallingFailureChannel)
	err = failure.Recover(func() error {
		run.Channel = b.opts.NewChannel(logger, run.ID, b.opts.Sinks...)
		if run.Channel == nil {
			return errors.New("no failure channel was created")
		}
		return nil
	})
	if err != nil {
		run.Channel = nil
		return b.fail(ctx, run, PhaseErrorChannelInstall, err)
	}
	logger.Debug("Failure channel installed.", "sinks", len(b.opts.Sinks)+1)

	b.transition(ctx, ConstructingManagers)
	run.Registry = registry.New()
	err = run.Channel.Guard(func() error {
		return run.Registry.Construct(ctx, b.opts.Managers(run), run.Channel.Guard)
	})
	if err != nil {
		return b.fail(ctx, run, PhaseManagerConstruction, err)
	}
	logger.Info("🧩 Managers constructed.", "managers", run.Registry.Names())

	b.transition(ctx, DispatchingContext)
	err = run.Channel.Guard(func() error {
		run.Context = dispatch.Detect(b.opts.Anchors)
		logger.Debug("Page context detected.", "context", run.Context)
		d := dispatch.NewDispatcher(b.opts.EntryPoints(run), run.Channel)
		return d.Dispatch(ctx, run.Context, run.Config, run.Registry)
	})
	if err != nil {
		return b.fail(ctx, run, PhaseContextDispatch, err)
	}

	b.measureBoot(ctx, run)
	outcome := Outcome{Context: run.Context}
	b.finish(ctx, Ready, outcome)
	logger.Info("✅ Application ready.", "context", run.Context)

	mctx, stop := context.WithCancel(ctx)
	b.mu.Lock()
	b.stop = stop
	b.mu.Unlock()
	b.maintain(mctx, run)
	return outcome
}

// fail ends the run. The error goes to the failure channel exactly once,
// or to the log when the channel is not installed yet.
func (b *Bootstrapper) fail(ctx context.Context, run *Run, phase Phase, err error) Outcome {
	logger := ctxlog.FromContext(ctx)
	perr := &PhaseError{Phase: phase, Err: err}
	outcome := Outcome{Context: run.Context, Phase: phase, Err: perr}
	b.finish(ctx, Failed, outcome)

	if run.Channel != nil {
		run.Channel.Handle(perr)
	} else {
		logger.Error("Bootstrap failed.", "phase", phase, "error", err)
	}

	if b.opts.Page == nil {
		logger.Warn("No page to show the failure notice on.")
		return outcome
	}
	if err := b.opts.Page.ReplaceContent(FallbackHeading, perr.Error()); err != nil {
		logger.Error("Failed to show the failure notice.", "error", err)
	}
	return outcome
}

func (b *Bootstrapper) finish(ctx context.Context, to State, outcome Outcome) {
	b.mu.Lock()
	b.outcome = outcome
	b.mu.Unlock()
	b.transition(ctx, to)
}

func (b *Bootstrapper) transition(ctx context.Context, to State) {
	b.mu.Lock()
	from := b.state
	b.state = to
	b.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Bootstrap state changed.", "from", from, "to", to)
	if b.opts.OnTransition != nil {
		b.opts.OnTransition(from, to)
	}
}

func (b *Bootstrapper) measureBoot(ctx context.Context, run *Run) {
	m, err := registry.Lookup[*managers.PerfMonitor](run.Registry, ManagerPerfMon)
	if err != nil {
		return
	}
	if sample, err := m.Measure(bootMark); err == nil {
		ctxlog.FromContext(ctx).Debug("Bootstrap measured.", "duration", sample.Duration)
	}
}
