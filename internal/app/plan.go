package app

import (
	"context"
	"fmt"

	"github.com/vk/imgboot/internal/config"
	"github.com/vk/imgboot/internal/dispatch"
	"github.com/vk/imgboot/internal/eventbus"
	"github.com/vk/imgboot/internal/features"
	"github.com/vk/imgboot/internal/loader"
	"github.com/vk/imgboot/internal/managers"
	"github.com/vk/imgboot/internal/registry"
)

// Registry names of the managers, in construction order.
const (
	ManagerEventBus = "eventbus"
	ManagerDebug    = "debug"
	ManagerUI       = "ui"
	ManagerSurface  = "surface"
	ManagerPool     = "pool"
	ManagerPerfMon  = "perfmon"
	ManagerAnalyzer = "analyzer"
)

// bootMark is the perfmon mark spanning manager construction to Ready.
const bootMark = "bootstrap"

// ManagerPlan returns the construction steps for run. Each step reads only
// run and managers built by earlier steps.
func ManagerPlan(run *Run, clock managers.Clock) []registry.Step {
	return []registry.Step{
		{Name: ManagerEventBus, Build: func(ctx context.Context, r *registry.Registry) (any, error) {
			newBus, err := loader.Resolve[func() *eventbus.Bus](run.Linker, SymNewBus)
			if err != nil {
				return nil, err
			}
			bus := newBus()
			bus.OnError(run.Channel.Handle)
			return bus, nil
		}},
		{Name: ManagerDebug, Build: func(ctx context.Context, r *registry.Registry) (any, error) {
			newDebug, err := loader.Resolve[func(*eventbus.Bus, config.Debug) (*managers.Debug, error)](run.Linker, SymNewDebug)
			if err != nil {
				return nil, err
			}
			bus, err := registry.Lookup[*eventbus.Bus](r, ManagerEventBus)
			if err != nil {
				return nil, err
			}
			return newDebug(bus, *run.Config.Debug)
		}},
		{Name: ManagerUI, Build: func(ctx context.Context, r *registry.Registry) (any, error) {
			newUI, err := loader.Resolve[func(*eventbus.Bus) *managers.UI](run.Linker, SymNewUI)
			if err != nil {
				return nil, err
			}
			bus, err := registry.Lookup[*eventbus.Bus](r, ManagerEventBus)
			if err != nil {
				return nil, err
			}
			return newUI(bus), nil
		}},
		{Name: ManagerSurface, Build: func(ctx context.Context, r *registry.Registry) (any, error) {
			newSurface, err := loader.Resolve[func(...string) *managers.Surface](run.Linker, SymNewSurface)
			if err != nil {
				return nil, err
			}
			s := newSurface(surfaceBackends(run.Config.Rendering.Backend)...)
			return s.WithAntialias(run.Config.Rendering.Antialias), nil
		}},
		{Name: ManagerPool, Build: func(ctx context.Context, r *registry.Registry) (any, error) {
			newPool, err := loader.Resolve[func(*eventbus.Bus, managers.Clock, int) *managers.Pool](run.Linker, SymNewPool)
			if err != nil {
				return nil, err
			}
			bus, err := registry.Lookup[*eventbus.Bus](r, ManagerEventBus)
			if err != nil {
				return nil, err
			}
			return newPool(bus, clock, run.Config.Pool.MaxBuffers), nil
		}},
		{Name: ManagerPerfMon, Build: func(ctx context.Context, r *registry.Registry) (any, error) {
			newPerfMonitor, err := loader.Resolve[func(*eventbus.Bus, managers.Clock, int) *managers.PerfMonitor](run.Linker, SymNewPerfMonitor)
			if err != nil {
				return nil, err
			}
			bus, err := registry.Lookup[*eventbus.Bus](r, ManagerEventBus)
			if err != nil {
				return nil, err
			}
			m := newPerfMonitor(bus, clock, run.Config.Performance.HistorySize)
			m.Mark(bootMark)
			return m, nil
		}},
		{Name: ManagerAnalyzer, Build: func(ctx context.Context, r *registry.Registry) (any, error) {
			newAnalyzer, err := loader.Resolve[func(*config.Application, managers.Classifier) (*managers.Analyzer, error)](run.Linker, SymNewAnalyzer)
			if err != nil {
				return nil, err
			}
			classify, err := scriptClassifier(run.Linker)
			if err != nil {
				return nil, err
			}
			return newAnalyzer(run.Config, classify)
		}},
	}
}

// surfaceBackends puts the configured backend first, keeping the others as
// fallbacks.
func surfaceBackends(preferred string) []string {
	out := []string{preferred}
	for _, b := range []string{"webgl2", "webgl", "canvas2d"} {
		if b != preferred {
			out = append(out, b)
		}
	}
	return out
}

// scriptClassifier adapts the classifyImage script function into a
// managers.Classifier.
func scriptClassifier(l *loader.Linker) (managers.Classifier, error) {
	if _, err := loader.Resolve[loader.ScriptSymbol](l, SymClassifyImage); err != nil {
		return nil, err
	}
	return func(stats map[string]any) (string, error) {
		out, err := l.Call(SymClassifyImage, stats)
		if err != nil {
			return "", err
		}
		class, ok := out.(string)
		if !ok {
			return "", fmt.Errorf("%s returned %T, want string", SymClassifyImage, out)
		}
		return class, nil
	}, nil
}

// EntryPointsFor returns the feature entry points of run, built from the
// constructors its linker resolved.
func EntryPointsFor(run *Run) dispatch.EntryPoints {
	return dispatch.EntryPoints{
		Uploader: func(ctx context.Context, cfg *config.Application, reg *registry.Registry) (any, error) {
			newUploader, err := loader.Resolve[func(*config.Application, *managers.UI, features.Decoder, features.Classifier, features.Buffers) (*features.Uploader, error)](run.Linker, SymNewUploader)
			if err != nil {
				return nil, err
			}
			decoder, err := loader.Resolve[features.Decoder](run.Linker, SymDecoder)
			if err != nil {
				return nil, err
			}
			ui, err := registry.Lookup[*managers.UI](reg, ManagerUI)
			if err != nil {
				return nil, err
			}
			analyzer, err := registry.Lookup[*managers.Analyzer](reg, ManagerAnalyzer)
			if err != nil {
				return nil, err
			}
			pool, err := registry.Lookup[*managers.Pool](reg, ManagerPool)
			if err != nil {
				return nil, err
			}
			u, err := newUploader(cfg, ui, decoder, analyzer, pool)
			if err != nil {
				return nil, err
			}
			return u, nil
		},
		Viewer: func(ctx context.Context, cfg *config.Application, reg *registry.Registry) (dispatch.Starter, error) {
			newViewer, err := loader.Resolve[func(*config.Application, *managers.UI, features.Decoder) (*features.Viewer, error)](run.Linker, SymNewViewer)
			if err != nil {
				return nil, err
			}
			decoder, err := loader.Resolve[features.Decoder](run.Linker, SymDecoder)
			if err != nil {
				return nil, err
			}
			ui, err := registry.Lookup[*managers.UI](reg, ManagerUI)
			if err != nil {
				return nil, err
			}
			v, err := newViewer(cfg, ui, decoder)
			if err != nil {
				return nil, err
			}
			return runtimeViewer{Viewer: v}, nil
		},
	}
}

// runtimeViewer marks the viewer's background failures as runtime failures.
type runtimeViewer struct {
	*features.Viewer
}

func (v runtimeViewer) Start(ctx context.Context) error {
	if err := v.Viewer.Start(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return nil
}
