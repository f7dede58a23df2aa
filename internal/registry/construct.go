package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/imgboot/internal/ctxlog"
)

// ErrConstruction marks every failure produced by Construct.
var ErrConstruction = errors.New("manager construction failed")

// Step builds one manager. Build may read managers registered by earlier steps.
type Step struct {
	Name  string
	Build func(ctx context.Context, r *Registry) (any, error)
}

// Initializer is implemented by managers that need an explicit start-up
// step after construction.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Guard runs fn, converting panics into errors.
type Guard func(fn func() error) error

// ConstructionError identifies the step that failed.
type ConstructionError struct {
	Step  string
	Phase string // "construct" or "initialize"
	Err   error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v", ErrConstruction, e.Phase, e.Step, e.Err)
}

func (e *ConstructionError) Unwrap() []error { return []error{ErrConstruction, e.Err} }

// Construct runs steps in order, registering each result. The first failing
// step stops construction; managers built before it stay registered.
func (r *Registry) Construct(ctx context.Context, steps []Step, guard Guard) error {
	logger := ctxlog.FromContext(ctx)
	if guard == nil {
		guard = func(fn func() error) error { return fn() }
	}

	for _, step := range steps {
		logger.Debug("Constructing manager.", "manager", step.Name)

		var instance any
		err := guard(func() error {
			var err error
			instance, err = step.Build(ctx, r)
			return err
		})
		if err != nil {
			return &ConstructionError{Step: step.Name, Phase: "construct", Err: err}
		}
		if instance == nil {
			return &ConstructionError{Step: step.Name, Phase: "construct", Err: errors.New("constructor returned nil")}
		}

		if init, ok := instance.(Initializer); ok {
			logger.Debug("Initializing manager.", "manager", step.Name)
			if err := guard(func() error { return init.Initialize(ctx) }); err != nil {
				return &ConstructionError{Step: step.Name, Phase: "initialize", Err: err}
			}
		}

		if err := r.Add(step.Name, instance); err != nil {
			return &ConstructionError{Step: step.Name, Phase: "construct", Err: err}
		}
	}

	logger.Debug("All managers constructed.", "count", len(steps))
	return nil
}
