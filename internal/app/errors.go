package app

import (
	"errors"
	"fmt"

	"github.com/vk/imgboot/internal/loader"
	"github.com/vk/imgboot/internal/registry"
)

// Bootstrap failure classes. A *PhaseError matches the sentinel of its phase
// with errors.Is. The load and construction classes are the loader's and
// the registry's own sentinels.
var (
	ErrLoad                = loader.ErrLoad
	ErrConfigValidation    = errors.New("configuration validation failed")
	ErrChannelInstall      = errors.New("failure channel installation failed")
	ErrManagerConstruction = registry.ErrConstruction
	ErrContextDispatch     = errors.New("context dispatch failed")

	// ErrRuntime marks failures of work started after the application
	// became ready. They only ever reach the failure channel.
	ErrRuntime = errors.New("runtime failure")

	// ErrAlreadyInitialized is returned by every Initialize call after the first.
	ErrAlreadyInitialized = errors.New("bootstrap already initialized")
)

// PhaseError is the terminal error of a failed bootstrap.
type PhaseError struct {
	Phase Phase
	Err   error
}

// Error prefixes the cause with its phase class unless the cause already
// carries it.
func (e *PhaseError) Error() string {
	if s := phaseSentinel(e.Phase); s != nil && !errors.Is(e.Err, s) {
		return fmt.Sprintf("%v: %v", s, e.Err)
	}
	return e.Err.Error()
}

func (e *PhaseError) Unwrap() []error {
	if s := phaseSentinel(e.Phase); s != nil {
		return []error{s, e.Err}
	}
	return []error{e.Err}
}

func phaseSentinel(p Phase) error {
	switch p {
	case PhaseLoad:
		return ErrLoad
	case PhaseValidate:
		return ErrConfigValidation
	case PhaseErrorChannelInstall:
		return ErrChannelInstall
	case PhaseManagerConstruction:
		return ErrManagerConstruction
	case PhaseContextDispatch:
		return ErrContextDispatch
	default:
		return nil
	}
}
