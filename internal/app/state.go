package app

import (
	"fmt"

	"github.com/vk/imgboot/internal/dispatch"
)

// State is a step of the bootstrap state machine.
type State int

const (
	Idle State = iota
	LoadingModules
	ValidatingConfig
	InstallingFailureChannel
	ConstructingManagers
	DispatchingContext
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingModules:
		return "loading_modules"
	case ValidatingConfig:
		return "validating_config"
	case InstallingFailureChannel:
		return "installing_failure_channel"
	case ConstructingManagers:
		return "constructing_managers"
	case DispatchingContext:
		return "dispatching_context"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool { return s == Ready || s == Failed }

// Phase names the stage a bootstrap failed in.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseLoad
	PhaseValidate
	PhaseErrorChannelInstall
	PhaseManagerConstruction
	PhaseContextDispatch
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseLoad:
		return "load"
	case PhaseValidate:
		return "validate"
	case PhaseErrorChannelInstall:
		return "error_channel_install"
	case PhaseManagerConstruction:
		return "manager_construction"
	case PhaseContextDispatch:
		return "context_dispatch"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Outcome is the result of Initialize: Ready with the detected context, or
// Failed with the phase and cause.
type Outcome struct {
	Context dispatch.Context
	Phase   Phase
	Err     error
}

// Ready reports whether the bootstrap completed.
func (o Outcome) Ready() bool { return o.Err == nil }

func (o Outcome) String() string {
	if o.Ready() {
		return fmt.Sprintf("ready(%s)", o.Context)
	}
	return fmt.Sprintf("failed(%s): %v", o.Phase, o.Err)
}
