package loader

import (
	"context"
	"fmt"
)

// Unit is a single entry of a Manifest.
type Unit interface {
	// ID identifies the unit in load records and errors.
	ID() string
	// Load links the unit, exporting its symbols into the linker. Symbols
	// exported by earlier units are already resolvable.
	Load(ctx context.Context, l *Linker) error
}

// Manifest is the ordered list of units for a run. Order is the dependency
// declaration order and must not be changed at runtime.
type Manifest []Unit

// IDs returns the unit identifiers in manifest order.
func (m Manifest) IDs() []string {
	ids := make([]string, len(m))
	for i, u := range m {
		ids[i] = u.ID()
	}
	return ids
}

// State is the load state of a single manifest entry.
type State int

const (
	Pending State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Record tracks one manifest entry through a load.
type Record struct {
	ID    string
	State State
	Err   error
}

// GoUnit is a unit compiled into the binary. Its exports are published in
// name order once every symbol it requires is resolvable, all at once or not
// at all.
type GoUnit struct {
	Name     string
	Requires []string
	Exports  map[string]any
}

// ID implements Unit.
func (u *GoUnit) ID() string { return u.Name }

// Load implements Unit.
func (u *GoUnit) Load(ctx context.Context, l *Linker) error {
	for _, name := range u.Requires {
		if _, ok := l.Lookup(name); !ok {
			return fmt.Errorf("unresolved symbol %q", name)
		}
	}
	return l.ExportAll(u.Exports)
}

// UnitFunc adapts a plain function into a Unit.
type UnitFunc struct {
	Name string
	Fn   func(ctx context.Context, l *Linker) error
}

// ID implements Unit.
func (u UnitFunc) ID() string { return u.Name }

// Load implements Unit.
func (u UnitFunc) Load(ctx context.Context, l *Linker) error { return u.Fn(ctx, l) }
