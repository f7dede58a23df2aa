package loader

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/dop251/goja"
)

// ErrUnresolved is returned when a symbol is not exported by any loaded unit.
var ErrUnresolved = errors.New("unresolved symbol")

// Linker is the symbol table shared by every unit of a run. It also owns the
// JavaScript runtime used by script units; goja runtimes are not safe for
// concurrent use, so every access goes through the linker's lock.
type Linker struct {
	mu      sync.Mutex
	symbols map[string]any
	order   []string
	vm      *goja.Runtime
}

// NewLinker creates an empty linker with a fresh JavaScript runtime.
func NewLinker() *Linker {
	return &Linker{
		symbols: make(map[string]any),
		vm:      goja.New(),
	}
}

// Export publishes a symbol. Names are unique for the run.
func (l *Linker) Export(name string, v any) error {
	if name == "" {
		return errors.New("symbol name must not be empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.symbols[name]; exists {
		return fmt.Errorf("symbol %q already exported", name)
	}
	l.symbols[name] = v
	l.order = append(l.order, name)
	return nil
}

// ExportAll publishes every symbol of exports in name order, or none of them
// when any name is empty or already taken.
func (l *Linker) ExportAll(exports map[string]any) error {
	names := sortedKeys(exports)
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, name := range names {
		if name == "" {
			return errors.New("symbol name must not be empty")
		}
		if _, exists := l.symbols[name]; exists {
			return fmt.Errorf("symbol %q already exported", name)
		}
	}
	for _, name := range names {
		l.symbols[name] = exports[name]
		l.order = append(l.order, name)
	}
	return nil
}

// Lookup returns an exported symbol.
func (l *Linker) Lookup(name string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.symbols[name]
	return v, ok
}

// Symbols returns exported names in export order.
func (l *Linker) Symbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.order)
}

// Resolve looks up a symbol and asserts its type.
func Resolve[T any](l *Linker, name string) (T, error) {
	var zero T
	v, ok := l.Lookup(name)
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrUnresolved, name)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("symbol %q has type %T, want %T", name, v, zero)
	}
	return typed, nil
}

// runScript evaluates source in the shared runtime and reports which of the
// provided names are still undefined afterwards.
func (l *Linker) runScript(name, source string, provides []string) (missing []string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.vm.RunScript(name, source); err != nil {
		return nil, err
	}
	for _, p := range provides {
		v := l.vm.Get(p)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

// Call invokes a global JavaScript function defined by a script unit. Go
// arguments are converted with the runtime's default mapping and the result
// is exported back to a Go value.
func (l *Linker) Call(fn string, args ...any) (any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	callable, ok := goja.AssertFunction(l.vm.Get(fn))
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a function", ErrUnresolved, fn)
	}
	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		jsArgs[i] = l.vm.ToValue(a)
	}
	res, err := callable(goja.Undefined(), jsArgs...)
	if err != nil {
		return nil, err
	}
	return res.Export(), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
