package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/imgboot/internal/ctxlog"
)

// ErrLoad marks every failure produced by Load.
var ErrLoad = errors.New("module load failed")

// LoadError identifies the manifest entry that stopped a load.
type LoadError struct {
	Index int
	ID    string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: unit %q (#%d): %v", ErrLoad, e.ID, e.Index, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrLoad, e.Err} }

// Loader links a manifest into a fresh Linker.
type Loader struct {
	records []Record
	linker  *Linker
}

// New creates a Loader.
func New() *Loader {
	return &Loader{}
}

// Records returns a copy of the load records of the last Load call.
func (ld *Loader) Records() []Record {
	out := make([]Record, len(ld.records))
	copy(out, ld.records)
	return out
}

// Linker returns the linker populated by the last Load call.
func (ld *Loader) Linker() *Linker {
	return ld.linker
}

// Load links every unit of m in order. The next unit is only requested after
// the previous one reached Loaded; the first failure halts the load and
// leaves every later record Pending.
func (ld *Loader) Load(ctx context.Context, m Manifest) (*Linker, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading manifest...", "units", len(m))

	ld.linker = NewLinker()
	ld.records = make([]Record, len(m))
	for i, u := range m {
		ld.records[i] = Record{ID: u.ID(), State: Pending}
	}

	for i, u := range m {
		if err := ctx.Err(); err != nil {
			return nil, ld.fail(i, err)
		}
		logger.Debug("Loading unit.", "unit", u.ID(), "index", i)
		if err := loadUnit(ctx, u, ld.linker); err != nil {
			logger.Error("Unit failed to load.", "unit", u.ID(), "index", i, "error", err)
			return nil, ld.fail(i, err)
		}
		ld.records[i].State = Loaded
	}

	logger.Info("📦 Manifest loaded.", "units", len(m), "symbols", len(ld.linker.Symbols()))
	return ld.linker, nil
}

func (ld *Loader) fail(i int, err error) error {
	ld.records[i].State = Failed
	ld.records[i].Err = err
	return &LoadError{Index: i, ID: ld.records[i].ID, Err: err}
}

// loadUnit converts a panicking unit into a load failure.
func loadUnit(ctx context.Context, u Unit, l *Linker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while loading: %v", r)
		}
	}()
	return u.Load(ctx, l)
}
