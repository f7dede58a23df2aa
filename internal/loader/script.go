package loader

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
)

// Fetcher is the transport script units are read through.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// FSFetcher reads script sources from a file system, typically an embed.FS
// baked into the binary or an os.DirFS for development overrides.
type FSFetcher struct {
	FS fs.FS
}

// Fetch implements Fetcher.
func (f FSFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(f.FS, path)
}

// ScriptSymbol is the value exported for every name a script unit provides.
// It is a handle into the linker's JavaScript runtime; call it with
// Linker.Call.
type ScriptSymbol string

// ScriptUnit evaluates a JavaScript source in the linker's shared runtime.
type ScriptUnit struct {
	Name     string
	Path     string
	Provides []string
	Fetcher  Fetcher
}

// ID implements Unit.
func (u *ScriptUnit) ID() string { return u.Name }

// Load implements Unit.
func (u *ScriptUnit) Load(ctx context.Context, l *Linker) error {
	if u.Fetcher == nil {
		return fmt.Errorf("script %s: no fetcher configured", u.Path)
	}
	src, err := u.Fetcher.Fetch(ctx, u.Path)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", u.Path, err)
	}
	missing, err := l.runScript(u.Path, string(src), u.Provides)
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", u.Path, err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("script %s did not define %s", u.Path, strings.Join(missing, ", "))
	}
	exports := make(map[string]any, len(u.Provides))
	for _, name := range u.Provides {
		exports[name] = ScriptSymbol(name)
	}
	return l.ExportAll(exports)
}
