package app

import (
	"embed"
	"io/fs"

	"github.com/vk/imgboot/internal/eventbus"
	"github.com/vk/imgboot/internal/features"
	"github.com/vk/imgboot/internal/loader"
	"github.com/vk/imgboot/internal/managers"
)

//go:embed units/*.js
var embeddedScripts embed.FS

// Scripts returns the script units compiled into the binary.
func Scripts() fs.FS { return embeddedScripts }

// Symbols linked by the core manifest. Manager and entry point constructors
// are resolved through the linker, never referenced directly by the plan.
const (
	SymNewBus         = "eventbus.New"
	SymNewDebug       = "managers.NewDebug"
	SymNewUI          = "managers.NewUI"
	SymNewSurface     = "managers.NewSurface"
	SymNewPool        = "managers.NewPool"
	SymNewPerfMonitor = "managers.NewPerfMonitor"
	SymImaging        = "Imaging"
	SymClassifyImage  = "classifyImage"
	SymNewAnalyzer    = "managers.NewAnalyzer"
	SymDecoder        = "features.Decoder"
	SymNewUploader    = "features.NewUploader"
	SymNewViewer      = "features.NewViewer"
)

// CoreManifest lists the units the application needs before anything else
// runs. The order is the dependency-declaration order: every unit only
// requires symbols exported by units listed before it.
func CoreManifest(scripts loader.Fetcher) loader.Manifest {
	return loader.Manifest{
		&loader.GoUnit{
			Name:    "core/eventbus",
			Exports: map[string]any{SymNewBus: eventbus.New},
		},
		&loader.GoUnit{
			Name:     "core/debug",
			Requires: []string{SymNewBus},
			Exports:  map[string]any{SymNewDebug: managers.NewDebug},
		},
		&loader.GoUnit{
			Name:     "core/ui",
			Requires: []string{SymNewBus},
			Exports:  map[string]any{SymNewUI: managers.NewUI},
		},
		&loader.GoUnit{
			Name:    "render/surface",
			Exports: map[string]any{SymNewSurface: managers.NewSurface},
		},
		&loader.GoUnit{
			Name:     "core/pool",
			Requires: []string{SymNewBus},
			Exports:  map[string]any{SymNewPool: managers.NewPool},
		},
		&loader.GoUnit{
			Name:     "core/perfmon",
			Requires: []string{SymNewBus},
			Exports:  map[string]any{SymNewPerfMonitor: managers.NewPerfMonitor},
		},
		&loader.ScriptUnit{
			Name:     "analysis/imaging",
			Path:     "units/imaging.js",
			Provides: []string{SymImaging},
			Fetcher:  scripts,
		},
		&loader.ScriptUnit{
			Name:     "analysis/classifier",
			Path:     "units/analyzer.js",
			Provides: []string{SymClassifyImage},
			Fetcher:  scripts,
		},
		&loader.GoUnit{
			Name:     "analysis/analyzer",
			Requires: []string{SymClassifyImage},
			Exports:  map[string]any{SymNewAnalyzer: managers.NewAnalyzer},
		},
		&loader.GoUnit{
			Name:    "codec/decoder",
			Exports: map[string]any{SymDecoder: features.HeaderDecoder{}},
		},
		&loader.GoUnit{
			Name:     "features/uploader",
			Requires: []string{SymNewUI, SymNewPool, SymNewAnalyzer, SymDecoder},
			Exports:  map[string]any{SymNewUploader: features.NewUploader},
		},
		&loader.GoUnit{
			Name:     "features/viewer",
			Requires: []string{SymNewUI, SymDecoder},
			Exports:  map[string]any{SymNewViewer: features.NewViewer},
		},
	}
}
