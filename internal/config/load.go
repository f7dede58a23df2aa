package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/imgboot/internal/ctxlog"
	"github.com/vk/imgboot/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Load reads the application configuration from an HCL file, or from every
// .hcl file below a directory, merged into one body. An empty path yields
// the defaults. The process environment is exposed as `env.NAME`.
func Load(ctx context.Context, path string) (*Application, error) {
	logger := ctxlog.FromContext(ctx)
	if path == "" {
		logger.Debug("No configuration file given, using defaults.")
		return Default(), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}
	paths := []string{path}
	if info.IsDir() {
		paths, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to scan configuration directory %s: %w", path, err)
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("no .hcl files found in %s", path)
		}
		logger.Debug("Found configuration files.", "dir", path, "files", len(paths))
	}

	parser := hclparse.NewParser()
	files := make([]*hcl.File, 0, len(paths))
	for _, p := range paths {
		src, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration %s: %w", p, err)
		}
		file, diags := parser.ParseHCL(src, p)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", p, diags)
		}
		files = append(files, file)
	}
	return decode(ctx, path, files, environ())
}

// Parse decodes HCL source into an Application with defaults applied.
func Parse(ctx context.Context, src []byte, filename string, env map[string]string) (*Application, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return decode(ctx, filename, []*hcl.File{file}, env)
}

func decode(ctx context.Context, name string, files []*hcl.File, env map[string]string) (*Application, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Decoding application configuration.", "source", name, "files", len(files))

	var app Application
	diags := gohcl.DecodeBody(hcl.MergeFiles(files), evalContext(env), &app)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", name, diags)
	}
	if err := app.decodeDurations(); err != nil {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", name, err)
	}
	app.applyDefaults()

	logger.Debug("Configuration decoded.", "name", app.Name, "rules", len(app.Rules))
	return &app, nil
}

// evalContext exposes environment variables and a few string helpers to
// configuration expressions.
func evalContext(env map[string]string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
		Functions: map[string]function.Function{
			"lower":    stdlib.LowerFunc,
			"upper":    stdlib.UpperFunc,
			"coalesce": stdlib.CoalesceFunc,
		},
	}
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			env[pair[0]] = pair[1]
		}
	}
	return env
}
