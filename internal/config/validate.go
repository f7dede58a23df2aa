package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
)

// ErrInvalid marks every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ValidationError lists every problem found in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s:\n- %s", ErrInvalid, strings.Join(e.Problems, "\n- "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

var (
	debugLevels    = []string{"debug", "info", "warn", "error"}
	encoderFormats = []string{"webp", "jpeg", "png", "avif"}
	renderBackends = []string{"webgl2", "webgl", "canvas2d"}
)

// Validator checks an Application before any manager sees it. Rules are
// evaluated in addition to the rules carried by the configuration itself.
type Validator struct {
	Rules []*Rule
}

// NewValidator creates a Validator with extra rules.
func NewValidator(rules ...*Rule) *Validator {
	return &Validator{Rules: rules}
}

// Validate returns a *ValidationError when cfg is unusable. It never modifies cfg.
func (v *Validator) Validate(cfg *Application) error {
	if cfg == nil {
		return &ValidationError{Problems: []string{"configuration is missing"}}
	}

	problems := structuralProblems(cfg)
	// Rules dereference every block, so they only run on a structurally sound config.
	if len(problems) == 0 {
		env := cfg.Env()
		for _, r := range append(slices.Clone(v.Rules), cfg.Rules...) {
			if p := evalRule(r, env); p != "" {
				problems = append(problems, p)
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func structuralProblems(cfg *Application) []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(cfg.Name) == "" {
		add("name must not be empty")
	}

	if cfg.Debug == nil {
		add("debug block is missing")
	} else if !slices.Contains(debugLevels, cfg.Debug.Level) {
		add("debug.level %q must be one of %s", cfg.Debug.Level, strings.Join(debugLevels, ", "))
	}

	if cfg.Encoder == nil {
		add("encoder block is missing")
	} else {
		if cfg.Encoder.Quality < 1 || cfg.Encoder.Quality > 100 {
			add("encoder.quality must be between 1 and 100, got %d", cfg.Encoder.Quality)
		}
		if !slices.Contains(encoderFormats, cfg.Encoder.Format) {
			add("encoder.format %q must be one of %s", cfg.Encoder.Format, strings.Join(encoderFormats, ", "))
		}
		if cfg.Encoder.MaxDimension <= 0 {
			add("encoder.max_dimension must be > 0")
		}
	}

	if cfg.Analyzer == nil {
		add("analyzer block is missing")
	} else {
		if cfg.Analyzer.EdgeThreshold < 0 || cfg.Analyzer.EdgeThreshold > 1 {
			add("analyzer.edge_threshold must be within [0, 1], got %g", cfg.Analyzer.EdgeThreshold)
		}
		if cfg.Analyzer.EntropyThreshold < 0 {
			add("analyzer.entropy_threshold must be >= 0")
		}
	}

	if cfg.Rendering == nil {
		add("rendering block is missing")
	} else if !slices.Contains(renderBackends, cfg.Rendering.Backend) {
		add("rendering.backend %q must be one of %s", cfg.Rendering.Backend, strings.Join(renderBackends, ", "))
	}

	if cfg.Performance == nil {
		add("performance block is missing")
	} else {
		if cfg.Performance.SampleInterval <= 0 {
			add("performance.sample_interval must be a positive duration, got %s", cfg.Performance.SampleInterval)
		}
		if cfg.Performance.HistorySize <= 0 {
			add("performance.history_size must be > 0")
		}
	}

	if cfg.Pool == nil {
		add("pool block is missing")
	} else {
		if cfg.Pool.MaxBuffers <= 0 {
			add("pool.max_buffers must be > 0")
		}
		if cfg.Pool.IdleTTL <= 0 {
			add("pool.idle_ttl must be a positive duration, got %s", cfg.Pool.IdleTTL)
		}
	}

	if cfg.Viewer == nil {
		add("viewer block is missing")
	}

	return problems
}

// evalRule returns a problem description, or "" when the rule holds.
func evalRule(r *Rule, env map[string]any) string {
	program, err := expr.Compile(r.Expr, expr.Env(env), expr.AsBool())
	if err != nil {
		return fmt.Sprintf("rule %q does not compile: %v", r.Name, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return fmt.Sprintf("rule %q failed: %v", r.Name, err)
	}
	if ok, _ := out.(bool); ok {
		return ""
	}
	if r.Message != "" {
		return fmt.Sprintf("rule %q: %s", r.Name, r.Message)
	}
	return fmt.Sprintf("rule %q not satisfied: %s", r.Name, r.Expr)
}
