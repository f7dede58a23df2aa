package config

import (
	"time"

	"github.com/zclconf/go-cty/cty"
)

// Application is the unified application configuration.
type Application struct {
	Name        string       `hcl:"name,optional"`
	Debug       *Debug       `hcl:"debug,block"`
	Encoder     *Encoder     `hcl:"encoder,block"`
	Analyzer    *Analyzer    `hcl:"analyzer,block"`
	Rendering   *Rendering   `hcl:"rendering,block"`
	Performance *Performance `hcl:"performance,block"`
	Pool        *Pool        `hcl:"pool,block"`
	Viewer      *Viewer      `hcl:"viewer,block"`
	Rules       []*Rule      `hcl:"rule,block"`
}

// Debug configures the debug manager.
type Debug struct {
	Enabled bool   `hcl:"enabled,optional"`
	Level   string `hcl:"level,optional"`
	Overlay bool   `hcl:"overlay,optional"`
}

// Encoder holds the codec settings the uploader passes to the compression engine.
type Encoder struct {
	Quality      int    `hcl:"quality,optional"`
	Format       string `hcl:"format,optional"`
	MaxDimension int    `hcl:"max_dimension,optional"`
}

// Analyzer configures image analysis.
type Analyzer struct {
	EdgeThreshold    float64 `hcl:"edge_threshold,optional"`
	EntropyThreshold float64 `hcl:"entropy_threshold,optional"`
}

// Rendering configures the rendering surface.
type Rendering struct {
	Backend   string `hcl:"backend,optional"`
	Antialias bool   `hcl:"antialias,optional"`
}

// Performance configures the performance monitor.
type Performance struct {
	HistorySize int `hcl:"history_size,optional"`

	// SampleInterval is decoded from RawSampleInterval, the sample_interval
	// attribute as written: a duration string or a number of seconds.
	SampleInterval    time.Duration
	RawSampleInterval cty.Value `hcl:"sample_interval,optional"`
}

// Pool configures the resource pool.
type Pool struct {
	MaxBuffers int `hcl:"max_buffers,optional"`

	// IdleTTL is decoded from RawIdleTTL like Performance.SampleInterval.
	IdleTTL    time.Duration
	RawIdleTTL cty.Value `hcl:"idle_ttl,optional"`
}

// Viewer configures the viewer entry point.
type Viewer struct {
	Source string `hcl:"source,optional"`
}

// Rule is an extra validation rule written in the expr language and
// evaluated against Env.
type Rule struct {
	Name    string `hcl:"name,label"`
	Expr    string `hcl:"expr"`
	Message string `hcl:"message,optional"`
}

// Default returns the configuration used when a block is omitted.
func Default() *Application {
	app := &Application{Name: "imgboot"}
	app.applyDefaults()
	return app
}

func (a *Application) applyDefaults() {
	if a.Name == "" {
		a.Name = "imgboot"
	}
	if a.Debug == nil {
		a.Debug = &Debug{}
	}
	if a.Debug.Level == "" {
		a.Debug.Level = "info"
	}
	if a.Encoder == nil {
		a.Encoder = &Encoder{}
	}
	if a.Encoder.Quality == 0 {
		a.Encoder.Quality = 85
	}
	if a.Encoder.Format == "" {
		a.Encoder.Format = "webp"
	}
	if a.Encoder.MaxDimension == 0 {
		a.Encoder.MaxDimension = 4096
	}
	if a.Analyzer == nil {
		a.Analyzer = &Analyzer{EdgeThreshold: 0.2, EntropyThreshold: 5.5}
	}
	if a.Rendering == nil {
		a.Rendering = &Rendering{}
	}
	if a.Rendering.Backend == "" {
		a.Rendering.Backend = "webgl2"
	}
	if a.Performance == nil {
		a.Performance = &Performance{}
	}
	if a.Performance.SampleInterval == 0 {
		a.Performance.SampleInterval = time.Second
	}
	if a.Performance.HistorySize == 0 {
		a.Performance.HistorySize = 60
	}
	if a.Pool == nil {
		a.Pool = &Pool{}
	}
	if a.Pool.MaxBuffers == 0 {
		a.Pool.MaxBuffers = 8
	}
	if a.Pool.IdleTTL == 0 {
		a.Pool.IdleTTL = 30 * time.Second
	}
	if a.Viewer == nil {
		a.Viewer = &Viewer{}
	}
}

// Env flattens the configuration into the environment seen by validation
// rules, e.g. `encoder.quality <= 95`. Durations are in seconds.
func (a *Application) Env() map[string]any {
	return map[string]any{
		"name": a.Name,
		"debug": map[string]any{
			"enabled": a.Debug.Enabled,
			"level":   a.Debug.Level,
			"overlay": a.Debug.Overlay,
		},
		"encoder": map[string]any{
			"quality":       a.Encoder.Quality,
			"format":        a.Encoder.Format,
			"max_dimension": a.Encoder.MaxDimension,
		},
		"analyzer": map[string]any{
			"edge_threshold":    a.Analyzer.EdgeThreshold,
			"entropy_threshold": a.Analyzer.EntropyThreshold,
		},
		"rendering": map[string]any{
			"backend":   a.Rendering.Backend,
			"antialias": a.Rendering.Antialias,
		},
		"performance": map[string]any{
			"sample_interval": a.Performance.SampleInterval.Seconds(),
			"history_size":    a.Performance.HistorySize,
		},
		"pool": map[string]any{
			"max_buffers": a.Pool.MaxBuffers,
			"idle_ttl":    a.Pool.IdleTTL.Seconds(),
		},
		"viewer": map[string]any{
			"source": a.Viewer.Source,
		},
	}
}
