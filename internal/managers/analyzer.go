package managers

import (
	"errors"
	"fmt"

	"github.com/vk/imgboot/internal/config"
)

// ImageStats are the measurements the codec hands to the analyzer.
type ImageStats struct {
	Width       int
	Height      int
	Entropy     float64
	EdgeDensity float64
}

// Classifier maps flattened image stats to a content class. In production
// it is the classifyImage function of the analyzer script unit.
type Classifier func(stats map[string]any) (string, error)

// Analyzer classifies images so the encoder can pick settings per class.
type Analyzer struct {
	cfg      *config.Application
	classify Classifier
}

// NewAnalyzer needs the validated configuration and a classifier.
func NewAnalyzer(cfg *config.Application, classify Classifier) (*Analyzer, error) {
	if cfg == nil || cfg.Analyzer == nil || cfg.Encoder == nil {
		return nil, errors.New("analyzer requires a validated configuration")
	}
	if classify == nil {
		return nil, errors.New("analyzer requires a classifier")
	}
	return &Analyzer{cfg: cfg, classify: classify}, nil
}

// Analyze classifies one image.
func (a *Analyzer) Analyze(s ImageStats) (string, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return "", fmt.Errorf("invalid image size %dx%d", s.Width, s.Height)
	}
	class, err := a.classify(map[string]any{
		"width":            s.Width,
		"height":           s.Height,
		"entropy":          s.Entropy,
		"edgeDensity":      s.EdgeDensity,
		"maxDimension":     a.cfg.Encoder.MaxDimension,
		"edgeThreshold":    a.cfg.Analyzer.EdgeThreshold,
		"entropyThreshold": a.cfg.Analyzer.EntropyThreshold,
	})
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	return class, nil
}
