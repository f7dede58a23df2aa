package app

import (
	"errors"
	"net/url"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath  string // application HCL file, defaults when empty
	PagePath    string // hosted HTML page
	OutPath     string // where the resulting page is written, skipped when empty
	ScriptsPath string // overrides the embedded script units

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	ReportURL       string // socket.io endpoint receiving failure reports
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.PagePath == "" {
		return nil, errors.New("PagePath is a required configuration field and cannot be empty")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, errors.New("HealthcheckPort must be within [0, 65535]")
	}
	if cfg.ReportURL != "" {
		u, err := url.Parse(cfg.ReportURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, errors.New("ReportURL must be an absolute URL")
		}
	}
	return &cfg, nil
}
