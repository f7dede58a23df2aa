package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/imgboot/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("imgboot", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
imgboot - Boots the image uploader or viewer hosted by an HTML page.

Usage:
  imgboot [options] [PAGE_PATH]

Arguments:
  PAGE_PATH
    Path to the HTML page hosting the application. The page decides
    whether the uploader or the viewer starts.

Options:
`)
		flagSet.PrintDefaults()
	}

	pageFlag := flagSet.String("page", "", "Path to the hosted HTML page.")
	pFlag := flagSet.String("p", "", "Path to the hosted HTML page (shorthand).")
	configFlag := flagSet.String("config", "", "Path to the application HCL configuration. Defaults apply when empty.")
	outFlag := flagSet.String("out", "", "Write the resulting page to this path.")
	scriptsFlag := flagSet.String("scripts", "", "Directory overriding the embedded script units.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	reportURLFlag := flagSet.String("report-url", "", "socket.io endpoint receiving failure reports.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *pageFlag != "" {
		path = *pageFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Page path determined.", "path", path)

	if path == "" {
		slog.Debug("No page path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		PagePath:        path,
		ConfigPath:      *configFlag,
		OutPath:         *outFlag,
		ScriptsPath:     *scriptsFlag,
		HealthcheckPort: *healthPortFlag,
		ReportURL:       *reportURLFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
