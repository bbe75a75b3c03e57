package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/capscan/internal/app"
	"github.com/spf13/cobra"
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

const long = `capscan - a parameter-space scanner built from self-describing functions.

Every configured request is resolved against the registered modules into a
dependency graph, which is then evaluated at each point of the scan.

CONFIG_PATH is a .hcl or .yaml file, or a directory containing them.`

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		cfg   app.Config
		paths []string
		ran   bool
	)
	cmd := &cobra.Command{
		Use:           "capscan [flags] [CONFIG_PATH...]",
		Short:         "Scan a model parameter space.",
		Long:          long,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, positional []string) error {
			ran = true
			paths = append(paths, positional...)
			return nil
		},
	}
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(output)
	cmd.SetErr(output)

	flags := cmd.Flags()
	flags.StringSliceVarP(&paths, "config", "c", nil, "Path to a config file or directory. May be repeated.")
	flags.IntVar(&cfg.HealthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	flags.StringVar(&cfg.LogFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&cfg.TraceExporter, "trace-exporter", "none", "Trace exporter. Options: 'none', 'stdout', 'otlp'.")
	flags.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", "localhost:4317", "OTLP gRPC endpoint used by the otlp trace exporter.")
	flags.StringVar(&cfg.RunID, "run-id", "", "Identifier attached to every result. Generated when empty.")
	flags.BoolVar(&cfg.ListFunctors, "list-functors", false, "Print the functor table after dependency resolution.")

	if err := cmd.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if !ran {
		// Help was requested.
		return nil, true, nil
	}
	slog.Debug("Arguments parsed successfully.")

	if len(paths) == 0 {
		slog.Debug("No config path provided, printing usage and exiting.")
		_ = cmd.Usage()
		return nil, true, nil
	}

	cfg.ConfigPaths = paths
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.TraceExporter = strings.ToLower(cfg.TraceExporter)

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
