package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seerai/krampus-auth/action"
	"github.com/seerai/krampus-auth/observe"
)

const serviceName = "krampus-auth"

type rootOptions struct {
	apiKey          string
	host            string
	apiKeyRef       string
	hostRef         string
	logFormat       string
	logLevel        string
	traceExporter   string
	metricsExporter string
}

// execute runs the root command and returns the process exit code.
func execute(args []string) int {
	// --help and --version never reach RunE.
	code := action.ExitSuccess
	cmd := newRootCmd(os.Stdout, os.Stderr, nil, &code)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return action.ExitFailure
	}
	return code
}

func newRootCmd(stdout, stderr io.Writer, environ map[string]string, code *int) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "Validate a Geodesic API key with Krampus",
		Long: `Validate a Geodesic API key with Krampus and export it for later steps.

Inputs are read from the runner environment (INPUT_API-KEY, INPUT_GEODESIC-HOST,
INPUT_API-KEY-REF, INPUT_GEODESIC-HOST-REF) and may be overridden with flags.
Plain inputs are used verbatim; only the -ref inputs are resolved as secret
references. On success GEODESIC_API_KEY and GEODESIC_HOST
are written to $GITHUB_ENV.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			*code = runAction(ctx, cmd, opts, stdout, stderr, environ)
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVar(&opts.apiKey, "api-key", "", "API key to validate, used verbatim (overrides INPUT_API-KEY)")
	flags.StringVar(&opts.host, "host", "", "Geodesic base host, used verbatim (overrides INPUT_GEODESIC-HOST)")
	flags.StringVar(&opts.apiKeyRef, "api-key-ref", "", "secretref:<provider>:<ref> for the API key (overrides INPUT_API-KEY-REF)")
	flags.StringVar(&opts.hostRef, "host-ref", "", "secretref:<provider>:<ref> for the host (overrides INPUT_GEODESIC-HOST-REF)")
	flags.StringVar(&opts.logFormat, "log-format", "actions", "diagnostic format: actions|json")
	flags.StringVar(&opts.logLevel, "log-level", "", "json log level: debug|info|warn|error (default: debug when RUNNER_DEBUG=1, else info)")
	flags.StringVar(&opts.traceExporter, "trace-exporter", "none", "trace exporter: otlp|jaeger|stdout|none")
	flags.StringVar(&opts.metricsExporter, "metrics-exporter", "none", "metrics exporter: otlp|stdout|none")

	return cmd
}

func runAction(ctx context.Context, cmd *cobra.Command, opts *rootOptions, stdout, stderr io.Writer, environ map[string]string) int {
	renv, err := action.LoadEnvironment(environ)
	if err != nil {
		// Without the runner context we can still report through stdout.
		action.NewCommands(stdout, "").Error(err.Error())
		return action.ExitFailure
	}

	in := renv.Inputs
	if cmd.Flags().Changed("api-key") {
		in.APIKey = opts.apiKey
	}
	if cmd.Flags().Changed("host") {
		in.Host = opts.host
	}
	if cmd.Flags().Changed("api-key-ref") {
		in.APIKeyRef = opts.apiKeyRef
	}
	if cmd.Flags().Changed("host-ref") {
		in.HostRef = opts.hostRef
	}

	if opts.logLevel == "" {
		opts.logLevel = "info"
		if renv.Debug() {
			opts.logLevel = "debug"
		}
	}

	cmds := action.NewCommands(stdout, renv.EnvFile)

	obs, err := newObserver(ctx, opts, cmds, stderr)
	if err != nil {
		cmds.Error(err.Error())
		return action.ExitFailure
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			_, _ = fmt.Fprintf(stderr, "telemetry shutdown: %v\n", err)
		}
	}()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		cmds.Error(err.Error())
		return action.ExitFailure
	}

	return action.Run(ctx, in, action.Deps{
		Commands:   cmds,
		Logger:     obs.Logger(),
		Middleware: mw,
	})
}

func newObserver(ctx context.Context, opts *rootOptions, cmds *action.Commands, stderr io.Writer) (observe.Observer, error) {
	// A one-shot process never serves the Prometheus registry.
	if opts.metricsExporter == "prometheus" {
		return nil, fmt.Errorf("metrics exporter %q is not supported by this command: use otlp or stdout", opts.metricsExporter)
	}

	cfg := observe.Config{
		ServiceName: serviceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   opts.traceExporter != "none",
			Exporter:  opts.traceExporter,
			SamplePct: 1.0,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  opts.metricsExporter != "none",
			Exporter: opts.metricsExporter,
		},
	}

	var obsOpts []observe.Option
	obsOpts = append(obsOpts, observe.WithExportWriter(stderr))

	switch opts.logFormat {
	case "actions":
		obsOpts = append(obsOpts, observe.WithLogger(action.NewCommandLogger(cmds)))
	case "json":
		cfg.Logging = observe.LoggingConfig{Enabled: true, Level: opts.logLevel}
		obsOpts = append(obsOpts, observe.WithLogger(observe.NewLoggerWithWriter(opts.logLevel, stderr)))
	default:
		return nil, fmt.Errorf("unknown log format: %q", opts.logFormat)
	}

	return observe.NewObserver(ctx, cfg, obsOpts...)
}
