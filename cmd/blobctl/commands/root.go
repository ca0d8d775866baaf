package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alphaflow/blobkit/pkg/config"
	"github.com/alphaflow/blobkit/pkg/console"
	"github.com/alphaflow/blobkit/pkg/errors"
	"github.com/alphaflow/blobkit/pkg/logging"
	"github.com/spf13/cobra"
)

// errReported signals a failure whose message is already on the console.
var errReported = stderrors.New("failure already reported")

// Version is stamped at build time with -ldflags "-X .../commands.Version=...".
var Version = "dev"

type rootOptions struct {
	configFile string
	envFiles   []string
	logLevel   string
	logFormat  string
}

// Execute runs blobctl and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if code := run(ctx, os.Args[1:], os.Stdout, os.Stderr); code != 0 {
		stop()
		os.Exit(code)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return (&app{stdout: stdout, stderr: stderr}).execute(ctx, args)
}

// execute runs one command line and returns the process exit code.
func (a *app) execute(ctx context.Context, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	a.close()
	if err == nil {
		return 0
	}

	// The failure was already printed.
	if stderrors.Is(err, errReported) || (a.reporter != nil && a.reporter.failed) {
		return 1
	}
	printer := console.NewPrinter(a.stderr)
	if appErr := errors.FromError(err); appErr.Code != errors.ErrorCodeInternal {
		printer.Errorf("%s", appErr.Message)
	} else {
		printer.Errorf("%v", err)
	}
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "blobctl",
		Short:         "Manage Azure Blob Storage containers and blobs",
		Long:          "blobctl creates, lists and deletes containers and blobs, uploads local files\nand directories, and fetches the crypto fear & greed index.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "JSON or YAML config file")
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, ".env files to load before reading the environment")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: console or json (overrides LOG_FORMAT)")

	cmd.AddCommand(
		newContainerCmd(a),
		newBlobCmd(a),
		newUploadCmd(a),
		newSentimentCmd(a),
		newServeCmd(a),
		newTokenCmd(a),
		newEventsCmd(a),
	)
	return cmd
}

func (a *app) init(opts *rootOptions) error {
	cfg, err := config.Load(opts.configFile, opts.configFile != "", opts.envFiles...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}

	if a.logger == nil {
		logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		a.logger = logger
	}
	a.cfg = cfg
	a.printer = console.NewPrinter(a.stdout)
	a.reporter = &cliReporter{Printer: a.printer}
	return nil
}
