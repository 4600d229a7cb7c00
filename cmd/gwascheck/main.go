// Command gwascheck runs the upload form's preview checks against a local
// file or a gs:// object from the command line.
//
// Exit status is 0 when the file is accepted, 1 when it is rejected and 2
// on usage or I/O errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gwasupload/internal/config"
	"github.com/JonMunkholm/gwasupload/internal/logging"
)

// errRejected marks a completed check that rejected the file.
var errRejected = errors.New("file rejected")

type rootOptions struct {
	envFile   string
	logLevel  string
	logFormat string
	jsonOut   bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	ro := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "gwascheck",
		Short:         "Check GWAS summary statistics files before uploading them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ro.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&ro.envFile, "env-file", "", "Load settings from this .env file")
	flags.StringVar(&ro.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")
	flags.StringVar(&ro.logFormat, "log-format", "", "Log format: text or json (default from LOG_FORMAT)")
	flags.BoolVar(&ro.jsonOut, "json", false, "Print results as JSON")

	cmd.AddCommand(previewCommand(ro), validateCommand(ro))
	return cmd
}

// setup loads configuration and the stderr logger shared by subcommands.
func (ro *rootOptions) setup(cmd *cobra.Command) error {
	if ro.envFile != "" {
		if err := godotenv.Load(ro.envFile); err != nil {
			return fmt.Errorf("load %s: %w", ro.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ro.logLevel != "" {
		cfg.Logging.Level = ro.logLevel
	}
	if ro.logFormat != "" {
		cfg.Logging.Format = ro.logFormat
	}

	ro.cfg = cfg
	ro.logger = logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, errRejected):
		os.Exit(1)
	default:
		fmt.Fprintln(os.Stderr, "gwascheck:", err)
		os.Exit(2)
	}
}
