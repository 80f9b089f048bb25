package cmd

import (
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chaos-io/photo2gallery/config"
	ulog "github.com/chaos-io/photo2gallery/util/log"
)

type rootOptions struct {
	configPath string
	logFile    string
	verbose    bool

	cfg       *config.Config
	logCloser io.Closer
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo2gallery",
		Short: "Prepare photos for the salon website gallery",
		Long: `photo2gallery turns phone captures into the website gallery.

"import" resizes and re-encodes new photos to WebP and rewrites the gallery manifest.
"strip" replaces the background of every published gallery image with a flat color.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file (defaults are used when omitted)")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Also write logs to this rotating file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newStripCmd(opts))

	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-file") {
		cfg.Log.File = o.logFile
	}

	_, closer, err := ulog.Setup(cmd.ErrOrStderr(), ulog.Options{Verbose: o.verbose, File: cfg.Log.File})
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	o.cfg = cfg
	o.logCloser = closer
	return nil
}

// run wraps a command body so the log file is closed whether the command succeeds or fails.
// Cobra skips post-run hooks once RunE returns an error.
func (o *rootOptions) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := o.closeLog(); cerr != nil && err == nil {
				err = fmt.Errorf("close log file: %w", cerr)
			}
		}()
		return fn(cmd, args)
	}
}

func (o *rootOptions) closeLog() error {
	if o.logCloser == nil {
		return nil
	}
	closer := o.logCloser
	o.logCloser = nil
	return closer.Close()
}
