package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/slackpad/fetchphotos/core"
	flag "github.com/spf13/pflag"
)

// exitInterrupted is the conventional status for a run stopped by SIGINT.
const exitInterrupted = 130

// Fetch returns a CommandFactory for importing photos into the archive.
func Fetch(logger hclog.Logger) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &fetch{
			logger: logger,
			out:    os.Stdout,
			errOut: os.Stderr,
		}, nil
	}
}

type fetch struct {
	logger hclog.Logger
	out    io.Writer
	errOut io.Writer
}

func (c *fetch) Synopsis() string {
	return "Imports photos from the camera directory into the archive"
}

func (c *fetch) Help() string {
	return `Usage: fetchphotos fetch [options] [FILE...]

Copies photos from DIGICAMDIR into DESTINATIONDIR. Every photo is named
after its capture time (taken from its EXIF data, or from the filesystem
if it has none), optionally lower-cased, and rotated upright according to
its EXIF orientation. Originals are removed afterwards unless
KEEP_ORIGINALS is set.

If FILE arguments are given only those files are imported and DIGICAMDIR
is not scanned.

Options:
  -c, --configfile FILE     Configuration file to use
      --generate-configfile Write a skeleton configuration file and exit
  -v, --verbose             Log debug messages
  -q, --quiet               Only log errors
      --loglevel LEVEL      Set the log level (trace, debug, info, warn, error)
  -s, --dryrun              Report what would happen without touching any file
      --progress            Show a progress bar

Example:
  fetchphotos fetch --generate-configfile
  fetchphotos fetch -s
  fetchphotos fetch IMG_0533.JPG
`
}

func (c *fetch) Run(args []string) int {
	var configFile, logLevel string
	var generate, verbose, quiet, dryRun, progress bool

	flags := flag.NewFlagSet("fetch", flag.ContinueOnError)
	flags.SetOutput(c.errOut)
	flags.Usage = func() {}
	flags.StringVarP(&configFile, "configfile", "c", "", "")
	flags.BoolVar(&generate, "generate-configfile", false, "")
	flags.BoolVarP(&verbose, "verbose", "v", false, "")
	flags.BoolVarP(&quiet, "quiet", "q", false, "")
	flags.StringVar(&logLevel, "loglevel", "", "")
	flags.BoolVarP(&dryRun, "dryrun", "s", false, "")
	flags.BoolVar(&progress, "progress", false, "")
	if err := flags.Parse(args); err != nil {
		c.logger.Error("invalid arguments", "error", err)
		return cli.RunResultHelp
	}

	if verbose && quiet {
		c.logger.Error("please use either verbose (--verbose) or quiet (--quiet)")
		return cli.RunResultHelp
	}

	logger := c.logger.Named("fetch")
	switch {
	case verbose:
		logger.SetLevel(hclog.Debug)
	case quiet:
		logger.SetLevel(hclog.Error)
	case logLevel != "":
		level := hclog.LevelFromString(logLevel)
		if level == hclog.NoLevel {
			c.logger.Error("unknown log level", "level", logLevel)
			return cli.RunResultHelp
		}
		logger.SetLevel(level)
	}

	path, err := configPath(configFile)
	if err != nil {
		logger.Error("failed to determine configuration file", "error", err)
		return 1
	}

	if generate {
		created, err := core.GenerateConfig(logger, path)
		if err != nil {
			logger.Error("failed to generate configuration file", "error", err)
			return 1
		}
		if created {
			logger.Info("generated configuration file", "path", path)
		}
		return 0
	}

	cfg, err := core.LoadConfig(logger, path)
	if errors.Is(err, core.ErrNotConfigured) {
		logger.Warn("configuration is not complete, no photos were processed", "path", path)
		return 0
	}
	if err != nil {
		logger.Error("invalid configuration", "path", path, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := core.IntakeOptions{
		Out:    c.out,
		DryRun: dryRun,
	}
	if !dryRun {
		history, err := core.OpenHistory(cfg.HistoryFile)
		if err != nil {
			logger.Warn("import history is unavailable", "error", err)
		} else {
			defer history.Close()
			opts.Journal = history
			opts.RunID = uuid.NewString()
		}
	}
	if progress {
		bar := newProgressObserver(c.errOut)
		defer bar.Finish()
		opts.Observer = bar
	}

	files := core.Discover(logger.Named("discover"), flags.Args(), cfg.SourceDir, cfg.ImageExtensions)
	report := core.NewIntake(logger, cfg, opts).Run(ctx, files)

	if !quiet {
		fmt.Fprintln(c.out, "")
		fmt.Fprintln(c.out, report.Table())
		fmt.Fprintln(c.out, report.Summary())
	}

	if report.Interrupted || ctx.Err() != nil {
		logger.Warn("received interrupt, stopping")
		return exitInterrupted
	}
	if report.Failed() > 0 {
		return 1
	}
	return 0
}
