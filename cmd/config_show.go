package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/ryanuber/columnize"
	"github.com/slackpad/fetchphotos/core"
	flag "github.com/spf13/pflag"
)

// ConfigShow returns a CommandFactory for printing the effective configuration.
func ConfigShow(logger hclog.Logger) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &configShow{
			logger: logger,
			out:    os.Stdout,
		}, nil
	}
}

type configShow struct {
	logger hclog.Logger
	out    io.Writer
}

func (c *configShow) Synopsis() string {
	return "Validates and prints the configuration"
}

func (c *configShow) Help() string {
	return `Usage: fetchphotos config show [-c FILE]

Loads and validates the configuration file and prints the settings a fetch
would run with, including defaults for keys that are not set.

Options:
  -c, --configfile FILE  Configuration file to use
`
}

func (c *configShow) Run(args []string) int {
	var configFile string
	flags := flag.NewFlagSet("config show", flag.ContinueOnError)
	flags.Usage = func() {}
	flags.StringVarP(&configFile, "configfile", "c", "", "")
	if err := flags.Parse(args); err != nil || flags.NArg() != 0 {
		return cli.RunResultHelp
	}

	path, err := configPath(configFile)
	if err != nil {
		c.logger.Error("failed to determine configuration file", "error", err)
		return 1
	}

	cfg, err := core.LoadConfig(c.logger, path)
	if err != nil {
		c.logger.Error("invalid configuration", "path", path, "error", err)
		return 1
	}

	rows := []string{
		"Setting|Value",
		fmt.Sprintf("Configuration file|%s", path),
		fmt.Sprintf("Source directory|%s", cfg.SourceDir),
		fmt.Sprintf("Destination directory|%s", cfg.DestinationDir),
		fmt.Sprintf("Scratch directory|%s", cfg.ScratchDir()),
		fmt.Sprintf("History file|%s", cfg.HistoryFile),
		fmt.Sprintf("Image extensions|%s", strings.Join(cfg.ImageExtensions, " ")),
		fmt.Sprintf("Rotate photos|%t", cfg.RotatePhotos),
		fmt.Sprintf("Add timestamp|%t", cfg.AddTimestamp),
		fmt.Sprintf("Lowercase filename|%t", cfg.LowercaseFilename),
		fmt.Sprintf("Keep originals|%t", cfg.KeepOriginals),
	}
	fmt.Fprintln(c.out, columnize.SimpleFormat(rows))
	return 0
}
