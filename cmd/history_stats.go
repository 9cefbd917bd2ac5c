package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/ryanuber/columnize"
	"github.com/slackpad/fetchphotos/core"
	flag "github.com/spf13/pflag"
)

func HistoryStats(logger hclog.Logger) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &historyStats{
			logger: logger,
			out:    os.Stdout,
		}, nil
	}
}

type historyStats struct {
	logger hclog.Logger
	out    io.Writer
}

func (c *historyStats) Synopsis() string {
	return "Displays stats about recorded imports"
}

func (c *historyStats) Help() string {
	return `
fetchphotos history stats [-c FILE] [--history FILE]

-c, --configfile: Configuration file naming the history database
--history:        History database to read instead`
}

func (c *historyStats) Run(args []string) int {
	var configFile, historyFile string
	flags := flag.NewFlagSet("history stats", flag.ContinueOnError)
	flags.Usage = func() {}
	flags.StringVarP(&configFile, "configfile", "c", "", "")
	flags.StringVar(&historyFile, "history", "", "")
	if err := flags.Parse(args); err != nil || flags.NArg() != 0 {
		return cli.RunResultHelp
	}

	path, err := historyPath(c.logger, historyFile, configFile)
	if err != nil {
		c.logger.Error("failed to locate history", "error", err)
		return 1
	}
	h, err := core.OpenExistingHistory(path)
	if err != nil {
		c.logger.Error(err.Error())
		return 1
	}
	defer h.Close()

	runs, err := h.Runs()
	if err != nil {
		c.logger.Error(err.Error())
		return 1
	}
	counts, err := h.RotationCounts()
	if err != nil {
		c.logger.Error(err.Error())
		return 1
	}

	files, removed := 0, 0
	for _, r := range runs {
		files += r.Files
		removed += r.Removed
	}

	var rows []string
	for r, n := range counts {
		rows = append(rows, fmt.Sprintf("%s|%d", r, n))
	}
	sort.Strings(rows)
	rows = append([]string{"Rotation|Files"}, rows...)
	fmt.Fprintln(c.out, columnize.SimpleFormat(rows))
	fmt.Fprintln(c.out, "")
	fmt.Fprintf(c.out, "%d runs imported %d files (%d originals removed)\n", len(runs), files, removed)
	return 0
}
