package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/ryanuber/columnize"
	"github.com/slackpad/fetchphotos/core"
	flag "github.com/spf13/pflag"
)

// HistoryList returns a CommandFactory for listing recorded imports.
func HistoryList(logger hclog.Logger) cli.CommandFactory {
	return func() (cli.Command, error) {
		return &historyList{
			logger: logger,
			out:    os.Stdout,
		}, nil
	}
}

type historyList struct {
	logger hclog.Logger
	out    io.Writer
}

func (c *historyList) Synopsis() string {
	return "Lists recorded imports"
}

func (c *historyList) Help() string {
	return `Usage: fetchphotos history list [options] [runID]

Without arguments, lists every recorded import run. With a run ID, lists
the photos that run wrote to the archive.

Dry runs are never recorded.

Options:
  -c, --configfile FILE  Configuration file naming the history database
      --history FILE     History database to read instead

Example:
  fetchphotos history list
  fetchphotos history list 3f0b6b8e-0c8d-4a7e-9f60-0a4b7b0b6a52
`
}

func (c *historyList) Run(args []string) int {
	var configFile, historyFile string
	flags := flag.NewFlagSet("history list", flag.ContinueOnError)
	flags.Usage = func() {}
	flags.StringVarP(&configFile, "configfile", "c", "", "")
	flags.StringVar(&historyFile, "history", "", "")
	if err := flags.Parse(args); err != nil || flags.NArg() > 1 {
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

	if flags.NArg() == 1 {
		return c.listEntries(h, flags.Arg(0))
	}
	return c.listRuns(h)
}

func (c *historyList) listRuns(h *core.History) int {
	runs, err := h.Runs()
	if err != nil {
		c.logger.Error("failed to read history", "error", err)
		return 1
	}

	rows := []string{"Run|Started|Files|Originals Removed"}
	for _, r := range runs {
		rows = append(rows, fmt.Sprintf("%s|%s|%d|%d", r.ID, r.StartedAt.Format(time.DateTime), r.Files, r.Removed))
	}
	fmt.Fprintln(c.out, columnize.SimpleFormat(rows))
	return 0
}

func (c *historyList) listEntries(h *core.History, runID string) int {
	entries, err := h.Entries(runID)
	if err != nil {
		c.logger.Error("failed to read run", "run", runID, "error", err)
		return 1
	}

	rows := []string{"Source|Destination|Taken|Time Source|Rotation|Removed"}
	for _, e := range entries {
		rows = append(rows, fmt.Sprintf("%s|%s|%s|%s|%s|%t",
			e.Source, e.Destination, e.EffectiveTime.Format(time.DateTime), e.TimeSource, e.Rotation, e.SourceRemoved))
	}
	fmt.Fprintln(c.out, columnize.SimpleFormat(rows))
	return 0
}
