package main

import (
	"os"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	fetchcmd "github.com/slackpad/fetchphotos/cmd"
)

var appName = "fetchphotos"
var appVersion = "0.2.0"

func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:              appName,
		Level:             hclog.LevelFromString("INFO"),
		Output:            os.Stderr,
		Color:             hclog.AutoColor,
		IndependentLevels: true,
	})

	c := cli.NewCLI(appName, appVersion)
	c.Args = os.Args[1:]
	c.Commands = map[string]cli.CommandFactory{
		"fetch":         fetchcmd.Fetch(logger),
		"config show":   fetchcmd.ConfigShow(logger),
		"history list":  fetchcmd.HistoryList(logger),
		"history stats": fetchcmd.HistoryStats(logger),
	}

	exitStatus, err := c.Run()
	if err != nil {
		logger.Error(err.Error())
	}

	os.Exit(exitStatus)
}
