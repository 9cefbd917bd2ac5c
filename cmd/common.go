package cmd

import (
	hclog "github.com/hashicorp/go-hclog"
	"github.com/slackpad/fetchphotos/core"
)

// configPath returns the configuration file given on the command line, or
// the per-user default.
func configPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return core.DefaultConfigPath()
}

// historyPath returns the history database given on the command line, or
// the one named by the configuration.
func historyPath(logger hclog.Logger, historyFlag, configFlag string) (string, error) {
	if historyFlag != "" {
		return historyFlag, nil
	}

	path, err := configPath(configFlag)
	if err != nil {
		return "", err
	}
	cfg, err := core.LoadConfig(logger, path)
	if err != nil {
		return "", err
	}
	return cfg.HistoryFile, nil
}
