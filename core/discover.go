package core

import (
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Discover yields the files a run should process. A non-empty explicit list
// is used in the given order with everything that isn't a regular file
// dropped. Otherwise sourceDir is scanned (not recursively) for files with
// one of the given extensions, in lexical order.
//
// The sequence reads the filesystem when it is iterated, so every iteration
// sees the current state of the directory.
func Discover(logger hclog.Logger, explicit []string, sourceDir string, exts []string) iter.Seq[string] {
	if len(explicit) > 0 {
		return func(yield func(string) bool) {
			for _, path := range explicit {
				info, err := os.Stat(path)
				if err != nil {
					logger.Debug("skipping missing file", "path", path, "error", err)
					continue
				}
				if !info.Mode().IsRegular() {
					logger.Debug("skipping non-regular file", "path", path)
					continue
				}
				if !yield(path) {
					return
				}
			}
		}
	}

	return func(yield func(string) bool) {
		// ReadDir returns entries sorted by filename.
		entries, err := os.ReadDir(sourceDir)
		if err != nil {
			logger.Error("failed to read source directory", "path", sourceDir, "error", err)
			return
		}

		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			if !isImageName(e.Name(), exts) {
				logger.Trace("skipping file without an image suffix", "name", e.Name())
				continue
			}
			if !yield(filepath.Join(sourceDir, e.Name())) {
				return
			}
		}
	}
}

func isImageName(name string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(name)))
}
