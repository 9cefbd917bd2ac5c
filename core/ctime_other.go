//go:build !(linux || darwin || freebsd)

package core

import (
	"os"
	"time"
)

func changeTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
