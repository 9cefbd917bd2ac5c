//go:build linux || darwin || freebsd

package core

import (
	"time"

	"golang.org/x/sys/unix"
)

// changeTime returns the inode change time, which for a file copied off a
// camera card is the time it was created here.
func changeTime(path string) (time.Time, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, err
	}
	sec, nsec := st.Ctim.Unix()
	return time.Unix(sec, nsec), nil
}
