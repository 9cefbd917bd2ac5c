package core

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// copyFile copies src to dst through a temporary file in the destination
// directory. The data is read back and compared against what was read from
// src before the temporary file is renamed into place, so dst only ever
// appears with the complete and correct contents. An existing dst is
// replaced. dst gets the permissions and modification time of src.
func copyFile(src, dst string) error {
	if src == "" || dst == "" {
		return errors.New("source and destination are required")
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".fetchphotos-*")
	if err != nil {
		return err
	}

	h := sha256.New()
	tee := io.TeeReader(in, h)
	if _, err := io.Copy(tmp, tee); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	// Make sure what landed on disk is what we read.
	written, err := hashFile(tmp.Name())
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if !bytes.Equal(h.Sum(nil), written) {
		os.Remove(tmp.Name())
		return fmt.Errorf("hash of %q does not match %q after copy", tmp.Name(), src)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	// Keep the mode and time from the source file.
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}
