package core

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/hashicorp/go-hclog"
)

// timestampLayout is ISO 8601 with the colons already swapped for dots.
const timestampLayout = "2006-01-02T15.04.05"

const jpegQuality = 95

// DestinationName returns the archive file name for a photo called base
// taken at t, e.g. "2009-04-22T17.25.35_img_0533.jpg". Only base is
// lower-cased.
func DestinationName(base string, t time.Time, addTimestamp, lowercase bool) string {
	if lowercase {
		base = strings.ToLower(base)
	}
	if !addTimestamp {
		return base
	}
	return t.Format(timestampLayout) + "_" + base
}

// Normalizer names photos and writes them into the destination directory.
type Normalizer struct {
	logger       hclog.Logger
	destDir      string
	scratchDir   string
	addTimestamp bool
	lowercase    bool
}

// NewNormalizer returns a Normalizer writing into cfg's destination.
func NewNormalizer(logger hclog.Logger, cfg *Config) *Normalizer {
	return &Normalizer{
		logger:       logger,
		destDir:      cfg.DestinationDir,
		scratchDir:   cfg.ScratchDir(),
		addTimestamp: cfg.AddTimestamp,
		lowercase:    cfg.LowercaseFilename,
	}
}

// Destination computes and stores the record's destination path. Once set
// it is not recomputed.
func (n *Normalizer) Destination(rec *FileRecord) string {
	if rec.DestinationPath == "" {
		name := DestinationName(rec.BaseName, rec.EffectiveTime, n.addTimestamp, n.lowercase)
		rec.DestinationPath = filepath.Join(n.destDir, name)
	}
	return rec.DestinationPath
}

// Apply writes src to dst, rotated as requested. Unrotated photos are
// copied byte for byte. The source is never modified. Errors wrap ErrWrite.
func (n *Normalizer) Apply(src, dst string, r Rotation) error {
	if r == RotationNone {
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("failed to copy %q to %q: %v: %w", src, dst, err, ErrWrite)
		}
		return nil
	}

	if err := n.rotate(src, dst, r); err != nil {
		return fmt.Errorf("failed to rotate %q to %q: %v: %w", src, dst, err, ErrWrite)
	}
	return nil
}

func (n *Normalizer) rotate(src, dst string, r Rotation) error {
	format, err := imaging.FormatFromFilename(dst)
	if err != nil {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	img, err := imaging.Open(src)
	if err != nil {
		return err
	}

	var out image.Image
	switch r {
	case RotationCCW90:
		out = imaging.Rotate90(img)
	case RotationCW90:
		out = imaging.Rotate270(img)
	default:
		return fmt.Errorf("unknown rotation %d", r)
	}

	tmp, err := os.CreateTemp(n.scratchDir, "fetchphotos-*"+filepath.Ext(dst))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, out, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}

	n.logger.Trace("encoded rotated photo", "path", tmp.Name(), "width", out.Bounds().Dx(), "height", out.Bounds().Dy())
	return copyFile(tmp.Name(), dst)
}
