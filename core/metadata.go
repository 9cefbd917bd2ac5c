package core

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// exifTimeLayout is how EXIF stores date/time values.
const exifTimeLayout = "2006:01:02 15:04:05"

// Rotation is the transform applied to a photo on its way to the archive.
type Rotation int

const (
	RotationNone Rotation = iota
	RotationCW90
	RotationCCW90
)

func (r Rotation) String() string {
	switch r {
	case RotationCW90:
		return "rotated 90° clockwise"
	case RotationCCW90:
		return "rotated 90° counter-clockwise"
	}
	return "not rotated"
}

// Annotation is appended to a report line, empty if nothing was rotated.
func (r Rotation) Annotation() string {
	if r == RotationNone {
		return ""
	}
	return fmt.Sprintf(" (%s)", r)
}

// RotationForOrientation maps an EXIF orientation code to the transform
// applied for it. Only codes 1, 6 and 8 are recognized; the mirrored
// orientations are left alone and reported as unrecognized.
func RotationForOrientation(code int) (Rotation, bool) {
	switch code {
	case 1:
		return RotationNone, true
	case 6:
		return RotationCCW90, true
	case 8:
		return RotationCW90, true
	}
	return RotationNone, false
}

// FileRecord follows one photo through a run.
type FileRecord struct {
	SourcePath string
	BaseName   string

	CreationTimeFallback time.Time
	ExifTime             *time.Time
	EffectiveTime        time.Time
	// TimeSource names where EffectiveTime came from.
	TimeSource string

	Orientation int
	Rotation    Rotation

	DestinationPath string
}

// TimeSource looks up a capture time for a file. x is nil when the file
// carries no readable EXIF data.
type TimeSource interface {
	Name() string
	Lookup(path string, x *exif.Exif) (time.Time, bool)
}

// DefaultTimeSources returns the capture time lookups in order of
// precedence: EXIF DateTimeDigitized (36868), EXIF DateTimeOriginal (36867),
// then the filesystem change time.
func DefaultTimeSources() []TimeSource {
	return []TimeSource{
		ExifTimeSource{Field: exif.DateTimeDigitized},
		ExifTimeSource{Field: exif.DateTimeOriginal},
		ChangeTimeSource{},
	}
}

// ExifTimeSource reads a date/time tag from EXIF data.
type ExifTimeSource struct {
	Field exif.FieldName
}

func (s ExifTimeSource) Name() string {
	return "exif:" + string(s.Field)
}

func (s ExifTimeSource) Lookup(path string, x *exif.Exif) (time.Time, bool) {
	if x == nil {
		return time.Time{}, false
	}
	tag, err := x.Get(s.Field)
	if err != nil {
		return time.Time{}, false
	}
	v, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(exifTimeLayout, strings.TrimRight(strings.TrimSpace(v), "\x00"), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ChangeTimeSource uses the time the file was created on this filesystem.
type ChangeTimeSource struct{}

func (ChangeTimeSource) Name() string {
	return "filesystem"
}

func (ChangeTimeSource) Lookup(path string, _ *exif.Exif) (time.Time, bool) {
	t, err := changeTime(path)
	if err != nil {
		return time.Time{}, false
	}
	return t.Truncate(time.Second), true
}

// Extractor reads orientation and capture time from photos.
type Extractor struct {
	logger  hclog.Logger
	sources []TimeSource
	rotate  bool
}

// NewExtractor returns an Extractor trying sources in order. With rotate
// false every record gets RotationNone regardless of its orientation.
func NewExtractor(logger hclog.Logger, sources []TimeSource, rotate bool) *Extractor {
	return &Extractor{
		logger:  logger,
		sources: sources,
		rotate:  rotate,
	}
}

// Extract builds the record for the photo at path. The error wraps
// ErrUnreadableImage if the file can't be decoded as an image.
func (e *Extractor) Extract(path string) (*FileRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%q: %v: %w", path, err, ErrUnreadableImage)
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return nil, fmt.Errorf("%q: %v: %w", path, err, ErrUnreadableImage)
	}

	fallback, err := changeTime(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	rec := &FileRecord{
		SourcePath:           path,
		BaseName:             filepath.Base(path),
		CreationTimeFallback: fallback.Truncate(time.Second),
		Orientation:          1,
	}

	var x *exif.Exif
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek %q: %w", path, err)
	}
	x, err = exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		e.logger.Debug("no EXIF data", "path", path, "error", err)
		x = nil
	}

	rec.Orientation = e.orientation(path, x)
	rotation, ok := RotationForOrientation(rec.Orientation)
	if !ok {
		e.logger.Warn("unhandled orientation, photo will not be rotated", "path", path, "orientation", rec.Orientation)
	}
	if e.rotate {
		rec.Rotation = rotation
	}

	rec.EffectiveTime = rec.CreationTimeFallback
	rec.TimeSource = ChangeTimeSource{}.Name()
	for _, s := range e.sources {
		t, ok := s.Lookup(path, x)
		if !ok {
			continue
		}
		if _, isExif := s.(ExifTimeSource); isExif {
			rec.ExifTime = &t
		}
		rec.EffectiveTime = t
		rec.TimeSource = s.Name()
		break
	}

	e.logger.Debug("extracted metadata", "path", path, "orientation", rec.Orientation,
		"time", rec.EffectiveTime, "source", rec.TimeSource)
	return rec, nil
}

func (e *Extractor) orientation(path string, x *exif.Exif) int {
	if x == nil {
		e.logger.Warn("no orientation tag, assuming normal orientation", "path", path)
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		e.logger.Warn("no orientation tag, assuming normal orientation", "path", path)
		return 1
	}
	v, err := tag.Int(0)
	if err != nil {
		e.logger.Warn("malformed orientation tag, assuming normal orientation", "path", path, "error", err)
		return 1
	}
	if v < 1 || v > 8 {
		e.logger.Warn("malformed orientation tag, assuming normal orientation", "path", path, "orientation", v)
		return 1
	}
	return v
}
