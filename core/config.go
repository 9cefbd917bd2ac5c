package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/ini.v1"
)

const (
	sectionGeneral    = "General"
	sectionProcessing = "File_processing"

	keySourceDir       = "DIGICAMDIR"
	keyDestinationDir  = "DESTINATIONDIR"
	keyTempDir         = "TEMPDIR"
	keyImageExtensions = "IMAGE_EXTENSIONS"
	keyHistoryFile     = "HISTORYFILE"

	keyRotatePhotos      = "ROTATE_PHOTOS"
	keyAddTimestamp      = "ADD_TIMESTAMP"
	keyLowercaseFilename = "LOWERCASE_FILENAME"
	keyKeepOriginals     = "KEEP_ORIGINALS"

	// placeholderPrefix starts every directory value in a generated template.
	placeholderPrefix = "/path-to"

	defaultHistoryName = "fetchphotos.db"
)

var defaultImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".tif", ".tiff", ".bmp", ".webp"}

// Config is the validated configuration for a run. It is never modified
// after LoadConfig returns it.
type Config struct {
	SourceDir      string
	DestinationDir string
	TempDir        string

	// HistoryFile is the bolt database import runs are recorded in.
	HistoryFile string

	// ImageExtensions are lower-case suffixes including the leading dot.
	ImageExtensions []string

	RotatePhotos      bool
	AddTimestamp      bool
	LowercaseFilename bool
	KeepOriginals     bool
}

// ScratchDir returns the directory intermediate files are written to.
func (c *Config) ScratchDir() string {
	if c.TempDir == "" {
		return os.TempDir()
	}
	return c.TempDir
}

// DefaultConfigPath returns the per-user location of the configuration file.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "fetchphotos", "fetchphotos.cfg"), nil
}

const configTemplate = `[General]

# directory, where the digicam photos are located
DIGICAMDIR=/path-to-images -- replace me!

# directory, where the photos will be moved to
DESTINATIONDIR=/path-to-destination -- replace me!

# scratch directory used while rotating photos
# leave empty to use the temporary directory of the system
TEMPDIR=

# file suffixes treated as photos when scanning DIGICAMDIR
IMAGE_EXTENSIONS=jpg jpeg png gif tif tiff bmp webp

# database recording every import
# leave empty to keep it next to this file
HISTORYFILE=

[File_processing]

# rotate the photos according to EXIF data saved from the digicam
# can be one of 'true' or 'false'
ROTATE_PHOTOS=true

# add timestamp according to ISO 8601+
# can be one of 'true' or 'false'
# example: if true, file 'foo.jpg' will end up in '2009-12-31T23.59.59_foo.jpg'
ADD_TIMESTAMP=true

# rename files to lowercase one
# can be one of 'true' or 'false'
# example: if true, file 'Foo.JPG' will end up in 'foo.jpg'
LOWERCASE_FILENAME=true

# keep the photos in DIGICAMDIR after they have been copied
# can be one of 'true' or 'false'
KEEP_ORIGINALS=true
`

// GenerateConfig writes a skeleton configuration file to path. An existing
// file is left alone, in which case false is returned.
func GenerateConfig(logger hclog.Logger, path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		logger.Info("configuration file already exists, not overwriting it", "path", path)
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory for %q: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return false, fmt.Errorf("failed to write %q: %w", path, err)
	}
	return true, nil
}

// LoadConfig parses and validates the configuration file at path. Every rule
// is checked so that all problems are reported at once. If any hard problem
// was found the returned error contains all of them; if the only problems are
// placeholder values the error matches ErrNotConfigured.
func LoadConfig(logger hclog.Logger, path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%q: %w", path, ErrConfigNotFound)
	} else if err != nil {
		return nil, err
	}

	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		return nil, fmt.Errorf("%q: %v: %w", path, err, ErrConfigParse)
	}

	var hard, soft *multierror.Error
	collect := func(err error) {
		if err == nil {
			return
		}
		if errors.Is(err, ErrNotConfigured) {
			soft = multierror.Append(soft, err)
			return
		}
		hard = multierror.Append(hard, err)
	}

	general := f.Section(sectionGeneral)
	cfg := &Config{
		ImageExtensions: defaultImageExtensions,
		HistoryFile:     filepath.Join(filepath.Dir(path), defaultHistoryName),
	}

	for _, d := range []struct {
		key string
		dst *string
	}{
		{keySourceDir, &cfg.SourceDir},
		{keyDestinationDir, &cfg.DestinationDir},
	} {
		if !general.HasKey(d.key) {
			collect(fmt.Errorf("%s/%s: %w", sectionGeneral, d.key, ErrMissingKey))
			continue
		}
		*d.dst = general.Key(d.key).String()
		collect(checkDir(logger, d.key, *d.dst))
	}

	if general.HasKey(keyTempDir) {
		cfg.TempDir = general.Key(keyTempDir).String()
		if cfg.TempDir != "" {
			collect(checkDir(logger, keyTempDir, cfg.TempDir))
		}
	}

	if general.HasKey(keyImageExtensions) {
		if exts := parseExtensions(general.Key(keyImageExtensions).String()); len(exts) > 0 {
			cfg.ImageExtensions = exts
		}
	}

	if v := general.Key(keyHistoryFile).String(); v != "" {
		cfg.HistoryFile = v
	}

	processing := f.Section(sectionProcessing)
	for _, b := range []struct {
		key string
		dst *bool
	}{
		{keyRotatePhotos, &cfg.RotatePhotos},
		{keyAddTimestamp, &cfg.AddTimestamp},
		{keyLowercaseFilename, &cfg.LowercaseFilename},
		{keyKeepOriginals, &cfg.KeepOriginals},
	} {
		v, err := parseFlag(processing, b.key, true)
		collect(err)
		*b.dst = v
	}

	if err := hard.ErrorOrNil(); err != nil {
		return nil, err
	}
	if err := soft.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkDir(logger hclog.Logger, key, dir string) error {
	if strings.HasPrefix(dir, placeholderPrefix) {
		logger.Warn("directory has not been configured, edit the configuration file", "key", key, "value", dir)
		return fmt.Errorf("%s: %w", key, ErrNotConfigured)
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		logger.Error("configured directory does not exist", "key", key, "path", dir)
		return fmt.Errorf("%s %q: %w", key, dir, ErrDirectoryNotFound)
	} else if err != nil {
		return fmt.Errorf("%s %q: %w", key, dir, err)
	}
	if !info.IsDir() {
		logger.Error("configured path is not a directory", "key", key, "path", dir)
		return fmt.Errorf("%s %q is not a directory: %w", key, dir, ErrDirectoryNotFound)
	}
	return nil
}

func parseFlag(sec *ini.Section, key string, def bool) (bool, error) {
	if !sec.HasKey(key) {
		return def, nil
	}

	v := sec.Key(key).String()
	switch strings.ToLower(v) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return def, fmt.Errorf("%s/%s=%q: %w", sec.Name(), key, v, ErrInvalidFlagValue)
}

func parseExtensions(v string) []string {
	var exts []string
	for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		exts = append(exts, "."+strings.ToLower(strings.TrimPrefix(f, ".")))
	}
	return exts
}
