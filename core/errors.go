package core

import "errors"

// Configuration errors. All of these abort a run before any file is touched.
var (
	ErrConfigNotFound    = errors.New("configuration file not found")
	ErrConfigParse       = errors.New("configuration file is malformed")
	ErrMissingKey        = errors.New("required configuration key is missing")
	ErrInvalidFlagValue  = errors.New("invalid boolean value")
	ErrDirectoryNotFound = errors.New("directory does not exist")

	// ErrNotConfigured marks a value still set to its template placeholder.
	// It is soft: the run stops without processing anything, but it is not
	// reported as a failure.
	ErrNotConfigured = errors.New("value has not been configured yet")
)

// Per-file errors. These are logged and the run moves on to the next file.
var (
	ErrUnreadableImage = errors.New("file could not be read as an image")
	ErrWrite           = errors.New("failed to write destination")
	ErrSourceRemoval   = errors.New("failed to remove original")
)
