package core

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
)

// State is how far a photo got through a run.
type State int

const (
	StateDiscovered State = iota
	StateMetadataExtracted
	StateNormalized
	StateOriginalRemoved
	StateOriginalKept
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateMetadataExtracted:
		return "metadata extracted"
	case StateNormalized:
		return "normalized"
	case StateOriginalRemoved:
		return "original removed"
	case StateOriginalKept:
		return "original kept"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome is the result of processing one photo.
type Outcome struct {
	Source string
	Record *FileRecord
	State  State
	DryRun bool
	Err    error
}

// Line renders the outcome the way it is reported to the user:
// "<source> --> <destination>" followed by the rotation, if any.
func (o *Outcome) Line() string {
	if o.Record == nil || o.Record.DestinationPath == "" {
		return fmt.Sprintf("%s --> (%s)", o.Source, o.State)
	}
	line := fmt.Sprintf("%s --> %s%s", o.Source, o.Record.DestinationPath, o.Record.Rotation.Annotation())
	if o.DryRun {
		line = "[dry run] " + line
	}
	return line
}

// Observer is told about every photo once it has been dealt with.
type Observer interface {
	OnFileDone(o *Outcome)
}

// IntakeOptions carries the optional collaborators of an Intake.
type IntakeOptions struct {
	// Out receives one line per photo written. Defaults to io.Discard.
	Out io.Writer

	// DryRun reports what would happen without writing or removing files.
	DryRun bool

	// Journal records written photos under RunID. Not used for dry runs.
	Journal Journal
	RunID   string

	Observer Observer

	// TimeSources overrides DefaultTimeSources.
	TimeSources []TimeSource
}

// Intake drives photos through extraction and normalization one at a time
// and removes the originals afterwards if configured to.
type Intake struct {
	logger     hclog.Logger
	cfg        *Config
	extractor  *Extractor
	normalizer *Normalizer
	opts       IntakeOptions
}

// NewIntake returns an Intake for a validated configuration.
func NewIntake(logger hclog.Logger, cfg *Config, opts IntakeOptions) *Intake {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	sources := opts.TimeSources
	if sources == nil {
		sources = DefaultTimeSources()
	}
	return &Intake{
		logger:     logger,
		cfg:        cfg,
		extractor:  NewExtractor(logger.Named("metadata"), sources, cfg.RotatePhotos),
		normalizer: NewNormalizer(logger.Named("normalize"), cfg),
		opts:       opts,
	}
}

// Run processes files in order. A failing photo is logged and skipped; it
// does not stop the run. Cancelling ctx stops the run after the photo in
// flight.
func (in *Intake) Run(ctx context.Context, files iter.Seq[string]) *Report {
	report := &Report{
		RunID:     in.opts.RunID,
		DryRun:    in.opts.DryRun,
		StartedAt: time.Now(),
	}

	for path := range files {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}

		o := in.process(path)
		report.Outcomes = append(report.Outcomes, o)
		if o.State != StateFailed {
			fmt.Fprintln(in.opts.Out, o.Line())
		}
		if in.opts.Observer != nil {
			in.opts.Observer.OnFileDone(o)
		}
	}

	report.FinishedAt = time.Now()
	return report
}

func (in *Intake) process(path string) *Outcome {
	o := &Outcome{Source: path, State: StateDiscovered, DryRun: in.opts.DryRun}

	rec, err := in.extractor.Extract(path)
	if err != nil {
		in.logger.Error("skipping file", "path", path, "error", err)
		o.State, o.Err = StateFailed, err
		return o
	}
	o.Record, o.State = rec, StateMetadataExtracted

	dst := in.normalizer.Destination(rec)
	if in.opts.DryRun {
		in.logger.Debug("dry run, not writing", "path", path, "destination", dst)
		o.State = StateOriginalKept
		return o
	}

	if sameFile(path, dst) {
		in.logger.Warn("photo is already in place, leaving it alone", "path", path)
		o.State = StateOriginalKept
		return o
	}

	if err := in.normalizer.Apply(path, dst, rec.Rotation); err != nil {
		in.logger.Error("failed to write photo", "path", path, "destination", dst, "error", err)
		o.State, o.Err = StateFailed, err
		return o
	}
	o.State = StateNormalized

	if in.cfg.KeepOriginals {
		o.State = StateOriginalKept
	} else if err := in.removeOriginal(path, dst); err != nil {
		in.logger.Error("leaving original in place", "path", path, "error", err)
		o.State, o.Err = StateOriginalKept, err
	} else {
		o.State = StateOriginalRemoved
	}

	in.record(o)
	return o
}

// removeOriginal deletes src once dst is confirmed to be in the archive.
func (in *Intake) removeOriginal(src, dst string) error {
	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("%q: destination %q missing: %v: %w", src, dst, err, ErrSourceRemoval)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%q: destination %q is not a regular file: %w", src, dst, ErrSourceRemoval)
	}
	if sameFile(src, dst) {
		return fmt.Errorf("%q: destination %q is the original: %w", src, dst, ErrSourceRemoval)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("%q: %v: %w", src, err, ErrSourceRemoval)
	}
	in.logger.Debug("removed original", "path", src)
	return nil
}

// sameFile reports whether a and b name the same file, either by path or,
// when both exist, by identity.
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, err := os.Stat(a)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}

func (in *Intake) record(o *Outcome) {
	if in.opts.Journal == nil {
		return
	}
	err := in.opts.Journal.Record(in.opts.RunID, &HistoryEntry{
		Source:        o.Source,
		Destination:   o.Record.DestinationPath,
		EffectiveTime: o.Record.EffectiveTime,
		TimeSource:    o.Record.TimeSource,
		Rotation:      o.Record.Rotation,
		SourceRemoved: o.State == StateOriginalRemoved,
		ImportedAt:    time.Now(),
	})
	if err != nil {
		in.logger.Warn("failed to record import in history", "path", o.Source, "error", err)
	}
}
