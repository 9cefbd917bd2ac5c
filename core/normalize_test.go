package core

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/hashicorp/go-hclog"
)

func TestDestinationName(t *testing.T) {
	taken := localTime("2009-04-22 17:25:35")

	tests := []struct {
		name         string
		base         string
		addTimestamp bool
		lowercase    bool
		want         string
	}{
		{"lowercase", "IMG_0533.JPG", true, true, "2009-04-22T17.25.35_img_0533.jpg"},
		{"preserve case", "IMG_0533.JPG", true, false, "2009-04-22T17.25.35_IMG_0533.JPG"},
		{"no timestamp", "IMG_0533.JPG", false, true, "img_0533.jpg"},
		{"untouched", "IMG_0533.JPG", false, false, "IMG_0533.JPG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DestinationName(tt.base, taken, tt.addTimestamp, tt.lowercase); got != tt.want {
				t.Errorf("DestinationName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizer_DestinationIsSetOnce(t *testing.T) {
	cfg := testConfig(t)
	n := NewNormalizer(hclog.NewNullLogger(), cfg)
	rec := &FileRecord{BaseName: "IMG_0533.JPG", EffectiveTime: localTime("2009-04-22 17:25:35")}

	want := filepath.Join(cfg.DestinationDir, "2009-04-22T17.25.35_img_0533.jpg")
	if got := n.Destination(rec); got != want {
		t.Fatalf("Destination() = %q, want %q", got, want)
	}

	rec.EffectiveTime = localTime("2020-01-01 00:00:00")
	if got := n.Destination(rec); got != want {
		t.Errorf("Destination() recomputed to %q", got)
	}
}

func TestNormalizer_ApplyCopiesBytes(t *testing.T) {
	cfg := testConfig(t)
	n := NewNormalizer(hclog.NewNullLogger(), cfg)

	src := filepath.Join(cfg.SourceDir, "IMG_0001.JPG")
	writeJPEG(t, src, 16, 8, exifFields{original: "2009:04:22 17:25:35", orientation: 1})
	dst := filepath.Join(cfg.DestinationDir, "copy.jpg")

	if err := n.Apply(src, dst, RotationNone); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want, _ := os.ReadFile(src)
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("failed to read destination: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("destination is not byte-identical to the source")
	}

	// Overwrites silently.
	if err := n.Apply(src, dst, RotationNone); err != nil {
		t.Fatalf("Apply() over existing destination error = %v", err)
	}
}

func TestNormalizer_ApplyRotates(t *testing.T) {
	cfg := testConfig(t)
	n := NewNormalizer(hclog.NewNullLogger(), cfg)

	src := filepath.Join(cfg.SourceDir, "IMG_0002.JPG")
	writeJPEG(t, src, 40, 20, exifFields{orientation: 6})
	before, _ := os.ReadFile(src)

	for _, r := range []Rotation{RotationCCW90, RotationCW90} {
		dst := filepath.Join(cfg.DestinationDir, r.String()+".jpg")
		if err := n.Apply(src, dst, r); err != nil {
			t.Fatalf("Apply(%v) error = %v", r, err)
		}
		if w, h := imageSize(t, dst); w != 20 || h != 40 {
			t.Errorf("Apply(%v) size = %dx%d, want 20x40", r, w, h)
		}
	}

	after, _ := os.ReadFile(src)
	if !bytes.Equal(before, after) {
		t.Error("source was modified")
	}

	entries, err := os.ReadDir(cfg.TempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch files left behind: %v", entries)
	}
}

func TestNormalizer_ApplyRotationDirection(t *testing.T) {
	cfg := testConfig(t)
	n := NewNormalizer(hclog.NewNullLogger(), cfg)

	// PNG keeps pixels exact so corners can be compared.
	src := filepath.Join(cfg.SourceDir, "corners.png")
	writePNG(t, src, 4, 2)
	in := testImage(4, 2)

	tests := []struct {
		rotation Rotation
		// Source pixel that must end up in the top-left corner.
		from image.Point
	}{
		{RotationCCW90, image.Pt(3, 0)},
		{RotationCW90, image.Pt(0, 1)},
	}

	for _, tt := range tests {
		dst := filepath.Join(cfg.DestinationDir, tt.rotation.String()+".png")
		if err := n.Apply(src, dst, tt.rotation); err != nil {
			t.Fatalf("Apply(%v) error = %v", tt.rotation, err)
		}

		out, err := imaging.Open(dst)
		if err != nil {
			t.Fatalf("failed to open %q: %v", dst, err)
		}
		if b := out.Bounds(); b.Dx() != 2 || b.Dy() != 4 {
			t.Errorf("Apply(%v) size = %dx%d, want 2x4", tt.rotation, b.Dx(), b.Dy())
		}

		gr, gg, gb, _ := out.At(0, 0).RGBA()
		wr, wg, wb, _ := in.At(tt.from.X, tt.from.Y).RGBA()
		if gr != wr || gg != wg || gb != wb {
			t.Errorf("Apply(%v) top-left pixel came from the wrong corner", tt.rotation)
		}
	}
}

func TestNormalizer_ApplyWriteError(t *testing.T) {
	cfg := testConfig(t)
	n := NewNormalizer(hclog.NewNullLogger(), cfg)

	src := filepath.Join(cfg.SourceDir, "IMG_0003.JPG")
	writeJPEG(t, src, 16, 8, exifFields{})
	dst := filepath.Join(cfg.DestinationDir, "gone", "IMG_0003.JPG")

	for _, r := range []Rotation{RotationNone, RotationCW90} {
		if err := n.Apply(src, dst, r); !errors.Is(err, ErrWrite) {
			t.Errorf("Apply(%v) error = %v, want ErrWrite", r, err)
		}
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source is gone: %v", err)
	}
}

func TestNormalizer_ApplyKeepsMode(t *testing.T) {
	cfg := testConfig(t)
	n := NewNormalizer(hclog.NewNullLogger(), cfg)

	src := filepath.Join(cfg.SourceDir, "IMG_0004.JPG")
	writeJPEG(t, src, 16, 8, exifFields{})
	if err := os.Chmod(src, 0644); err != nil {
		t.Fatalf("failed to chmod: %v", err)
	}

	for _, r := range []Rotation{RotationNone, RotationCW90} {
		dst := filepath.Join(cfg.DestinationDir, r.String()+".jpg")
		if err := n.Apply(src, dst, r); err != nil {
			t.Fatalf("Apply(%v) error = %v", r, err)
		}
		info, err := os.Stat(dst)
		if err != nil {
			t.Fatalf("failed to stat %q: %v", dst, err)
		}
		if got := info.Mode().Perm(); got != 0644 {
			t.Errorf("Apply(%v) mode = %v, want %v", r, got, os.FileMode(0644))
		}
	}
}

func TestCopyFile_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		src  string
		dst  string
	}{
		{"empty source", "", filepath.Join(tmpDir, "dst.txt")},
		{"empty destination", filepath.Join(tmpDir, "src.txt"), ""},
		{"nonexistent source", filepath.Join(tmpDir, "nonexistent.txt"), filepath.Join(tmpDir, "dst.txt")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := copyFile(tt.src, tt.dst); err == nil {
				t.Error("copyFile() expected an error")
			}
		})
	}
}
