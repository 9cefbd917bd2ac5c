package core

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
)

// exifFields describes the EXIF block written into a test JPEG. Zero values
// leave the tag out.
type exifFields struct {
	orientation int
	original    string
	digitized   string
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32
}

// buildTIFF returns a little endian TIFF structure holding the fields, or
// nil if there is nothing to write.
func buildTIFF(f exifFields) []byte {
	var ifd0, exifIFD []ifdEntry
	var strs []string

	if f.orientation != 0 {
		ifd0 = append(ifd0, ifdEntry{tag: 0x0112, typ: 3, count: 1, value: uint32(f.orientation)})
	}
	if f.original != "" {
		exifIFD = append(exifIFD, ifdEntry{tag: 0x9003, typ: 2, count: uint32(len(f.original) + 1)})
		strs = append(strs, f.original)
	}
	if f.digitized != "" {
		exifIFD = append(exifIFD, ifdEntry{tag: 0x9004, typ: 2, count: uint32(len(f.digitized) + 1)})
		strs = append(strs, f.digitized)
	}
	if len(exifIFD) > 0 {
		ifd0 = append(ifd0, ifdEntry{tag: 0x8769, typ: 4, count: 1})
	}
	if len(ifd0) == 0 {
		return nil
	}

	ifdSize := func(n int) uint32 { return uint32(2 + 12*n + 4) }
	ifd0Off := uint32(8)
	exifOff := ifd0Off + ifdSize(len(ifd0))
	dataOff := exifOff
	if len(exifIFD) > 0 {
		dataOff += ifdSize(len(exifIFD))
	}

	// Point the string entries into the data area.
	off := dataOff
	for i := range exifIFD {
		exifIFD[i].value = off
		off += exifIFD[i].count
	}
	for i := range ifd0 {
		if ifd0[i].tag == 0x8769 {
			ifd0[i].value = exifOff
		}
	}

	le := binary.LittleEndian
	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, le, uint16(42))
	binary.Write(&buf, le, ifd0Off)

	writeIFD := func(entries []ifdEntry) {
		binary.Write(&buf, le, uint16(len(entries)))
		for _, e := range entries {
			binary.Write(&buf, le, e.tag)
			binary.Write(&buf, le, e.typ)
			binary.Write(&buf, le, e.count)
			if e.typ == 3 {
				binary.Write(&buf, le, uint16(e.value))
				binary.Write(&buf, le, uint16(0))
			} else {
				binary.Write(&buf, le, e.value)
			}
		}
		binary.Write(&buf, le, uint32(0))
	}
	writeIFD(ifd0)
	if len(exifIFD) > 0 {
		writeIFD(exifIFD)
	}
	for _, s := range strs {
		buf.WriteString(s)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// testImage returns a w x h image where every pixel has a distinct color.
func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	return img
}

// writeJPEG writes a w x h JPEG carrying the given EXIF fields.
func writeJPEG(t *testing.T, path string, w, h int, f exifFields) {
	t.Helper()

	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, testImage(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	data := enc.Bytes()

	if tiff := buildTIFF(f); tiff != nil {
		var app1 bytes.Buffer
		app1.Write([]byte{0xFF, 0xE1})
		binary.Write(&app1, binary.BigEndian, uint16(2+6+len(tiff)))
		app1.WriteString("Exif\x00\x00")
		app1.Write(tiff)

		var out bytes.Buffer
		out.Write(data[:2])
		out.Write(app1.Bytes())
		out.Write(data[2:])
		data = out.Bytes()
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %q: %v", path, err)
	}
}

// writePNG writes a w x h PNG without any metadata.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write %q: %v", path, err)
	}
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %q: %v", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("failed to decode %q: %v", path, err)
	}
	return cfg.Width, cfg.Height
}

// captureLogger returns a logger writing everything to the returned buffer.
func captureLogger() (hclog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{
		Name:              "test",
		Level:             hclog.Trace,
		Output:            &buf,
		IndependentLevels: true,
	})
	return logger, &buf
}

// testConfig returns a valid configuration with fresh source and
// destination directories.
func testConfig(t *testing.T) *Config {
	t.Helper()

	root := t.TempDir()
	cfg := &Config{
		SourceDir:         filepath.Join(root, "src"),
		DestinationDir:    filepath.Join(root, "dst"),
		TempDir:           filepath.Join(root, "tmp"),
		HistoryFile:       filepath.Join(root, "history.db"),
		ImageExtensions:   defaultImageExtensions,
		RotatePhotos:      true,
		AddTimestamp:      true,
		LowercaseFilename: true,
		KeepOriginals:     true,
	}
	for _, dir := range []string{cfg.SourceDir, cfg.DestinationDir, cfg.TempDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %q: %v", dir, err)
		}
	}
	return cfg
}
