package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/parchment-labs/docworker/internal/metadatastore"
	"github.com/parchment-labs/docworker/internal/models"
	"github.com/parchment-labs/docworker/internal/pdfengine"
	"github.com/parchment-labs/docworker/pkg/logger"
)

// RunRedactions stamps an opaque block over each page that has pending
// redactions, then calls the engine's RasterizePage on it and lists it in
// RasterizedPages. Neither engine call removes the page's text from the
// content stream (see pdfengine.RasterizePage). Pages with zero valid
// redactions are untouched. An individual mark-applied failure does not fail
// the stage.
func RunRedactions(ctx context.Context, doc *pdfengine.Document, redactions []models.Redaction, store *metadatastore.Store) (RedactionResult, error) {
	result := RedactionResult{}
	if len(redactions) == 0 {
		return result, nil
	}

	byPage := make(map[int][]models.Redaction)
	for _, r := range redactions {
		byPage[r.PageNumber] = append(byPage[r.PageNumber], r)
	}

	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	for _, page0 := range pages {
		page1 := page0 + 1
		w, h, err := doc.PageDimensions(page1)
		if err != nil {
			return result, fmt.Errorf("%w: %v", ErrEngineError, err)
		}

		rects := make([]pdfengine.RedactionRect, 0, len(byPage[page0]))
		applied := byPage[page0]
		for _, r := range applied {
			rects = append(rects, clampAndRotate(r, w, h))
		}

		if err := doc.ApplyRedactions(page1, rects); err != nil {
			return result, fmt.Errorf("%w: %v", ErrEngineError, err)
		}
		if err := doc.RasterizePage(page1, 2.0); err != nil {
			return result, fmt.Errorf("%w: %v", ErrEngineError, err)
		}

		result.PagesTouched = append(result.PagesTouched, page0)
		result.RasterizedPages = append(result.RasterizedPages, page0)

		for _, r := range applied {
			if err := store.MarkRedactionApplied(ctx, r.ID); err != nil {
				logger.Errorf("redaction: mark applied failed for %s: %v", r.ID, err)
				continue
			}
			result.AppliedCount++
		}
	}

	return result, nil
}

// clampAndRotate maps a redaction's rectangle into the page's media box,
// applying a rotation around the page center when DrawOrientation is
// nonzero (90/180/270).
func clampAndRotate(r models.Redaction, pageW, pageH float64) pdfengine.RedactionRect {
	x, y, w, hh := r.X, r.Y, r.W, r.H
	cx, cy := pageW/2, pageH/2

	switch r.DrawOrientation {
	case 90:
		nx := cx - (y+hh-cy)
		ny := cy + (x - cx)
		x, y, w, hh = nx, ny, hh, w
	case 180:
		x = pageW - x - w
		y = pageH - y - hh
	case 270:
		nx := cx + (y - cy)
		ny := cy - (x + w - cx)
		x, y, w, hh = nx, ny, hh, w
	}

	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x+w > pageW {
		w = pageW - x
	}
	if y+hh > pageH {
		hh = pageH - y
	}

	return pdfengine.RedactionRect{X: x, Y: y, W: w, H: hh, ReplacementText: r.Text}
}
