// Package editloader reads the four pending edit collections for one
// document, validates each row, and normalizes them into a typed bundle. It
// is the single point where untyped rows become typed values; nothing
// downstream re-validates page indices or rotation angles.
package editloader

import (
	"context"
	"fmt"

	"github.com/parchment-labs/docworker/internal/models"
)

// EditStore is the narrow slice of the metadata adapter the loader needs.
// *metadatastore.Store satisfies this implicitly; tests substitute a fake.
type EditStore interface {
	ListRedactions(ctx context.Context, documentID int64, pending bool) ([]models.Redaction, error)
	ListRotations(ctx context.Context, documentID int64) ([]models.Rotation, error)
	ListDeletions(ctx context.Context, documentID int64) ([]models.PageDeletion, error)
	ListBreaks(ctx context.Context, documentID int64) ([]models.PageBreak, error)
	InsertPendingChange(ctx context.Context, documentID int64) error
}

// SkipReason explains why a row was excluded from the bundle.
type SkipReason struct {
	Kind   string // "redaction" | "rotation" | "deletion" | "break"
	ID     string
	Reason string
}

// Bundle is the normalized, validated set of edits for one document.
type Bundle struct {
	Redactions []models.Redaction
	Rotations  []models.Rotation
	Deletions  []models.PageDeletion
	Breaks     []models.PageBreak
	Skipped    []SkipReason
}

// Empty reports whether the bundle carries no actionable edits.
func (b Bundle) Empty() bool {
	return len(b.Redactions) == 0 && len(b.Rotations) == 0 && len(b.Deletions) == 0 && len(b.Breaks) == 0
}

// Load reads all pending edits for documentID and validates each row against
// pageCount (the document's page count at load time). The four collections
// are read by four separate queries; they are not taken from one snapshot.
// Invalid rows are skipped with a recorded reason, never fatal.
func Load(ctx context.Context, store EditStore, documentID int64, pageCount int) (Bundle, error) {
	var b Bundle

	redactions, err := store.ListRedactions(ctx, documentID, true)
	if err != nil {
		return b, fmt.Errorf("editloader: list redactions: %w", err)
	}
	rotations, err := store.ListRotations(ctx, documentID)
	if err != nil {
		return b, fmt.Errorf("editloader: list rotations: %w", err)
	}
	deletions, err := store.ListDeletions(ctx, documentID)
	if err != nil {
		return b, fmt.Errorf("editloader: list deletions: %w", err)
	}
	breaks, err := store.ListBreaks(ctx, documentID)
	if err != nil {
		return b, fmt.Errorf("editloader: list breaks: %w", err)
	}

	for _, r := range redactions {
		if reason, ok := validateRedaction(r, pageCount); !ok {
			b.Skipped = append(b.Skipped, SkipReason{Kind: "redaction", ID: r.ID, Reason: reason})
			continue
		}
		b.Redactions = append(b.Redactions, r)
	}
	for _, r := range rotations {
		if reason, ok := validateRotation(r, pageCount); !ok {
			b.Skipped = append(b.Skipped, SkipReason{Kind: "rotation", ID: r.ID, Reason: reason})
			continue
		}
		b.Rotations = append(b.Rotations, r)
	}
	for _, del := range deletions {
		if reason, ok := validateIndex(del.PageIndex, pageCount); !ok {
			b.Skipped = append(b.Skipped, SkipReason{Kind: "deletion", ID: del.ID, Reason: reason})
			continue
		}
		b.Deletions = append(b.Deletions, del)
	}
	for _, brk := range breaks {
		if reason, ok := validateIndex(brk.PageIndex, pageCount); !ok {
			b.Skipped = append(b.Skipped, SkipReason{Kind: "break", ID: brk.ID, Reason: reason})
			continue
		}
		if brk.DocumentTypeID == 0 {
			b.Skipped = append(b.Skipped, SkipReason{Kind: "break", ID: brk.ID, Reason: "missing documentTypeId"})
			continue
		}
		b.Breaks = append(b.Breaks, brk)
	}

	if !b.Empty() {
		if err := store.InsertPendingChange(ctx, documentID); err != nil {
			return b, fmt.Errorf("editloader: mark pending change: %w", err)
		}
	}

	return b, nil
}

// ValidateIndex reports whether a 0-based page index falls within
// [0,pageCount). Exported so callers that build models.PageBreak rows
// outside the normal edit-load path (an inline split_document invocation)
// can apply the same bounds check this loader runs internally.
func ValidateIndex(idx, pageCount int) (string, bool) {
	return validateIndex(idx, pageCount)
}

func validateIndex(idx, pageCount int) (string, bool) {
	if idx < 0 || idx >= pageCount {
		return fmt.Sprintf("page index %d out of range [0,%d)", idx, pageCount), false
	}
	return "", true
}

func validateRotation(r models.Rotation, pageCount int) (string, bool) {
	if reason, ok := validateIndex(r.PageIndex, pageCount); !ok {
		return reason, false
	}
	switch r.Rotation {
	case 0, 90, 180, 270:
		return "", true
	default:
		return fmt.Sprintf("rotation angle %d not in {0,90,180,270}", r.Rotation), false
	}
}

func validateRedaction(r models.Redaction, pageCount int) (string, bool) {
	if reason, ok := validateIndex(r.PageNumber, pageCount); !ok {
		return reason, false
	}
	if r.W <= 0 || r.H <= 0 {
		return "redaction dimensions must be strictly positive", false
	}
	if r.X < 0 || r.Y < 0 {
		return "redaction origin must be non-negative", false
	}
	switch r.DrawOrientation {
	case 0, 90, 180, 270:
	default:
		return fmt.Sprintf("draw orientation %d not in {0,90,180,270}", r.DrawOrientation), false
	}
	return "", true
}
