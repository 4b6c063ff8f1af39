package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/parchment-labs/docworker/internal/metadatastore"
	"github.com/parchment-labs/docworker/internal/models"
	"github.com/parchment-labs/docworker/internal/objectstore"
	"github.com/parchment-labs/docworker/internal/pdfengine"
)

type splitRange struct {
	from, to int // 0-based, inclusive..exclusive: [from, to)
	brk      *models.PageBreak
}

// RunSplit partitions the final page-edited PDF at the declared breaks and
// emits derived documents. Strategy is chosen by inspection: rename_only
// when exactly one break exists at page 0, full_split otherwise.
func RunSplit(
	ctx context.Context,
	finalBytes []byte,
	finalPageCount int,
	breaks []models.PageBreak,
	source models.Document,
	store *metadatastore.Store,
	objStore *objectstore.Store,
) (SplitResult, error) {
	result := SplitResult{Strategy: "none"}
	if len(breaks) == 0 {
		return result, nil
	}

	sorted := make([]models.PageBreak, len(breaks))
	copy(sorted, breaks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PageIndex < sorted[j].PageIndex })

	if len(sorted) == 1 && sorted[0].PageIndex == 0 {
		result.Strategy = "rename_only"
		brk := sorted[0]
		if err := store.CommitRenameOnly(ctx, source.ID, brk.ID, brk.DocumentTypeID, brk.DocumentDate, brk.Comments); err != nil {
			return result, fmt.Errorf("%w: %v", ErrMetaError, err)
		}
		return result, nil
	}

	result.Strategy = "full_split"
	ranges := computeRanges(sorted, finalPageCount)

	derivedInputs := make([]metadatastore.DerivedDocumentInput, 0, len(ranges))
	breakResults := make(map[string]int64)
	keysWritten := make([]string, 0, len(ranges))

	for _, rng := range ranges {
		pageBytes, err := pdfengine.ExtractPageRange(finalBytes, rng.from+1, rng.to)
		if err != nil {
			return result, fmt.Errorf("%w: %v", ErrEngineError, err)
		}

		newID, err := store.NextDocumentID(ctx)
		if err != nil {
			return result, fmt.Errorf("%w: %v", ErrMetaError, err)
		}

		docType := source.DocTypeManualID
		var date = source.DocumentDate
		comments := source.Comments
		if rng.brk != nil {
			docType = rng.brk.DocumentTypeID
			date = rng.brk.DocumentDate
			comments = rng.brk.Comments
		}

		key := objectstore.Key(objectstore.StageProcessing, source.PathFragment, newID)
		if err := objStore.Put(ctx, key, pageBytes, "application/pdf"); err != nil {
			return result, fmt.Errorf("%w: %v", ErrStoreError, err)
		}
		keysWritten = append(keysWritten, key)

		prodKey := objectstore.Key(objectstore.StageProduction, source.PathFragment, newID)
		if err := objStore.Put(ctx, prodKey, pageBytes, "application/pdf"); err != nil {
			return result, fmt.Errorf("%w: %v", ErrStoreError, err)
		}

		derivedInputs = append(derivedInputs, metadatastore.DerivedDocumentInput{
			ID:               newID,
			Source:           source,
			DocTypeManualID:  docType,
			PageCount:        rng.to - rng.from,
			DocumentDate:     date,
			Comments:         comments,
			SplitFromImageID: source.ID,
		})

		if rng.brk != nil {
			breakResults[rng.brk.ID] = newID
		}
		result.DerivedDocumentIDs = append(result.DerivedDocumentIDs, newID)
	}

	if _, err := store.CommitSplit(ctx, source.ID, derivedInputs, breakResults); err != nil {
		// Object-store writes already landed under keys built from freshly
		// allocated ids; a retried invocation allocates new ids, so these
		// objects are left as orphans for a separate sweeper.
		return result, fmt.Errorf("%w: %v", ErrMetaError, err)
	}
	result.SourceObsolete = len(derivedInputs) > 0

	return result, nil
}

// computeRanges partitions [0, pageCount) per the full_split rule: an
// optional front section before the first break, then one range per break
// running to the next break (or end of document).
func computeRanges(sortedBreaks []models.PageBreak, pageCount int) []splitRange {
	var ranges []splitRange
	if sortedBreaks[0].PageIndex > 0 {
		ranges = append(ranges, splitRange{from: 0, to: sortedBreaks[0].PageIndex})
	}
	for i, brk := range sortedBreaks {
		next := pageCount
		if i+1 < len(sortedBreaks) {
			next = sortedBreaks[i+1].PageIndex
		}
		b := brk
		ranges = append(ranges, splitRange{from: b.PageIndex, to: next, brk: &b})
	}
	return ranges
}
