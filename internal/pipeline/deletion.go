package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/parchment-labs/docworker/internal/metadatastore"
	"github.com/parchment-labs/docworker/internal/models"
	"github.com/parchment-labs/docworker/internal/pdfengine"
)

// RunDeletions removes pages in descending index order so earlier indices
// stay valid across the batch. If the deletion set covers every page, the
// stage short-circuits: no PDF mutation occurs and the caller must tombstone
// the document instead of writing it back.
func RunDeletions(ctx context.Context, doc *pdfengine.Document, deletions []models.PageDeletion, currentPageCount int, store *metadatastore.Store) (DeletionResult, error) {
	result := DeletionResult{FinalPageCount: currentPageCount}
	if len(deletions) == 0 {
		return result, nil
	}

	seen := make(map[int]bool)
	var ids []string
	for _, d := range deletions {
		if !seen[d.PageIndex] {
			seen[d.PageIndex] = true
			result.DeletedIndices = append(result.DeletedIndices, d.PageIndex)
		}
		ids = append(ids, d.ID)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(result.DeletedIndices)))

	if len(result.DeletedIndices) == currentPageCount {
		result.DocumentDeleted = true
		result.FinalPageCount = 0
		if err := store.MarkDeletionsProcessed(ctx, ids); err != nil {
			return result, fmt.Errorf("%w: %v", ErrMetaError, err)
		}
		return result, nil
	}

	for _, page0 := range result.DeletedIndices {
		if err := doc.DeletePage(page0 + 1); err != nil {
			return result, fmt.Errorf("%w: %v", ErrEngineError, err)
		}
	}

	final, err := doc.PageCount()
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrEngineError, err)
	}
	result.FinalPageCount = final

	if err := store.MarkDeletionsProcessed(ctx, ids); err != nil {
		return result, fmt.Errorf("%w: %v", ErrMetaError, err)
	}

	return result, nil
}
