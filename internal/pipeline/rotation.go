package pipeline

import (
	"fmt"
	"sort"

	"github.com/parchment-labs/docworker/internal/models"
	"github.com/parchment-labs/docworker/internal/pdfengine"
)

// RunRotations sets each page's absolute rotation. Multiple rotations for
// the same page are a reported inconsistency, resolved by using the last
// one in input order; never silently discarded.
func RunRotations(doc *pdfengine.Document, rotations []models.Rotation) (RotationResult, error) {
	result := RotationResult{}
	if len(rotations) == 0 {
		return result, nil
	}

	resolved, order, conflicts := resolveRotationConflicts(rotations)
	result.Conflicts = conflicts

	for _, page0 := range order {
		r := resolved[page0]
		if err := doc.SetPageRotation(page0+1, r.Rotation); err != nil {
			return result, fmt.Errorf("%w: %v", ErrEngineError, err)
		}
		result.AppliedCount++
	}

	return result, nil
}

// resolveRotationConflicts collapses the input to one rotation per page,
// keeping the last rotation seen for each page and reporting every
// duplicate rather than discarding it silently.
func resolveRotationConflicts(rotations []models.Rotation) (byPage map[int]models.Rotation, order []int, conflicts []string) {
	byPage = make(map[int]models.Rotation)
	for _, r := range rotations {
		if _, seen := byPage[r.PageIndex]; !seen {
			order = append(order, r.PageIndex)
		} else {
			conflicts = append(conflicts,
				fmt.Sprintf("page %d: duplicate rotation, using last value %d", r.PageIndex, r.Rotation))
		}
		byPage[r.PageIndex] = r
	}
	sort.Ints(order)
	return byPage, order, conflicts
}
