package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parchment-labs/docworker/internal/models"
)

func TestResolveRotationConflicts_LastValueWins(t *testing.T) {
	rotations := []models.Rotation{
		{ID: "a", PageIndex: 2, Rotation: 90},
		{ID: "b", PageIndex: 0, Rotation: 180},
		{ID: "c", PageIndex: 2, Rotation: 270},
	}
	byPage, order, conflicts := resolveRotationConflicts(rotations)

	require.Equal(t, 270, byPage[2].Rotation)
	require.Equal(t, []int{0, 2}, order)
	require.Len(t, conflicts, 1)
}

func TestResolveRotationConflicts_NoConflictsWhenDistinctPages(t *testing.T) {
	rotations := []models.Rotation{
		{ID: "a", PageIndex: 0, Rotation: 90},
		{ID: "b", PageIndex: 1, Rotation: 180},
	}
	_, order, conflicts := resolveRotationConflicts(rotations)
	require.Empty(t, conflicts)
	require.Equal(t, []int{0, 1}, order)
}
