package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parchment-labs/docworker/internal/models"
)

func TestComputeRanges_FrontSectionPlusBreaks(t *testing.T) {
	breaks := []models.PageBreak{
		{ID: "b1", PageIndex: 3},
		{ID: "b2", PageIndex: 7},
	}
	ranges := computeRanges(breaks, 10)

	require.Len(t, ranges, 3)
	require.Equal(t, 0, ranges[0].from)
	require.Equal(t, 3, ranges[0].to)
	require.Nil(t, ranges[0].brk)

	require.Equal(t, 3, ranges[1].from)
	require.Equal(t, 7, ranges[1].to)
	require.Equal(t, "b1", ranges[1].brk.ID)

	require.Equal(t, 7, ranges[2].from)
	require.Equal(t, 10, ranges[2].to)
	require.Equal(t, "b2", ranges[2].brk.ID)
}

func TestComputeRanges_NoFrontSectionWhenFirstBreakAtZero(t *testing.T) {
	breaks := []models.PageBreak{
		{ID: "b1", PageIndex: 0},
		{ID: "b2", PageIndex: 5},
	}
	ranges := computeRanges(breaks, 8)

	require.Len(t, ranges, 2)
	require.Equal(t, 0, ranges[0].from)
	require.Equal(t, 5, ranges[0].to)
	require.Equal(t, "b1", ranges[0].brk.ID)
	require.Equal(t, 5, ranges[1].from)
	require.Equal(t, 8, ranges[1].to)
}

func TestComputeRanges_PartitionIsContiguousCover(t *testing.T) {
	breaks := []models.PageBreak{
		{ID: "b1", PageIndex: 2},
		{ID: "b2", PageIndex: 4},
		{ID: "b3", PageIndex: 6},
	}
	ranges := computeRanges(breaks, 9)

	total := 0
	for i, r := range ranges {
		if i > 0 {
			require.Equal(t, ranges[i-1].to, r.from, "ranges must be contiguous")
		}
		total += r.to - r.from
	}
	require.Equal(t, 9, total)
	require.Equal(t, 9, ranges[len(ranges)-1].to)
}
