package editloader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parchment-labs/docworker/internal/models"
)

type fakeStore struct {
	redactions []models.Redaction
	rotations  []models.Rotation
	deletions  []models.PageDeletion
	breaks     []models.PageBreak

	pendingMarks []int64
}

func (f *fakeStore) ListRedactions(ctx context.Context, documentID int64, pending bool) ([]models.Redaction, error) {
	return f.redactions, nil
}
func (f *fakeStore) ListRotations(ctx context.Context, documentID int64) ([]models.Rotation, error) {
	return f.rotations, nil
}
func (f *fakeStore) ListDeletions(ctx context.Context, documentID int64) ([]models.PageDeletion, error) {
	return f.deletions, nil
}
func (f *fakeStore) ListBreaks(ctx context.Context, documentID int64) ([]models.PageBreak, error) {
	return f.breaks, nil
}
func (f *fakeStore) InsertPendingChange(ctx context.Context, documentID int64) error {
	f.pendingMarks = append(f.pendingMarks, documentID)
	return nil
}

func TestLoad_SkipsOutOfRangeRows(t *testing.T) {
	store := fakeStore{
		redactions: []models.Redaction{
			{ID: "r1", PageNumber: 1, X: 10, Y: 10, W: 50, H: 20},
			{ID: "r2", PageNumber: 9, X: 10, Y: 10, W: 50, H: 20}, // out of range
		},
		rotations: []models.Rotation{
			{ID: "rot1", PageIndex: 0, Rotation: 90},
			{ID: "rot2", PageIndex: 0, Rotation: 45}, // invalid angle
		},
	}

	bundle, err := Load(context.Background(), &store, 1, 3)
	require.NoError(t, err)
	require.Len(t, bundle.Redactions, 1)
	require.Equal(t, "r1", bundle.Redactions[0].ID)
	require.Len(t, bundle.Rotations, 1)
	require.Equal(t, "rot1", bundle.Rotations[0].ID)
	require.Len(t, bundle.Skipped, 2)
	require.Equal(t, []int64{1}, store.pendingMarks)
}

func TestLoad_SkipsNonPositiveRedactionDimensions(t *testing.T) {
	store := fakeStore{
		redactions: []models.Redaction{
			{ID: "r1", PageNumber: 0, X: 0, Y: 0, W: 0, H: 20},
		},
	}
	bundle, err := Load(context.Background(), &store, 1, 3)
	require.NoError(t, err)
	require.Empty(t, bundle.Redactions)
	require.Len(t, bundle.Skipped, 1)
	require.Equal(t, "redaction", bundle.Skipped[0].Kind)
	require.Empty(t, store.pendingMarks, "an all-skipped load must not mark a pending change")
}

func TestLoad_SkipsBreakMissingDocumentType(t *testing.T) {
	store := fakeStore{
		breaks: []models.PageBreak{
			{ID: "b1", PageIndex: 1},
		},
	}
	bundle, err := Load(context.Background(), &store, 1, 5)
	require.NoError(t, err)
	require.Empty(t, bundle.Breaks)
	require.Len(t, bundle.Skipped, 1)
}

func TestBundle_Empty(t *testing.T) {
	var b Bundle
	require.True(t, b.Empty())
	b.Rotations = append(b.Rotations, models.Rotation{})
	require.False(t, b.Empty())
}
