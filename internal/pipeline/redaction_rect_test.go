package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parchment-labs/docworker/internal/models"
)

func TestClampAndRotate_NoRotationClampsIntoMediaBox(t *testing.T) {
	r := models.Redaction{X: 550, Y: 10, W: 100, H: 20}
	rect := clampAndRotate(r, 600, 800)
	require.LessOrEqual(t, rect.X+rect.W, 600.0)
}

func TestClampAndRotate_NegativeOriginClampedToZero(t *testing.T) {
	r := models.Redaction{X: -5, Y: -5, W: 50, H: 20}
	rect := clampAndRotate(r, 600, 800)
	require.GreaterOrEqual(t, rect.X, 0.0)
	require.GreaterOrEqual(t, rect.Y, 0.0)
}

func TestClampAndRotate_180DegreesMirrorsAroundCenter(t *testing.T) {
	r := models.Redaction{X: 0, Y: 0, W: 50, H: 20, DrawOrientation: 180}
	rect := clampAndRotate(r, 600, 800)
	require.InDelta(t, 550, rect.X, 0.001)
	require.InDelta(t, 780, rect.Y, 0.001)
}
