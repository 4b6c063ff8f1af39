package objectstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKey_ComposesDeterministicPath(t *testing.T) {
	require.Equal(t, "IProcessing/loans/42/42/42.pdf", Key(StageProcessing, "loans/42", 42))
	require.Equal(t, "RedactOriginal/loans/42/42/42.pdf", Key(StageRedactOriginal, "loans/42", 42))
}

func TestKey_DiffersByStage(t *testing.T) {
	a := Key(StageOriginal, "x", 1)
	b := Key(StageProduction, "x", 1)
	require.NotEqual(t, a, b)
}
