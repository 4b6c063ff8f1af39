package invocation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_MissingOperation(t *testing.T) {
	err := Payload{}.Validate()
	require.Error(t, err)
}

func TestValidate_HealthCheckNeedsNoImageID(t *testing.T) {
	err := Payload{Operation: OperationHealthCheck}.Validate()
	require.NoError(t, err)
}

func TestValidate_ProcessManipulationsRequiresImageID(t *testing.T) {
	err := Payload{Operation: OperationProcessManipulations}.Validate()
	require.Error(t, err)

	err = Payload{Operation: OperationProcessManipulations, ImageID: 5}.Validate()
	require.NoError(t, err)
}

func TestValidate_SplitDocumentRequiresBookmarks(t *testing.T) {
	err := Payload{Operation: OperationSplitDocument, ImageID: 5}.Validate()
	require.Error(t, err)

	err = Payload{
		Operation: OperationSplitDocument,
		ImageID:   5,
		Bookmarks: []Bookmark{{BookmarkID: 1, DocumentTypeID: 2, DocumentTypeName: "Invoice"}},
	}.Validate()
	require.NoError(t, err)
}

func TestValidate_SplitDocumentRejectsIncompleteBookmark(t *testing.T) {
	err := Payload{
		Operation: OperationSplitDocument,
		ImageID:   5,
		Bookmarks: []Bookmark{{BookmarkID: 1}},
	}.Validate()
	require.Error(t, err)
}

func TestSuccessAndFailureEnvelopes(t *testing.T) {
	resp := Success(1, "sess", map[string]int{"a": 1}, 0)
	require.Equal(t, 200, resp.StatusCode)
	require.True(t, resp.Body.Success)

	resp = Failure(1, "sess", ErrUnsupportedOperationExample(), 0)
	require.Equal(t, 500, resp.StatusCode)
	require.False(t, resp.Body.Success)
}

func ErrUnsupportedOperationExample() error {
	return Payload{Operation: "unsupported_operation"}.Validate()
}
