// Package invocation defines the worker's external JSON contract: the
// invocation payload, its bookmark sub-objects, and the response envelope.
package invocation

import (
	"fmt"
	"time"
)

// Operation names a supported invocation mode.
type Operation string

const (
	OperationProcessManipulations Operation = "process_manipulations"
	OperationSplitDocument        Operation = "split_document"
	OperationHealthCheck          Operation = "health_check"
)

// Bookmark is one pre-supplied page break, used only by split_document
// invocations that bypass the other stages.
type Bookmark struct {
	BookmarkID       int64      `json:"bookmarkId"`
	PageIndex        int        `json:"pageIndex"`
	DocumentTypeID   int64      `json:"documentTypeId"`
	DocumentTypeName string     `json:"documentTypeName"`
	DocumentDate     *time.Time `json:"documentDate,omitempty"`
	Comments         string     `json:"comments,omitempty"`
}

// Payload is the invocation request body.
type Payload struct {
	Operation           Operation         `json:"operation"`
	ImageID             int64             `json:"imageId"`
	SessionID           string            `json:"sessionId"`
	TimeoutSeconds      int               `json:"timeout,omitempty"`
	ProgressCallbackURL string            `json:"progressCallbackUrl,omitempty"`
	Bookmarks           []Bookmark        `json:"bookmarks,omitempty"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// Validate enforces the invocation contract's required-field rules.
// Invalid payloads must not mutate any state; the caller returns this error
// directly to the invoker.
func (p Payload) Validate() error {
	if p.Operation == "" {
		return fmt.Errorf("invocation: operation is required")
	}
	switch p.Operation {
	case OperationProcessManipulations, OperationSplitDocument, OperationHealthCheck:
	default:
		return fmt.Errorf("invocation: unsupported operation %q", p.Operation)
	}
	if p.Operation == OperationHealthCheck {
		return nil
	}
	if p.ImageID == 0 {
		return fmt.Errorf("invocation: imageId is required")
	}
	if p.Operation == OperationSplitDocument {
		if len(p.Bookmarks) == 0 {
			return fmt.Errorf("invocation: split_document requires at least one bookmark")
		}
		for i, b := range p.Bookmarks {
			if b.BookmarkID == 0 {
				return fmt.Errorf("invocation: bookmark[%d] missing bookmarkId", i)
			}
			if b.DocumentTypeID == 0 {
				return fmt.Errorf("invocation: bookmark[%d] missing documentTypeId", i)
			}
			if b.DocumentTypeName == "" {
				return fmt.Errorf("invocation: bookmark[%d] missing documentTypeName", i)
			}
		}
	}
	return nil
}

// Body is the "body" field of the response envelope.
type Body struct {
	Success        bool        `json:"success"`
	ImageID        int64       `json:"imageId"`
	SessionID      string      `json:"sessionId"`
	Result         interface{} `json:"result,omitempty"`
	ProcessingTime float64     `json:"processingTime"`
	Error          string      `json:"error,omitempty"`
}

// Response is the full invocation response envelope.
type Response struct {
	StatusCode int  `json:"statusCode"`
	Body       Body `json:"body"`
}

// Success builds a 200 response envelope.
func Success(imageID int64, sessionID string, result interface{}, processingTime time.Duration) Response {
	return Response{
		StatusCode: 200,
		Body: Body{
			Success:        true,
			ImageID:        imageID,
			SessionID:      sessionID,
			Result:         result,
			ProcessingTime: processingTime.Seconds(),
		},
	}
}

// Failure builds a 500 response envelope.
func Failure(imageID int64, sessionID string, err error, processingTime time.Duration) Response {
	return Response{
		StatusCode: 500,
		Body: Body{
			Success:        false,
			ImageID:        imageID,
			SessionID:      sessionID,
			ProcessingTime: processingTime.Seconds(),
			Error:          err.Error(),
		},
	}
}
