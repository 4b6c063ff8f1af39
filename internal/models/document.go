// Package models defines the typed rows the pipeline reads and writes:
// documents and their four edit collections, plus the audit trail.
package models

import "time"

// StatusCode is a persisted document lifecycle state.
type StatusCode int

const (
	StatusSync                    StatusCode = 1
	StatusNeedsProcessing         StatusCode = 3
	StatusNeedsImageManipulation  StatusCode = 7
	StatusPendingWorkman          StatusCode = 8
	StatusInWorkman               StatusCode = 9
	StatusObsolete                StatusCode = 15
)

func (s StatusCode) String() string {
	switch s {
	case StatusSync:
		return "Sync"
	case StatusNeedsProcessing:
		return "NeedsProcessing"
	case StatusNeedsImageManipulation:
		return "NeedsImageManipulation"
	case StatusPendingWorkman:
		return "PendingWorkman"
	case StatusInWorkman:
		return "InWorkman"
	case StatusObsolete:
		return "Obsolete"
	default:
		return "Unknown"
	}
}

// Document is a single PDF asset with a persistent row identity.
type Document struct {
	ID         int64      `bson:"_id"`
	OfferingID int64      `bson:"offeringId"`
	LoanID     int64      `bson:"loanId"`
	// PathFragment and BucketPrefix compose object-store keys for this document.
	PathFragment string     `bson:"pathFragment"`
	BucketPrefix string     `bson:"bucketPrefix"`
	Status       StatusCode `bson:"status"`
	PageCount    int        `bson:"pageCount"`
	IsRedacted   bool       `bson:"isRedacted"`
	Deleted      bool       `bson:"deleted"`
	DocTypeManualID int64   `bson:"docTypeManualId"`
	DocumentDate    *time.Time `bson:"documentDate,omitempty"`
	Comments        string     `bson:"comments,omitempty"`
	// SplitFromImageID is set on documents produced by the split stage.
	SplitFromImageID *int64    `bson:"splitFromImageId,omitempty"`
	DateCreated      time.Time `bson:"dateCreated"`
	DateUpdated      time.Time `bson:"dateUpdated"`
}

// Redaction is bound to a document and a zero-based page number.
type Redaction struct {
	ID              string  `bson:"_id"`
	DocumentID      int64   `bson:"documentId"`
	PageNumber      int     `bson:"pageNumber"`
	X               float64 `bson:"x"`
	Y               float64 `bson:"y"`
	W               float64 `bson:"w"`
	H               float64 `bson:"h"`
	// DrawOrientation is the redaction's optional draw rotation: 0, 90, 180, or 270.
	DrawOrientation int    `bson:"drawOrientation"`
	Text            string `bson:"text,omitempty"`
	Applied         bool   `bson:"applied"`
}

// Rotation is bound to a document and a zero-based page index. Rotation is
// the absolute angle to set on that page, not an increment.
type Rotation struct {
	ID         string `bson:"_id"`
	DocumentID int64  `bson:"documentId"`
	PageIndex  int    `bson:"pageIndex"`
	Rotation   int    `bson:"rotation"`
}

// PageDeletion is bound to a document and a zero-based page index.
type PageDeletion struct {
	ID         string `bson:"_id"`
	DocumentID int64  `bson:"documentId"`
	PageIndex  int    `bson:"pageIndex"`
	Processed  bool   `bson:"processed"`
}

// PageBreak (a.k.a. bookmark) is a user-declared split point on a document.
type PageBreak struct {
	ID               string     `bson:"_id"`
	DocumentID       int64      `bson:"documentId"`
	PageIndex        int        `bson:"pageIndex"`
	DocumentTypeID   int64      `bson:"documentTypeId"`
	DocumentTypeName string     `bson:"documentTypeName,omitempty"`
	DocumentDate     *time.Time `bson:"documentDate,omitempty"`
	Comments         string     `bson:"comments,omitempty"`
	// ResultDocumentID is set when the break is consumed: to the derived
	// document's id in a full split, or to the source document's own id in a
	// rename_only split. It is nil while the break is pending.
	ResultDocumentID *int64 `bson:"resultDocumentId,omitempty"`
	Consumed         bool   `bson:"consumed"`
}

// SplitLog is an append-only audit row relating a source document to a
// produced document.
type SplitLog struct {
	ID               string    `bson:"_id"`
	SourceDocumentID int64     `bson:"sourceDocumentId"`
	DerivedDocumentID int64    `bson:"derivedDocumentId"`
	CreatedAt        time.Time `bson:"createdAt"`
}

// PendingChange mirrors the original source's ImageChangesPending side
// table: a row is inserted each time the edit loader loads a non-empty edit
// bundle for a document, and is only ever cleared by an operator-invoked recovery path, never by a
// successful pipeline run.
type PendingChange struct {
	ID         string    `bson:"_id"`
	DocumentID int64     `bson:"documentId"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// AuditEntry records one step of pipeline execution for a single invocation,
// surfaced in the result bundle as auditTrail.
type AuditEntry struct {
	ID         string    `bson:"_id"`
	DocumentID int64     `bson:"documentId"`
	SessionID  string    `bson:"sessionId"`
	Stage      string    `bson:"stage"`
	Detail     string    `bson:"detail"`
	CreatedAt  time.Time `bson:"createdAt"`
}
