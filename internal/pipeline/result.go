// Package pipeline sequences the four manipulation stages under a deadline
// and commits the metadata/object-store side effects that make a document's
// transition from "edits pending" to "edits applied" observable.
package pipeline

// RedactionResult is the redaction stage's result record.
type RedactionResult struct {
	AppliedCount     int      `json:"appliedCount"`
	PagesTouched     []int    `json:"pagesTouched"`
	RasterizedPages  []int    `json:"rasterizedPages"`
	SkippedRedactions []SkipDetail `json:"skippedRedactions,omitempty"`
}

// RotationResult is the rotation stage's result record.
type RotationResult struct {
	AppliedCount int      `json:"appliedCount"`
	Conflicts    []string `json:"conflicts,omitempty"`
}

// DeletionResult is the deletion stage's result record.
type DeletionResult struct {
	DocumentDeleted bool  `json:"documentDeleted"`
	FinalPageCount  int   `json:"finalPageCount"`
	DeletedIndices  []int `json:"deletedIndices,omitempty"`
}

// SplitResult is the split stage's result record.
type SplitResult struct {
	Strategy            string  `json:"strategy"` // "none" | "rename_only" | "full_split"
	DerivedDocumentIDs  []int64 `json:"derivedDocumentIds,omitempty"`
	SourceObsolete      bool    `json:"sourceObsolete"`
}

// SkipDetail records why one edit row was excluded, surfaced in the result
// bundle's validation report.
type SkipDetail struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Result is the full stage-result bundle returned to the invoker.
type Result struct {
	OperationsApplied []string         `json:"operationsApplied"`
	Redaction         *RedactionResult `json:"redaction,omitempty"`
	Rotation          *RotationResult  `json:"rotation,omitempty"`
	Deletion          *DeletionResult  `json:"deletion,omitempty"`
	Split             *SplitResult     `json:"split,omitempty"`
	ValidationReport  []SkipDetail     `json:"validationReport,omitempty"`
	DocumentDeleted   bool             `json:"documentDeleted"`
	FinalPageCount    int              `json:"finalPageCount"`
	AuditTrail        []string         `json:"auditTrail,omitempty"`
}
