package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/parchment-labs/docworker/internal/editloader"
	"github.com/parchment-labs/docworker/internal/invocation"
	"github.com/parchment-labs/docworker/internal/lock"
	"github.com/parchment-labs/docworker/internal/metadatastore"
	"github.com/parchment-labs/docworker/internal/models"
	"github.com/parchment-labs/docworker/internal/objectstore"
	"github.com/parchment-labs/docworker/internal/pdfengine"
	"github.com/parchment-labs/docworker/internal/progress"
	"github.com/parchment-labs/docworker/pkg/logger"
	"github.com/parchment-labs/docworker/pkg/metrics"
)

// Pipeline holds the four adapters the orchestrator drives; production wiring
// happens once in cmd/docworker. The fields are concrete adapter types, so a
// Pipeline cannot be built over fakes.
type Pipeline struct {
	Meta     *metadatastore.Store
	Objects  *objectstore.Store
	Progress *progress.Reporter
	Lock     *lock.Guard
	Deadline time.Duration
	SafetyMargin time.Duration
}

// Invoke runs one invocation end to end and returns the response envelope
// the caller returns verbatim to the invoker.
func (p *Pipeline) Invoke(ctx context.Context, payload invocation.Payload) invocation.Response {
	start := time.Now()

	if err := payload.Validate(); err != nil {
		return invocation.Failure(payload.ImageID, payload.SessionID, fmt.Errorf("%w: %v", ErrPayloadInvalid, err), time.Since(start))
	}

	if payload.Operation == invocation.OperationHealthCheck {
		return invocation.Success(0, payload.SessionID, map[string]string{"status": "ok"}, time.Since(start))
	}

	deadline := p.Deadline
	if payload.TimeoutSeconds > 0 {
		deadline = time.Duration(payload.TimeoutSeconds) * time.Second
	}
	deadlineAt := start.Add(deadline)

	result, err := p.run(ctx, payload, deadlineAt)
	elapsed := time.Since(start)

	if err != nil {
		metrics.InvocationsTotal.WithLabelValues(string(payload.Operation), "error").Inc()
		p.Progress.Update(ctx, payload.ImageID, payload.SessionID, progress.StatusError, 0, err.Error(), nil)
		return invocation.Failure(payload.ImageID, payload.SessionID, err, elapsed)
	}

	metrics.InvocationsTotal.WithLabelValues(string(payload.Operation), "success").Inc()
	p.Progress.Update(ctx, payload.ImageID, payload.SessionID, progress.StatusCompleted, 100, "done", result)
	return invocation.Success(payload.ImageID, payload.SessionID, result, elapsed)
}

func (p *Pipeline) checkDeadline(deadlineAt time.Time) error {
	if time.Until(deadlineAt) < p.SafetyMargin {
		return ErrDeadlineExceeded
	}
	return nil
}

// recordStage observes the stage's duration, logs it with structured fields,
// appends a line to the in-flight result's audit trail, and persists an
// audit row. A persistence failure is logged and otherwise ignored — the
// stage already succeeded and must not be rolled back over an audit write.
func (p *Pipeline) recordStage(ctx context.Context, res *Result, imageID int64, sessionID, stage, detail string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	logger.Fields("info", "stage complete",
		logger.F{Key: "stage", Value: stage},
		logger.F{Key: "documentId", Value: imageID},
		logger.F{Key: "detail", Value: detail},
	)
	res.AuditTrail = append(res.AuditTrail, fmt.Sprintf("%s: %s", stage, detail))
	if err := p.Meta.InsertAuditEntry(ctx, models.AuditEntry{DocumentID: imageID, SessionID: sessionID, Stage: stage, Detail: detail}); err != nil {
		logger.Errorf("orchestrator: insert audit entry for %d/%s failed: %v", imageID, stage, err)
	}
}

func (p *Pipeline) run(ctx context.Context, payload invocation.Payload, deadlineAt time.Time) (res Result, retErr error) {
	imageID := payload.ImageID
	sessionID := payload.SessionID

	doc, err := p.Meta.GetDocument(ctx, imageID)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	ok, err := p.Lock.Acquire(ctx, doc, deadlineAt.Sub(time.Now()))
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrMetaError, err)
	}
	if !ok {
		return res, ErrAlreadyInWorkman
	}
	defer p.Lock.Release(ctx, imageID)

	// On any fatal error past this point, reset status so the document is
	// re-queueable.
	defer func() {
		if retErr != nil {
			if serr := p.Meta.SetStatus(ctx, imageID, models.StatusNeedsImageManipulation); serr != nil {
				logger.Errorf("orchestrator: reset status for %d failed: %v", imageID, serr)
			}
			if retErr == ErrDeadlineExceeded {
				metrics.DeadlineAborts.Inc()
			}
		}
	}()

	if err := p.Meta.SetStatus(ctx, imageID, models.StatusInWorkman); err != nil {
		return res, fmt.Errorf("%w: %v", ErrMetaError, err)
	}
	p.Progress.Update(ctx, imageID, sessionID, progress.StatusProcessing, 10, "started", nil)

	if payload.Operation == invocation.OperationSplitDocument {
		return p.runSplitOnly(ctx, payload, doc, deadlineAt)
	}

	stageStart := time.Now()
	bundle, err := editloader.Load(ctx, p.Meta, imageID, doc.PageCount)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrMetaError, err)
	}
	for _, s := range bundle.Skipped {
		res.ValidationReport = append(res.ValidationReport, SkipDetail(s))
	}
	p.recordStage(ctx, &res, imageID, sessionID, "load_edits", fmt.Sprintf("redactions=%d rotations=%d deletions=%d breaks=%d skipped=%d",
		len(bundle.Redactions), len(bundle.Rotations), len(bundle.Deletions), len(bundle.Breaks), len(bundle.Skipped)), stageStart)
	p.Progress.Update(ctx, imageID, sessionID, progress.StatusProcessing, 20, "loaded edits", nil)

	if bundle.Empty() {
		if err := p.Meta.SetStatus(ctx, imageID, models.StatusNeedsProcessing); err != nil {
			return res, fmt.Errorf("%w: %v", ErrMetaError, err)
		}
		return res, nil
	}

	primaryKey := objectstore.Key(objectstore.StageProcessing, doc.PathFragment, imageID)
	originalBytes, err := p.Objects.Get(ctx, primaryKey)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	if originalBytes == nil {
		return res, fmt.Errorf("%w: primary object missing for document %d", ErrNotFound, imageID)
	}
	p.Progress.Update(ctx, imageID, sessionID, progress.StatusProcessing, 30, "fetched primary object", nil)

	destructive := len(bundle.Redactions) > 0 || len(bundle.Rotations) > 0 || len(bundle.Deletions) > 0
	if destructive {
		if err := p.checkDeadline(deadlineAt); err != nil {
			return res, err
		}
		backupKey := objectstore.Key(objectstore.StageRedactOriginal, doc.PathFragment, imageID)
		if err := p.Objects.Put(ctx, backupKey, originalBytes, "application/pdf"); err != nil {
			return res, fmt.Errorf("%w: %v", ErrStoreError, err)
		}
	}
	p.Progress.Update(ctx, imageID, sessionID, progress.StatusProcessing, 35, "backup written", nil)

	pdfDoc, err := pdfengine.Open(originalBytes)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrEngineError, err)
	}
	defer pdfDoc.Close()

	if err := p.checkDeadline(deadlineAt); err != nil {
		return res, err
	}
	stageStart = time.Now()
	redactionResult, err := RunRedactions(ctx, pdfDoc, bundle.Redactions, p.Meta)
	if err != nil {
		return res, err
	}
	if len(bundle.Redactions) > 0 {
		res.Redaction = &redactionResult
		res.OperationsApplied = append(res.OperationsApplied, "redaction")
		metrics.RedactionsApplied.Add(float64(redactionResult.AppliedCount))
	}
	p.recordStage(ctx, &res, imageID, sessionID, "redaction", fmt.Sprintf("applied=%d pagesTouched=%d", redactionResult.AppliedCount, len(redactionResult.PagesTouched)), stageStart)
	p.Progress.Update(ctx, imageID, sessionID, progress.StatusProcessing, 45, "redactions applied", nil)

	if err := p.checkDeadline(deadlineAt); err != nil {
		return res, err
	}
	stageStart = time.Now()
	rotationResult, err := RunRotations(pdfDoc, bundle.Rotations)
	if err != nil {
		return res, err
	}
	if len(bundle.Rotations) > 0 {
		res.Rotation = &rotationResult
		res.OperationsApplied = append(res.OperationsApplied, "rotation")
	}
	p.recordStage(ctx, &res, imageID, sessionID, "rotation", fmt.Sprintf("applied=%d conflicts=%d", rotationResult.AppliedCount, len(rotationResult.Conflicts)), stageStart)
	p.Progress.Update(ctx, imageID, sessionID, progress.StatusProcessing, 60, "rotations applied", nil)

	if err := p.checkDeadline(deadlineAt); err != nil {
		return res, err
	}
	pageCount, err := pdfDoc.PageCount()
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrEngineError, err)
	}
	stageStart = time.Now()
	deletionResult, err := RunDeletions(ctx, pdfDoc, bundle.Deletions, pageCount, p.Meta)
	if err != nil {
		return res, err
	}
	if len(bundle.Deletions) > 0 {
		res.Deletion = &deletionResult
		res.OperationsApplied = append(res.OperationsApplied, "deletion")
		metrics.PagesDeleted.Add(float64(len(deletionResult.DeletedIndices)))
	}
	res.DocumentDeleted = deletionResult.DocumentDeleted
	res.FinalPageCount = deletionResult.FinalPageCount
	p.recordStage(ctx, &res, imageID, sessionID, "deletion", fmt.Sprintf("deleted=%d documentDeleted=%v finalPageCount=%d", len(deletionResult.DeletedIndices), deletionResult.DocumentDeleted, deletionResult.FinalPageCount), stageStart)
	p.Progress.Update(ctx, imageID, sessionID, progress.StatusProcessing, 75, "deletions applied", nil)

	if deletionResult.DocumentDeleted {
		if err := p.Meta.TombstoneDocument(ctx, imageID); err != nil {
			return res, fmt.Errorf("%w: %v", ErrMetaError, err)
		}
		return res, nil
	}

	if err := p.checkDeadline(deadlineAt); err != nil {
		return res, err
	}
	finalBytes, err := pdfDoc.Bytes()
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrEngineError, err)
	}

	stageStart = time.Now()
	splitResult, err := RunSplit(ctx, finalBytes, deletionResult.FinalPageCount, bundle.Breaks, doc, p.Meta, p.Objects)
	if err != nil {
		return res, err
	}
	if len(bundle.Breaks) > 0 {
		res.Split = &splitResult
		res.OperationsApplied = append(res.OperationsApplied, "split")
		metrics.DocumentsSplit.Add(float64(len(splitResult.DerivedDocumentIDs)))
	}
	p.recordStage(ctx, &res, imageID, sessionID, "split", fmt.Sprintf("strategy=%s derived=%d", splitResult.Strategy, len(splitResult.DerivedDocumentIDs)), stageStart)
	p.Progress.Update(ctx, imageID, sessionID, progress.StatusProcessing, 85, "split applied", nil)

	if err := p.checkDeadline(deadlineAt); err != nil {
		return res, err
	}

	if len(splitResult.DerivedDocumentIDs) == 0 {
		if err := p.Objects.Put(ctx, primaryKey, finalBytes, "application/pdf"); err != nil {
			return res, fmt.Errorf("%w: %v", ErrStoreError, err)
		}
		if deletionResult.FinalPageCount != doc.PageCount {
			if err := p.Meta.SetPageCount(ctx, imageID, deletionResult.FinalPageCount); err != nil {
				return res, fmt.Errorf("%w: %v", ErrMetaError, err)
			}
		}
		if err := p.Meta.SetStatus(ctx, imageID, models.StatusNeedsProcessing); err != nil {
			return res, fmt.Errorf("%w: %v", ErrMetaError, err)
		}
	}
	// len(derived) > 0: CommitSplit already moved the source document to
	// StatusObsolete inside the same transaction that recorded the derived
	// documents; no further status write is needed here.
	p.Progress.Update(ctx, imageID, sessionID, progress.StatusProcessing, 95, "committed", nil)

	return res, nil
}

// runSplitOnly is the degenerate split_document mode: it bypasses redaction,
// rotation, and deletion and produces only split outputs from the supplied
// bookmarks, retained for external invokers that pre-apply edits.
func (p *Pipeline) runSplitOnly(ctx context.Context, payload invocation.Payload, doc models.Document, deadlineAt time.Time) (Result, error) {
	var res Result

	breaks := make([]models.PageBreak, 0, len(payload.Bookmarks))
	for _, bm := range payload.Bookmarks {
		if reason, ok := editloader.ValidateIndex(bm.PageIndex, doc.PageCount); !ok {
			res.ValidationReport = append(res.ValidationReport, SkipDetail{
				Kind:   "break",
				ID:     fmt.Sprintf("inline-%d", bm.BookmarkID),
				Reason: reason,
			})
			continue
		}
		breaks = append(breaks, models.PageBreak{
			ID:               fmt.Sprintf("inline-%d", bm.BookmarkID),
			DocumentID:       doc.ID,
			PageIndex:        bm.PageIndex,
			DocumentTypeID:   bm.DocumentTypeID,
			DocumentTypeName: bm.DocumentTypeName,
			DocumentDate:     bm.DocumentDate,
			Comments:         bm.Comments,
		})
	}

	primaryKey := objectstore.Key(objectstore.StageProcessing, doc.PathFragment, doc.ID)
	bytesData, err := p.Objects.Get(ctx, primaryKey)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	if bytesData == nil {
		return res, fmt.Errorf("%w: primary object missing for document %d", ErrNotFound, doc.ID)
	}

	if err := p.checkDeadline(deadlineAt); err != nil {
		return res, err
	}

	stageStart := time.Now()
	splitResult, err := RunSplit(ctx, bytesData, doc.PageCount, breaks, doc, p.Meta, p.Objects)
	if err != nil {
		return res, err
	}
	res.Split = &splitResult
	res.OperationsApplied = append(res.OperationsApplied, "split")
	metrics.DocumentsSplit.Add(float64(len(splitResult.DerivedDocumentIDs)))
	p.recordStage(ctx, &res, doc.ID, payload.SessionID, "split", fmt.Sprintf("strategy=%s derived=%d", splitResult.Strategy, len(splitResult.DerivedDocumentIDs)), stageStart)

	if len(splitResult.DerivedDocumentIDs) == 0 {
		if err := p.Meta.SetStatus(ctx, doc.ID, models.StatusNeedsProcessing); err != nil {
			return res, fmt.Errorf("%w: %v", ErrMetaError, err)
		}
	}
	// len(derived) > 0: CommitSplit already moved the source document to
	// StatusObsolete inside its own transaction.

	return res, nil
}
