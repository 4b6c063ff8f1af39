// Package metadatastore is the typed read/write boundary over the document,
// edit, and audit collections, and owns the transactional scope for the
// split stage's commit batch.
package metadatastore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/parchment-labs/docworker/internal/models"
)

// ErrNotFound is returned when a document row does not exist.
var ErrNotFound = fmt.Errorf("metadatastore: document not found")

// Store is a mongo-driver-backed implementation of the metadata adapter.
type Store struct {
	client    *mongo.Client
	documents *mongo.Collection
	redactions *mongo.Collection
	rotations  *mongo.Collection
	deletions  *mongo.Collection
	breaks     *mongo.Collection
	splitLogs  *mongo.Collection
	pending    *mongo.Collection
	audit      *mongo.Collection
}

// New builds a Store over the named database.
func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:     client,
		documents:  db.Collection("documents"),
		redactions: db.Collection("redactions"),
		rotations:  db.Collection("rotations"),
		deletions:  db.Collection("deletions"),
		breaks:     db.Collection("page_breaks"),
		splitLogs:  db.Collection("split_logs"),
		pending:    db.Collection("pending_changes"),
		audit:      db.Collection("audit_entries"),
	}
}

// GetDocument fetches a document row by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (models.Document, error) {
	var doc models.Document
	err := s.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return doc, ErrNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("metadatastore: get document %d: %w", id, err)
	}
	return doc, nil
}

// ListRedactions returns redactions for a document; when pending is true,
// only rows with Applied=false are returned.
func (s *Store) ListRedactions(ctx context.Context, documentID int64, pending bool) ([]models.Redaction, error) {
	filter := bson.M{"documentId": documentID}
	if pending {
		filter["applied"] = bson.M{"$ne": true}
	}
	cur, err := s.redactions.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("metadatastore: list redactions: %w", err)
	}
	defer cur.Close(ctx)
	var out []models.Redaction
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("metadatastore: decode redactions: %w", err)
	}
	return out, nil
}

// ListRotations returns all rotations for a document.
func (s *Store) ListRotations(ctx context.Context, documentID int64) ([]models.Rotation, error) {
	cur, err := s.rotations.Find(ctx, bson.M{"documentId": documentID})
	if err != nil {
		return nil, fmt.Errorf("metadatastore: list rotations: %w", err)
	}
	defer cur.Close(ctx)
	var out []models.Rotation
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("metadatastore: decode rotations: %w", err)
	}
	return out, nil
}

// ListDeletions returns all pending deletions for a document.
func (s *Store) ListDeletions(ctx context.Context, documentID int64) ([]models.PageDeletion, error) {
	cur, err := s.deletions.Find(ctx, bson.M{"documentId": documentID, "processed": bson.M{"$ne": true}})
	if err != nil {
		return nil, fmt.Errorf("metadatastore: list deletions: %w", err)
	}
	defer cur.Close(ctx)
	var out []models.PageDeletion
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("metadatastore: decode deletions: %w", err)
	}
	return out, nil
}

// ListBreaks returns breaks not yet materialized into a result document.
func (s *Store) ListBreaks(ctx context.Context, documentID int64) ([]models.PageBreak, error) {
	cur, err := s.breaks.Find(ctx, bson.M{"documentId": documentID, "consumed": bson.M{"$ne": true}})
	if err != nil {
		return nil, fmt.Errorf("metadatastore: list breaks: %w", err)
	}
	defer cur.Close(ctx)
	var out []models.PageBreak
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("metadatastore: decode breaks: %w", err)
	}
	return out, nil
}

// MarkRedactionApplied persists Applied=true for one redaction row.
// Failure of one mark does not fail the stage, so callers log and continue.
func (s *Store) MarkRedactionApplied(ctx context.Context, id string) error {
	_, err := s.redactions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"applied": true}})
	if err != nil {
		return fmt.Errorf("metadatastore: mark redaction %s applied: %w", id, err)
	}
	return nil
}

// SetStatus transitions a document's status code.
func (s *Store) SetStatus(ctx context.Context, id int64, code models.StatusCode) error {
	_, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": code, "dateUpdated": time.Now()}})
	if err != nil {
		return fmt.Errorf("metadatastore: set status %d on %d: %w", code, id, err)
	}
	return nil
}

// SetPageCount persists a document's new page count.
func (s *Store) SetPageCount(ctx context.Context, id int64, n int) error {
	_, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"pageCount": n, "dateUpdated": time.Now()}})
	if err != nil {
		return fmt.Errorf("metadatastore: set page count on %d: %w", id, err)
	}
	return nil
}

// TombstoneDocument marks a document Deleted=true. Never a physical delete.
func (s *Store) TombstoneDocument(ctx context.Context, id int64) error {
	_, err := s.documents.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"deleted": true, "dateUpdated": time.Now()}})
	if err != nil {
		return fmt.Errorf("metadatastore: tombstone %d: %w", id, err)
	}
	return nil
}

// MarkDeletionsProcessed flags the given deletion rows processed=true.
func (s *Store) MarkDeletionsProcessed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.deletions.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": bson.M{"processed": true}})
	if err != nil {
		return fmt.Errorf("metadatastore: mark deletions processed: %w", err)
	}
	return nil
}

// DerivedDocumentInput carries the fields needed to insert a document
// produced by the split stage. ID is pre-allocated by NextDocumentID so the
// object store write (which happens outside this transaction, before
// commit) already knows the derived document's key.
type DerivedDocumentInput struct {
	ID               int64
	Source           models.Document
	DocTypeManualID  int64
	PageCount        int
	DocumentDate     *time.Time
	Comments         string
	SplitFromImageID int64
}

// NextDocumentID allocates the next document id from a shared counter
// document, mongo-driver's standard substitute for an autoincrement column.
func (s *Store) NextDocumentID(ctx context.Context) (int64, error) {
	counters := s.client.Database(s.documents.Database().Name()).Collection("counters")
	var result struct {
		Seq int64 `bson:"seq"`
	}
	err := counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": "documentId"},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&result)
	if err != nil {
		return 0, fmt.Errorf("metadatastore: allocate document id: %w", err)
	}
	return result.Seq, nil
}

// CommitSplit runs the split stage's entire commit batch — derived document
// inserts, source status transition, break updates, and split-log rows — in
// a single multi-document transaction. Object-store writes for each derived
// document's key must happen before this call; on commit failure they
// become orphans reaped by a separate sweeper (out of scope).
func (s *Store) CommitSplit(ctx context.Context, sourceID int64, derived []DerivedDocumentInput, breakResults map[string]int64) ([]int64, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("metadatastore: start session: %w", err)
	}
	defer session.EndSession(ctx)

	var newIDs []int64
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		newIDs = nil
		now := time.Now()
		for _, d := range derived {
			newID := d.ID
			doc := models.Document{
				ID:               newID,
				OfferingID:       d.Source.OfferingID,
				LoanID:           d.Source.LoanID,
				PathFragment:     d.Source.PathFragment,
				BucketPrefix:     d.Source.BucketPrefix,
				Status:           models.StatusSync,
				PageCount:        d.PageCount,
				IsRedacted:       false,
				Deleted:          false,
				DocTypeManualID:  d.DocTypeManualID,
				DocumentDate:     d.DocumentDate,
				Comments:         d.Comments,
				SplitFromImageID: &d.SplitFromImageID,
				DateCreated:      now,
				DateUpdated:      now,
			}
			if _, err := s.documents.InsertOne(sessCtx, doc); err != nil {
				return nil, fmt.Errorf("insert derived document: %w", err)
			}
			if _, err := s.splitLogs.InsertOne(sessCtx, models.SplitLog{
				ID:                uuid.NewString(),
				SourceDocumentID:  sourceID,
				DerivedDocumentID: newID,
				CreatedAt:         now,
			}); err != nil {
				return nil, fmt.Errorf("insert split log: %w", err)
			}
			newIDs = append(newIDs, newID)
		}

		for breakID, resultDocID := range breakResults {
			id := resultDocID
			_, err := s.breaks.UpdateOne(sessCtx, bson.M{"_id": breakID}, bson.M{"$set": bson.M{
				"resultDocumentId": id,
				"consumed":         true,
			}})
			if err != nil {
				return nil, fmt.Errorf("mark break %s processed: %w", breakID, err)
			}
		}

		if len(derived) > 0 {
			_, err := s.documents.UpdateOne(sessCtx, bson.M{"_id": sourceID}, bson.M{"$set": bson.M{
				"status":      models.StatusObsolete,
				"dateUpdated": now,
			}})
			if err != nil {
				return nil, fmt.Errorf("transition source to obsolete: %w", err)
			}
		}

		return nil, nil
	}, options.Transaction())

	if err != nil {
		return nil, fmt.Errorf("metadatastore: commit split transaction: %w", err)
	}
	return newIDs, nil
}

// CommitRenameOnly applies the rename_only split strategy in place: the
// source document's type/date/comments are updated and the single break is
// marked consumed with ResultDocumentID = sourceID. No new rows, no split log.
func (s *Store) CommitRenameOnly(ctx context.Context, sourceID int64, breakID string, docType int64, date *time.Time, comments string) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("metadatastore: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		update := bson.M{"docTypeManualId": docType, "dateUpdated": time.Now()}
		if date != nil {
			update["documentDate"] = *date
		}
		if comments != "" {
			update["comments"] = comments
		}
		if _, err := s.documents.UpdateOne(sessCtx, bson.M{"_id": sourceID}, bson.M{"$set": update}); err != nil {
			return nil, fmt.Errorf("update source doc type/meta: %w", err)
		}
		if _, err := s.breaks.UpdateOne(sessCtx, bson.M{"_id": breakID}, bson.M{"$set": bson.M{
			"resultDocumentId": sourceID,
			"consumed":         true,
		}}); err != nil {
			return nil, fmt.Errorf("mark break %s consumed: %w", breakID, err)
		}
		return nil, nil
	}, options.Transaction())

	if err != nil {
		return fmt.Errorf("metadatastore: commit rename-only transaction: %w", err)
	}
	return nil
}

// InsertPendingChange records that edits are outstanding for a document.
// Mirrors the original system's ImageChangesPending side table.
func (s *Store) InsertPendingChange(ctx context.Context, documentID int64) error {
	_, err := s.pending.InsertOne(ctx, models.PendingChange{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("metadatastore: insert pending change: %w", err)
	}
	return nil
}

// ClearPendingChanges is an operator-invoked recovery path. The pipeline's
// own success path never calls this: a processed document still carries its
// pending-change rows until someone explicitly clears them, matching the
// source system's recovery semantics.
func (s *Store) ClearPendingChanges(ctx context.Context, documentID int64) error {
	_, err := s.pending.DeleteMany(ctx, bson.M{"documentId": documentID})
	if err != nil {
		return fmt.Errorf("metadatastore: clear pending changes for %d: %w", documentID, err)
	}
	return nil
}

// InsertAuditEntry appends one pipeline execution step to the audit trail.
func (s *Store) InsertAuditEntry(ctx context.Context, e models.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.audit.InsertOne(ctx, e)
	if err != nil {
		return fmt.Errorf("metadatastore: insert audit entry: %w", err)
	}
	return nil
}
