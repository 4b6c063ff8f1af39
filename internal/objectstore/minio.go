// Package objectstore adapts the document pipeline to a MinIO-compatible
// object store: a single flat bucket, keys derived deterministically from a
// document id and a stage prefix.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/parchment-labs/docworker/internal/config"
)

// Stage names the object-store key prefixes a document's PDF can live under.
type Stage string

const (
	// StageProcessing is the working copy the pipeline reads and writes.
	StageProcessing Stage = "IProcessing"
	// StageOriginal is the immutable original ingested PDF.
	StageOriginal Stage = "IOriginal"
	// StageProduction is the externally served copy.
	StageProduction Stage = "Production"
	// StageRedactOriginal is the one-shot backup taken immediately before
	// destructive edits (redaction, rotation, deletion) are applied.
	StageRedactOriginal Stage = "RedactOriginal"
)

// Store is a thin wrapper around the minio client exposing the five
// primitives the pipeline needs: get, put, head, copy, delete.
type Store struct {
	client *minio.Client
	bucket string
}

// New creates a store client and ensures the configured bucket exists.
func New(cfg config.ObjectStoreConfig) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store config missing endpoint")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store config missing bucket")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &Store{client: mc, bucket: cfg.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		exist, xerr := mc.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

// Key composes the deterministic object-store key for a document at a
// stage: {stage}/{pathFragment}/{id}/{id}.pdf. Every caller goes through
// this helper so the convention cannot drift between call sites.
func Key(stage Stage, pathFragment string, documentID int64) string {
	id := strconv.FormatInt(documentID, 10)
	return fmt.Sprintf("%s/%s/%s/%s.pdf", stage, pathFragment, id, id)
}

// Get returns the object's bytes, or (nil, nil) if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	if _, err := obj.Stat(); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, err
	}
	return io.ReadAll(obj)
}

// Put writes data to key with the given content type.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Head reports whether key exists.
func (s *Store) Head(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Copy duplicates src to dst within the same bucket.
func (s *Store) Copy(ctx context.Context, src, dst string) error {
	srcOpts := minio.CopySrcOptions{Bucket: s.bucket, Object: src}
	dstOpts := minio.CopyDestOptions{Bucket: s.bucket, Object: dst}
	_, err := s.client.CopyObject(ctx, dstOpts, srcOpts)
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
