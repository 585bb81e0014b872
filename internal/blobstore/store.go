package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/courseloop/coursework-api/internal/models"
	"github.com/courseloop/coursework-api/internal/repository"
)

// ErrBlobNotFound indicates the blob id does not resolve to a stored object.
var ErrBlobNotFound = errors.New("blob not found")

// DeleteResult distinguishes a true deletion from a benign no-op so callers
// and tests can tell the two apart without treating either as a failure.
type DeleteResult string

const (
	// DeleteResultDeleted means the blob existed and was removed.
	DeleteResultDeleted DeleteResult = "deleted"
	// DeleteResultAlreadyAbsent means there was nothing to remove.
	DeleteResultAlreadyAbsent DeleteResult = "already_absent"
)

// Backend persists raw blob bytes. Put returns an opaque location token the
// store keeps alongside the metadata row and hands back on Get/Delete.
type Backend interface {
	Put(ctx context.Context, id string, data []byte) (string, error)
	Get(ctx context.Context, id, location string) ([]byte, error)
	Delete(ctx context.Context, id, location string) error
}

// PutInput describes one object to store.
type PutInput struct {
	Data      []byte
	FileName  string
	MediaType string
	Metadata  map[string]interface{}
}

// Object is a retrieved blob together with its metadata.
type Object struct {
	ID        string
	Data      []byte
	FileName  string
	MediaType string
	SizeBytes int64
	Checksum  string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}

// Store is a write-once read-many blob keeper. It never inspects content;
// allow-lists and size ceilings are the caller's concern.
type Store struct {
	backend Backend
	blobs   repository.BlobRepository
	logger  zerolog.Logger
}

// New constructs a blob store over the given backend and metadata repository.
func New(backend Backend, blobs repository.BlobRepository, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		blobs:   blobs,
		logger:  logger.With().Str("component", "blobstore").Logger(),
	}
}

// Put stores the object durably and returns its id. Bytes hit the backend
// before the metadata row is written, so a failure part-way never leaves a
// retrievable id pointing at missing bytes.
func (s *Store) Put(ctx context.Context, input PutInput) (string, error) {
	id := uuid.NewString()

	location, err := s.backend.Put(ctx, id, input.Data)
	if err != nil {
		return "", fmt.Errorf("backend write failed: %w", err)
	}

	checksum := sha256.Sum256(input.Data)
	blob := models.Blob{
		ID:        id,
		FileName:  input.FileName,
		MediaType: input.MediaType,
		SizeBytes: int64(len(input.Data)),
		Checksum:  hex.EncodeToString(checksum[:]),
		Location:  location,
	}
	if len(input.Metadata) > 0 {
		encoded, err := json.Marshal(input.Metadata)
		if err != nil {
			return "", fmt.Errorf("encode blob metadata: %w", err)
		}
		blob.Metadata = encoded
	}

	if err := s.blobs.Create(ctx, &blob); err != nil {
		if cleanupErr := s.backend.Delete(ctx, id, location); cleanupErr != nil {
			s.logger.Warn().Err(cleanupErr).Str("blob_id", id).Msg("failed to remove orphaned backend object")
		}
		return "", fmt.Errorf("persist blob metadata: %w", err)
	}

	return id, nil
}

// Get retrieves the object for the given id.
func (s *Store) Get(ctx context.Context, id string) (Object, error) {
	blob, err := s.blobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Object{}, ErrBlobNotFound
		}
		return Object{}, err
	}

	data, err := s.backend.Get(ctx, blob.ID, blob.Location)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return Object{}, ErrBlobNotFound
		}
		return Object{}, fmt.Errorf("backend read failed: %w", err)
	}

	object := Object{
		ID:        blob.ID,
		Data:      data,
		FileName:  blob.FileName,
		MediaType: blob.MediaType,
		SizeBytes: blob.SizeBytes,
		Checksum:  blob.Checksum,
		CreatedAt: blob.CreatedAt,
	}
	if len(blob.Metadata) > 0 {
		if err := json.Unmarshal(blob.Metadata, &object.Metadata); err != nil {
			s.logger.Warn().Err(err).Str("blob_id", id).Msg("blob metadata is not valid JSON")
		}
	}

	return object, nil
}

// Delete removes the blob, treating "already absent" as success. Deleting the
// same id twice succeeds both times.
func (s *Store) Delete(ctx context.Context, id string) (DeleteResult, error) {
	blob, err := s.blobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DeleteResultAlreadyAbsent, nil
		}
		return "", err
	}

	existed, err := s.blobs.Delete(ctx, id)
	if err != nil {
		return "", err
	}

	if err := s.backend.Delete(ctx, blob.ID, blob.Location); err != nil && !errors.Is(err, ErrBlobNotFound) {
		// The metadata row is gone so the id no longer resolves; leftover
		// backend bytes are a disk-space concern, not a correctness one.
		s.logger.Warn().Err(err).Str("blob_id", id).Msg("failed to remove backend object")
	}

	if !existed {
		return DeleteResultAlreadyAbsent, nil
	}
	return DeleteResultDeleted, nil
}

// DeleteStrict removes the blob and reports ErrBlobNotFound when the id does
// not resolve, for callers that need the strict semantics.
func (s *Store) DeleteStrict(ctx context.Context, id string) error {
	result, err := s.Delete(ctx, id)
	if err != nil {
		return err
	}
	if result == DeleteResultAlreadyAbsent {
		return ErrBlobNotFound
	}
	return nil
}
