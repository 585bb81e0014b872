package service

import (
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/courseloop/coursework-api/internal/models"
)

// Upload carries one uploaded payload across the service boundary: raw bytes
// plus the declared media type and original filename. Size and media-type
// rules are enforced here, before any content-store write.
type Upload struct {
	Data      []byte
	FileName  string
	MediaType string
}

const defaultMaxUploadMB = 10

// uploadLimit converts a megabyte setting into a byte ceiling.
func uploadLimit(maxSizeMB int) int64 {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxUploadMB
	}
	return int64(maxSizeMB) * 1024 * 1024
}

// checkUpload validates an upload against the size ceiling and the media
// allow-list decided by the caller's policy. Both the declared type and the
// type detected from the actual bytes must pass; the declared type (falling
// back to the detected one) is what gets recorded.
func checkUpload(upload Upload, allow func(string) bool, maxBytes int64) (string, error) {
	if len(upload.Data) == 0 {
		return "", errors.New("file is required")
	}
	if int64(len(upload.Data)) > maxBytes {
		return "", ErrUploadTooLarge
	}

	detected := mimetype.Detect(upload.Data).String()
	declared := strings.TrimSpace(upload.MediaType)
	if declared == "" {
		declared = detected
	}

	if !allow(declared) || !allow(detected) {
		return "", ErrUploadTypeNotAllowed
	}

	return declared, nil
}

// checkSubmissionUpload applies the per-kind submission policy.
func checkSubmissionUpload(upload Upload, kind models.TaskKind, maxBytes int64) (string, error) {
	policy := models.PolicyFor(kind)
	return checkUpload(upload, policy.AllowsMediaType, maxBytes)
}

// checkAttachmentUpload applies the reference-document allow-list.
func checkAttachmentUpload(upload Upload, maxBytes int64) (string, error) {
	return checkUpload(upload, models.AttachmentMediaTypeAllowed, maxBytes)
}
