package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/courseloop/coursework-api/internal/models"
)

func TestCheckUpload(t *testing.T) {
	limit := uploadLimit(10)

	// Declared type is recorded when both checks pass.
	mediaType, err := checkSubmissionUpload(pdfUpload("a.pdf"), models.TaskKindAssignment, limit)
	require.NoError(t, err)
	require.Equal(t, "application/pdf", mediaType)

	// Missing declared type falls back to the detected one.
	upload := pngUpload("a.png")
	upload.MediaType = ""
	mediaType, err = checkSubmissionUpload(upload, models.TaskKindQuiz, limit)
	require.NoError(t, err)
	require.Equal(t, "image/png", mediaType)

	// Empty payloads are rejected outright.
	_, err = checkSubmissionUpload(Upload{FileName: "a.pdf"}, models.TaskKindAssignment, limit)
	require.Error(t, err)

	// Both the declared and the detected type must pass the allow-list.
	mislabeled := pngUpload("a.png")
	mislabeled.MediaType = "application/pdf"
	_, err = checkSubmissionUpload(mislabeled, models.TaskKindQuiz, limit)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)

	disguised := pdfUpload("a.png")
	disguised.MediaType = "image/png"
	_, err = checkSubmissionUpload(disguised, models.TaskKindQuiz, limit)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
}

func TestUploadLimit(t *testing.T) {
	require.Equal(t, int64(10*1024*1024), uploadLimit(0))
	require.Equal(t, int64(10*1024*1024), uploadLimit(-3))
	require.Equal(t, int64(5*1024*1024), uploadLimit(5))
}

func TestRejectReason(t *testing.T) {
	require.Equal(t, "size", rejectReason(ErrUploadTooLarge))
	require.Equal(t, "type", rejectReason(ErrUploadTypeNotAllowed))
	require.Equal(t, "invalid", rejectReason(ErrTaskNotFound))
}
