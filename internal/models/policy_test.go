package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPolicyAllowsMediaType(t *testing.T) {
	assignment := PolicyFor(TaskKindAssignment)
	quiz := PolicyFor(TaskKindQuiz)
	exam := PolicyFor(TaskKindExam)

	require.True(t, assignment.AllowsMediaType("application/pdf"))
	require.True(t, assignment.AllowsMediaType("image/png"))
	require.True(t, assignment.AllowsMediaType("text/plain; charset=utf-8"))
	require.True(t, assignment.AllowsMediaType("Image/JPEG"))
	require.False(t, assignment.AllowsMediaType("video/mp4"))
	require.False(t, assignment.AllowsMediaType(""))

	require.True(t, quiz.AllowsMediaType("image/png"))
	require.False(t, quiz.AllowsMediaType("application/pdf"))
	require.False(t, quiz.AllowsMediaType("text/plain"))

	require.True(t, exam.AllowsMediaType("image/webp"))
	require.False(t, exam.AllowsMediaType("application/zip"))
}

func TestPolicyAudience(t *testing.T) {
	require.False(t, PolicyFor(TaskKindAssignment).AudienceAllStudents)
	require.True(t, PolicyFor(TaskKindQuiz).AudienceAllStudents)
	require.True(t, PolicyFor(TaskKindExam).AudienceAllStudents)
}

func TestAttachmentMediaTypeAllowed(t *testing.T) {
	require.True(t, AttachmentMediaTypeAllowed("application/pdf"))
	require.True(t, AttachmentMediaTypeAllowed("image/png"))
	require.False(t, AttachmentMediaTypeAllowed("application/x-msdownload"))
}

func TestTaskKindValid(t *testing.T) {
	require.True(t, TaskKindAssignment.Valid())
	require.True(t, TaskKindQuiz.Valid())
	require.True(t, TaskKindExam.Valid())
	require.False(t, TaskKind("lecture").Valid())
	require.False(t, TaskKind("").Valid())
}
