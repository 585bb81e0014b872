package dto

import (
	"time"

	"github.com/courseloop/coursework-api/internal/models"
)

// GradeRequest records or revises a grade on a submitted piece of work.
type GradeRequest struct {
	Grade    float64 `json:"grade" validate:"gte=0"`
	Feedback string  `json:"feedback" validate:"omitempty,max=10000"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	TaskID    *uint `query:"task_id"`
	StudentID *uint `query:"student_id"`
	Submitted *bool `query:"submitted"`
	Graded    *bool `query:"graded"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
// Status is derived at response-build time, never read from storage.
type SubmissionResponse struct {
	ID          uint       `json:"id"`
	TaskID      uint       `json:"task_id"`
	StudentID   uint       `json:"student_id"`
	Status      string     `json:"status"`
	IsSubmitted bool       `json:"is_submitted"`
	SubmittedAt *time.Time `json:"submitted_at"`
	FileID      *string    `json:"file_id"`
	FileName    string     `json:"file_name,omitempty"`
	FileType    string     `json:"file_type,omitempty"`
	Grade       *float64   `json:"grade"`
	Feedback    *string    `json:"feedback"`
	GradedAt    *time.Time `json:"graded_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Task        TaskLite   `json:"task"`
}

// NewSubmissionResponse converts a Submission model into a DTO, computing the
// derived status against the given clock reading.
func NewSubmissionResponse(model models.Submission, task models.Task, now time.Time) SubmissionResponse {
	response := SubmissionResponse{
		ID:          model.ID,
		TaskID:      model.TaskID,
		StudentID:   model.StudentID,
		Status:      string(models.DeriveStatus(model, task, now)),
		IsSubmitted: model.IsSubmitted,
		SubmittedAt: model.SubmittedAt,
		FileID:      model.FileBlobID,
		FileName:    model.FileName,
		FileType:    model.FileType,
		Grade:       model.Grade,
		Feedback:    model.Feedback,
		GradedAt:    model.GradedAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	if task.ID != 0 {
		response.Task = TaskLite{
			ID:          task.ID,
			Kind:        string(task.Kind),
			Title:       task.Title,
			DueDate:     task.DueDate,
			TotalPoints: task.MaxPoints(),
		}
	}

	return response
}
