package dto

import (
	"time"

	"github.com/courseloop/coursework-api/internal/models"
)

// TaskCreateRequest describes the payload for creating a task.
type TaskCreateRequest struct {
	Kind        string  `json:"kind" form:"kind" validate:"required,oneof=assignment quiz exam"`
	Title       string  `json:"title" form:"title" validate:"required,min=3,max=255"`
	Description string  `json:"description" form:"description" validate:"omitempty,max=10000"`
	DueDate     string  `json:"due_date" form:"due_date" validate:"omitempty"`
	TotalPoints float64 `json:"total_points" form:"total_points" validate:"omitempty,gt=0"`
}

// TaskUpdateRequest describes a partial task update.
type TaskUpdateRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=10000"`
	DueDate     *string  `json:"due_date"`
	TotalPoints *float64 `json:"total_points" validate:"omitempty,gt=0"`
}

// TaskAssignRequest adds students to an assignment audience.
type TaskAssignRequest struct {
	StudentIDs []uint `json:"student_ids" validate:"required,min=1,dive,gt=0"`
}

// TaskFilter describes query string filters for listing tasks.
type TaskFilter struct {
	OwnerID *uint   `query:"owner_id"`
	Kind    *string `query:"kind" validate:"omitempty,oneof=assignment quiz exam"`
}

// TaskResponse is returned to API clients when viewing tasks.
type TaskResponse struct {
	ID             uint       `json:"id"`
	Kind           string     `json:"kind"`
	OwnerID        uint       `json:"owner_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        *time.Time `json:"due_date"`
	TotalPoints    float64    `json:"total_points"`
	AttachmentID   *string    `json:"attachment_id"`
	AttachmentName string     `json:"attachment_name,omitempty"`
	AttachmentType string     `json:"attachment_type,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TaskLite summarizes a task in submission responses.
type TaskLite struct {
	ID          uint       `json:"id"`
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	DueDate     *time.Time `json:"due_date"`
	TotalPoints float64    `json:"total_points"`
}

// NewTaskResponse converts a Task model into a DTO.
func NewTaskResponse(model models.Task) TaskResponse {
	return TaskResponse{
		ID:             model.ID,
		Kind:           string(model.Kind),
		OwnerID:        model.OwnerID,
		Title:          model.Title,
		Description:    model.Description,
		DueDate:        model.DueDate,
		TotalPoints:    model.MaxPoints(),
		AttachmentID:   model.AttachmentBlobID,
		AttachmentName: model.AttachmentName,
		AttachmentType: model.AttachmentType,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

// NewTaskResponseSlice converts task models into DTOs.
func NewTaskResponseSlice(tasks []models.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, NewTaskResponse(task))
	}
	return responses
}
