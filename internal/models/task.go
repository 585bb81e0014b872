package models

import "time"

// TaskKind discriminates the three task variants sharing one shape.
type TaskKind string

const (
	// TaskKindAssignment is teacher-assigned homework with an explicit audience.
	TaskKindAssignment TaskKind = "assignment"
	// TaskKindQuiz is a quiz offered to every student of the owning teacher.
	TaskKindQuiz TaskKind = "quiz"
	// TaskKindExam is an exam offered to every student of the owning teacher.
	TaskKindExam TaskKind = "exam"
)

// Valid reports whether the kind is one of the known task variants.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskKindAssignment, TaskKindQuiz, TaskKindExam:
		return true
	}
	return false
}

// Task is the owning entity students submit work against.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Kind        TaskKind   `gorm:"size:16;not null;index" json:"kind"`
	OwnerID     uint       `gorm:"not null;index" json:"owner_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `json:"due_date"`
	TotalPoints float64    `gorm:"not null;default:100" json:"total_points"`

	// Optional reference document attached by the teacher.
	AttachmentBlobID *string `gorm:"size:64" json:"attachment_blob_id"`
	AttachmentName   string  `gorm:"size:255" json:"attachment_name"`
	AttachmentType   string  `gorm:"size:128" json:"attachment_type"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Assignees []TaskAssignee `json:"assignees,omitempty"`
}

// IsPastDue returns true when the task has a deadline and it has already passed.
func (t Task) IsPastDue(reference time.Time) bool {
	return t.DueDate != nil && reference.After(*t.DueDate)
}

// MaxPoints returns the grading scale, falling back to 100 when unset.
func (t Task) MaxPoints() float64 {
	if t.TotalPoints <= 0 {
		return 100
	}
	return t.TotalPoints
}

// TaskAssignee links a task to one student in its audience.
type TaskAssignee struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TaskID    uint      `gorm:"not null;uniqueIndex:idx_task_assignee" json:"task_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_task_assignee" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}
