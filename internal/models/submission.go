package models

import "time"

// Submission is the per-student record of work against one task. At most one
// row exists per (task, student) pair; the unique index enforces it.
type Submission struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	TaskID    uint `gorm:"not null;uniqueIndex:idx_submission_pair" json:"task_id"`
	StudentID uint `gorm:"not null;uniqueIndex:idx_submission_pair" json:"student_id"`

	// Version is the optimistic concurrency token. Every mutation is a
	// conditional update keyed on the version read beforehand, so operations
	// on the same pair serialize while different pairs proceed concurrently.
	Version int64 `gorm:"not null;default:0" json:"-"`

	IsSubmitted bool       `gorm:"not null;default:false" json:"is_submitted"`
	SubmittedAt *time.Time `json:"submitted_at"`

	// Submitted file reference, present only while submitted.
	FileBlobID *string `gorm:"size:64" json:"file_blob_id"`
	FileName   string  `gorm:"size:255" json:"file_name"`
	FileType   string  `gorm:"size:128" json:"file_type"`

	Grade    *float64   `json:"grade"`
	Feedback *string    `gorm:"type:text" json:"feedback"`
	GradedAt *time.Time `json:"graded_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Task Task `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"task"`
}

// IsGraded reports whether the submission carries a grade.
func (s Submission) IsGraded() bool {
	return s.Grade != nil
}
