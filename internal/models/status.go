package models

import "time"

// SubmissionStatus is derived from record fields plus the current time. It is
// recomputed on every read and never persisted, so the stored timestamps stay
// the single source of truth.
type SubmissionStatus string

const (
	// StatusNotSubmitted means nothing has been handed in and the deadline,
	// if any, has not passed yet.
	StatusNotSubmitted SubmissionStatus = "not_submitted"
	// StatusSubmittedOnTime means work was handed in on or before the deadline.
	StatusSubmittedOnTime SubmissionStatus = "submitted_on_time"
	// StatusSubmittedLate means work was handed in after the deadline.
	StatusSubmittedLate SubmissionStatus = "submitted_late"
	// StatusGraded means a grade has been recorded.
	StatusGraded SubmissionStatus = "graded"
	// StatusDueUnsubmitted means the deadline passed with nothing handed in.
	StatusDueUnsubmitted SubmissionStatus = "due_unsubmitted"
)

// DeriveStatus computes the submission status from its record fields, the
// owning task, and the current time.
func DeriveStatus(sub Submission, task Task, now time.Time) SubmissionStatus {
	if sub.Grade != nil {
		return StatusGraded
	}
	if sub.IsSubmitted {
		if task.DueDate != nil && sub.SubmittedAt != nil && sub.SubmittedAt.After(*task.DueDate) {
			return StatusSubmittedLate
		}
		return StatusSubmittedOnTime
	}
	if task.IsPastDue(now) {
		return StatusDueUnsubmitted
	}
	return StatusNotSubmitted
}
