package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/courseloop/coursework-api/internal/models"
)

var (
	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrSubmissionNotFound indicates no submission exists for the pair.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrStudentNotFound indicates the student record does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrNotAssigned indicates the student is not in the task's audience.
	ErrNotAssigned = errors.New("student is not assigned to this task")
	// ErrGradeOutOfRange indicates the grade falls outside the task's scale.
	ErrGradeOutOfRange = errors.New("grade is outside the task's point scale")
	// ErrUploadTooLarge indicates the payload exceeded the configured ceiling.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the media type is not permitted for
	// this task kind.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrAudienceFixed indicates the task kind addresses every student of
	// the owner and rejects explicit assignee lists.
	ErrAudienceFixed = errors.New("task audience covers all students and cannot be assigned")
	// ErrStorage marks content-store I/O failures, the only kind a caller
	// may reasonably retry.
	ErrStorage = errors.New("content store unavailable")
)

// StateConflictError reports a transition rejected because the submission is
// not in a legal state for it. The message names the current derived status
// so callers can explain why, not just that, the operation failed.
type StateConflictError struct {
	Op      string
	Current models.SubmissionStatus
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s: submission is %s", e.Op, strings.ReplaceAll(string(e.Current), "_", " "))
}

func stateConflict(op string, current models.SubmissionStatus) error {
	return &StateConflictError{Op: op, Current: current}
}

func storageFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
