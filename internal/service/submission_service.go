package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/courseloop/coursework-api/internal/blobstore"
	"github.com/courseloop/coursework-api/internal/dto"
	"github.com/courseloop/coursework-api/internal/models"
	"github.com/courseloop/coursework-api/internal/observability"
	"github.com/courseloop/coursework-api/internal/repository"
)

// ContentStore is the narrow blob access pattern the workflow needs: write
// once, read by id, delete idempotently.
type ContentStore interface {
	Put(ctx context.Context, input blobstore.PutInput) (string, error)
	Get(ctx context.Context, id string) (blobstore.Object, error)
	Delete(ctx context.Context, id string) (blobstore.DeleteResult, error)
}

// SubmissionService enforces the submit/unsubmit/replace/grade workflow for
// one (task, student) pair per call.
type SubmissionService interface {
	Submit(ctx context.Context, taskID, studentID uint, upload Upload) (dto.SubmissionResponse, error)
	Unsubmit(ctx context.Context, taskID, studentID uint) (dto.SubmissionResponse, error)
	Replace(ctx context.Context, taskID, studentID uint, upload Upload) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, taskID, studentID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, taskID, studentID uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	File(ctx context.Context, taskID, studentID uint) (blobstore.Object, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	tasks       repository.TaskRepository
	students    repository.StudentRepository
	blobs       ContentStore
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	events      EventPublisher
	logger      zerolog.Logger
	tracer      trace.Tracer
	maxBytes    int64
	now         func() time.Time
}

// NewSubmissionService constructs the workflow engine.
func NewSubmissionService(subs repository.SubmissionRepository, tasks repository.TaskRepository, students repository.StudentRepository, blobs ContentStore, validate *validator.Validate, events EventPublisher, maxSizeMB int, logger zerolog.Logger) SubmissionService {
	if events == nil {
		events = NopEventPublisher{}
	}
	return &submissionService{
		submissions: subs,
		tasks:       tasks,
		students:    students,
		blobs:       blobs,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		events:      events,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/courseloop/coursework-api/internal/service/submission"),
		maxBytes:    uploadLimit(maxSizeMB),
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, taskID, studentID uint, upload Upload) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.submit")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("task.id", int64(taskID)),
		attribute.Int64("student.id", int64(studentID)),
	)

	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return s.reject(span, "submit", err)
	}

	// Media allow-list and size ceiling run before anything is stored, so a
	// rejected upload leaves no blob and no record mutation behind.
	mediaType, err := checkSubmissionUpload(upload, task.Kind, s.maxBytes)
	if err != nil {
		observability.UploadRejected().WithLabelValues(rejectReason(err)).Inc()
		return s.reject(span, "submit", err)
	}

	if err := s.checkAssigned(ctx, task, studentID); err != nil {
		return s.reject(span, "submit", err)
	}

	existing, err := s.submissions.GetByPair(ctx, taskID, studentID)
	exists := true
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return s.reject(span, "submit", err)
		}
		exists = false
	}

	now := s.now()
	if exists && existing.IsSubmitted {
		return s.reject(span, "submit", stateConflict("submit", models.DeriveStatus(existing, task, now)))
	}

	blobID, err := s.blobs.Put(ctx, blobstore.PutInput{
		Data:      upload.Data,
		FileName:  upload.FileName,
		MediaType: mediaType,
		Metadata: map[string]interface{}{
			"task_id":    taskID,
			"student_id": studentID,
		},
	})
	if err != nil {
		return s.reject(span, "submit", storageFailure(err))
	}

	submission := existing
	if !exists {
		submission = models.Submission{TaskID: taskID, StudentID: studentID}
	}
	submission.IsSubmitted = true
	submission.SubmittedAt = &now
	submission.FileBlobID = &blobID
	submission.FileName = upload.FileName
	submission.FileType = mediaType
	// A fresh submission always starts ungraded.
	submission.Grade = nil
	submission.Feedback = nil
	submission.GradedAt = nil

	if exists {
		err = s.submissions.UpdateConditional(ctx, &submission, existing.Version)
	} else {
		err = s.submissions.Create(ctx, &submission)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = repository.ErrVersionConflict
		}
	}
	if err != nil {
		s.discardBlob(ctx, blobID)
		return s.reject(span, "submit", err)
	}

	observability.WorkflowTransitions().WithLabelValues("submit", "ok").Inc()
	s.events.Publish(ctx, Event{Type: EventSubmitted, TaskID: taskID, StudentID: studentID, OccurredAt: now})
	s.logger.Info().Uint("task_id", taskID).Uint("student_id", studentID).Msg("submission received")
	span.SetStatus(codes.Ok, "submitted")

	return dto.NewSubmissionResponse(submission, task, now), nil
}

func (s *submissionService) Unsubmit(ctx context.Context, taskID, studentID uint) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.unsubmit")
	defer span.End()

	task, submission, err := s.getPair(ctx, taskID, studentID)
	if err != nil {
		return s.reject(span, "unsubmit", err)
	}

	now := s.now()
	if submission.IsGraded() {
		// Withdrawing graded work would throw away the teacher's grading.
		return s.reject(span, "unsubmit", stateConflict("unsubmit", models.StatusGraded))
	}
	if !submission.IsSubmitted {
		return s.reject(span, "unsubmit", stateConflict("unsubmit", models.DeriveStatus(submission, task, now)))
	}

	oldBlobID := submission.FileBlobID
	expected := submission.Version
	submission.IsSubmitted = false
	submission.SubmittedAt = nil
	submission.FileBlobID = nil
	submission.FileName = ""
	submission.FileType = ""

	if err := s.submissions.UpdateConditional(ctx, &submission, expected); err != nil {
		return s.reject(span, "unsubmit", err)
	}

	// The record mutation has committed; blob cleanup failing only leaks
	// disk space, so it is logged and swallowed.
	if oldBlobID != nil {
		s.discardBlob(ctx, *oldBlobID)
	}

	observability.WorkflowTransitions().WithLabelValues("unsubmit", "ok").Inc()
	s.events.Publish(ctx, Event{Type: EventUnsubmitted, TaskID: taskID, StudentID: studentID, OccurredAt: now})
	span.SetStatus(codes.Ok, "unsubmitted")

	return dto.NewSubmissionResponse(submission, task, now), nil
}

func (s *submissionService) Replace(ctx context.Context, taskID, studentID uint, upload Upload) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.replace")
	defer span.End()

	task, submission, err := s.getPair(ctx, taskID, studentID)
	if err != nil {
		return s.reject(span, "replace", err)
	}

	now := s.now()
	if submission.IsGraded() {
		return s.reject(span, "replace", stateConflict("replace", models.StatusGraded))
	}
	if !submission.IsSubmitted {
		return s.reject(span, "replace", stateConflict("replace", models.DeriveStatus(submission, task, now)))
	}

	mediaType, err := checkSubmissionUpload(upload, task.Kind, s.maxBytes)
	if err != nil {
		observability.UploadRejected().WithLabelValues(rejectReason(err)).Inc()
		return s.reject(span, "replace", err)
	}

	newBlobID, err := s.blobs.Put(ctx, blobstore.PutInput{
		Data:      upload.Data,
		FileName:  upload.FileName,
		MediaType: mediaType,
		Metadata: map[string]interface{}{
			"task_id":    taskID,
			"student_id": studentID,
		},
	})
	if err != nil {
		return s.reject(span, "replace", storageFailure(err))
	}

	oldBlobID := submission.FileBlobID
	expected := submission.Version
	submission.SubmittedAt = &now
	submission.FileBlobID = &newBlobID
	submission.FileName = upload.FileName
	submission.FileType = mediaType

	if err := s.submissions.UpdateConditional(ctx, &submission, expected); err != nil {
		s.discardBlob(ctx, newBlobID)
		return s.reject(span, "replace", err)
	}

	if oldBlobID != nil {
		s.discardBlob(ctx, *oldBlobID)
	}

	observability.WorkflowTransitions().WithLabelValues("replace", "ok").Inc()
	s.events.Publish(ctx, Event{Type: EventReplaced, TaskID: taskID, StudentID: studentID, OccurredAt: now})
	span.SetStatus(codes.Ok, "replaced")

	return dto.NewSubmissionResponse(submission, task, now), nil
}

func (s *submissionService) Grade(ctx context.Context, taskID, studentID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.grade")
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return s.reject(span, "grade", err)
	}

	task, submission, err := s.getPair(ctx, taskID, studentID)
	if err != nil {
		return s.reject(span, "grade", err)
	}

	now := s.now()
	if !submission.IsSubmitted {
		return s.reject(span, "grade", stateConflict("grade", models.DeriveStatus(submission, task, now)))
	}

	if payload.Grade < 0 || payload.Grade > task.MaxPoints()+1e-9 {
		return s.reject(span, "grade", ErrGradeOutOfRange)
	}

	feedback := strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback))

	expected := submission.Version
	grade := payload.Grade
	submission.Grade = &grade
	if feedback != "" {
		submission.Feedback = &feedback
	} else {
		submission.Feedback = nil
	}
	submission.GradedAt = &now

	// Re-grading simply overwrites; teachers may revise a grade.
	if err := s.submissions.UpdateConditional(ctx, &submission, expected); err != nil {
		return s.reject(span, "grade", err)
	}

	observability.WorkflowTransitions().WithLabelValues("grade", "ok").Inc()
	s.events.Publish(ctx, Event{Type: EventGraded, TaskID: taskID, StudentID: studentID, OccurredAt: now})
	s.logger.Info().Uint("task_id", taskID).Uint("student_id", studentID).Float64("grade", grade).Msg("submission graded")
	span.SetStatus(codes.Ok, "graded")

	return dto.NewSubmissionResponse(submission, task, now), nil
}

func (s *submissionService) Get(ctx context.Context, taskID, studentID uint) (dto.SubmissionResponse, error) {
	task, submission, err := s.getPair(ctx, taskID, studentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission, task, s.now()), nil
}

func (s *submissionService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{
		TaskID:    filter.TaskID,
		StudentID: filter.StudentID,
		Submitted: filter.Submitted,
		Graded:    filter.Graded,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	responses := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, dto.NewSubmissionResponse(submission, submission.Task, now))
	}
	return responses, nil
}

func (s *submissionService) File(ctx context.Context, taskID, studentID uint) (blobstore.Object, error) {
	_, submission, err := s.getPair(ctx, taskID, studentID)
	if err != nil {
		return blobstore.Object{}, err
	}
	if !submission.IsSubmitted || submission.FileBlobID == nil {
		return blobstore.Object{}, blobstore.ErrBlobNotFound
	}

	object, err := s.blobs.Get(ctx, *submission.FileBlobID)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return blobstore.Object{}, err
		}
		return blobstore.Object{}, storageFailure(err)
	}
	return object, nil
}

func (s *submissionService) getTask(ctx context.Context, taskID uint) (models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

func (s *submissionService) getPair(ctx context.Context, taskID, studentID uint) (models.Task, models.Submission, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return models.Task{}, models.Submission{}, err
	}

	submission, err := s.submissions.GetByPair(ctx, taskID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, models.Submission{}, ErrSubmissionNotFound
		}
		return models.Task{}, models.Submission{}, err
	}
	return task, submission, nil
}

// checkAssigned resolves the task audience per kind policy: quizzes and exams
// go to every student of the owning teacher, assignments to the explicit
// assignee set.
func (s *submissionService) checkAssigned(ctx context.Context, task models.Task, studentID uint) error {
	policy := models.PolicyFor(task.Kind)
	if policy.AudienceAllStudents {
		student, err := s.students.GetByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotAssigned
			}
			return err
		}
		if student.TeacherID != task.OwnerID {
			return ErrNotAssigned
		}
		return nil
	}

	assigned, err := s.tasks.HasAssignee(ctx, task.ID, studentID)
	if err != nil {
		return err
	}
	if !assigned {
		return ErrNotAssigned
	}
	return nil
}

func (s *submissionService) discardBlob(ctx context.Context, blobID string) {
	if _, err := s.blobs.Delete(ctx, blobID); err != nil {
		s.logger.Warn().Err(err).Str("blob_id", blobID).Msg("failed to delete blob")
	}
}

func (s *submissionService) reject(span trace.Span, op string, err error) (dto.SubmissionResponse, error) {
	observability.WorkflowTransitions().WithLabelValues(op, "rejected").Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, op+"_rejected")
	return dto.SubmissionResponse{}, err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrUploadTooLarge):
		return "size"
	case errors.Is(err, ErrUploadTypeNotAllowed):
		return "type"
	default:
		return "invalid"
	}
}
