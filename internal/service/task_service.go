package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/courseloop/coursework-api/internal/blobstore"
	"github.com/courseloop/coursework-api/internal/dto"
	"github.com/courseloop/coursework-api/internal/models"
	"github.com/courseloop/coursework-api/internal/observability"
	"github.com/courseloop/coursework-api/internal/repository"
)

// TaskService exposes the teacher-facing task use cases: CRUD, reference
// document attachment, and audience management.
type TaskService interface {
	List(ctx context.Context, filter dto.TaskFilter) ([]dto.TaskResponse, error)
	Get(ctx context.Context, id uint) (dto.TaskResponse, error)
	Create(ctx context.Context, ownerID uint, payload dto.TaskCreateRequest, attachment *Upload) (dto.TaskResponse, error)
	Update(ctx context.Context, id uint, payload dto.TaskUpdateRequest, attachment *Upload) (dto.TaskResponse, error)
	Delete(ctx context.Context, id uint) error
	Assign(ctx context.Context, id uint, payload dto.TaskAssignRequest) error
	Attachment(ctx context.Context, id uint) (blobstore.Object, error)
}

type taskService struct {
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	blobs       ContentStore
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	events      EventPublisher
	logger      zerolog.Logger
	maxBytes    int64
	now         func() time.Time
}

// NewTaskService builds a new task service.
func NewTaskService(tasks repository.TaskRepository, subs repository.SubmissionRepository, blobs ContentStore, validate *validator.Validate, events EventPublisher, maxSizeMB int, logger zerolog.Logger) TaskService {
	if events == nil {
		events = NopEventPublisher{}
	}
	return &taskService{
		tasks:       tasks,
		submissions: subs,
		blobs:       blobs,
		validator:   validate,
		sanitizer:   bluemonday.UGCPolicy(),
		events:      events,
		logger:      logger.With().Str("component", "task_service").Logger(),
		maxBytes:    uploadLimit(maxSizeMB),
		now:         time.Now,
	}
}

func (s *taskService) List(ctx context.Context, filter dto.TaskFilter) ([]dto.TaskResponse, error) {
	repoFilter := repository.TaskFilter{OwnerID: filter.OwnerID}
	if filter.Kind != nil {
		kind := models.TaskKind(*filter.Kind)
		repoFilter.Kind = &kind
	}

	tasks, err := s.tasks.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	return dto.NewTaskResponseSlice(tasks), nil
}

func (s *taskService) Get(ctx context.Context, id uint) (dto.TaskResponse, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return dto.TaskResponse{}, err
	}
	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Create(ctx context.Context, ownerID uint, payload dto.TaskCreateRequest, attachment *Upload) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	task := models.Task{
		Kind:        models.TaskKind(payload.Kind),
		OwnerID:     ownerID,
		Title:       payload.Title,
		Description: s.sanitizer.Sanitize(payload.Description),
		TotalPoints: payload.TotalPoints,
	}
	if task.TotalPoints <= 0 {
		task.TotalPoints = 100
	}

	if payload.DueDate != "" {
		dueDate, err := time.Parse(time.RFC3339, payload.DueDate)
		if err != nil {
			return dto.TaskResponse{}, fmt.Errorf("invalid due date: %w", err)
		}
		task.DueDate = &dueDate
	}

	if attachment != nil {
		blobID, name, mediaType, err := s.storeAttachment(ctx, *attachment)
		if err != nil {
			return dto.TaskResponse{}, err
		}
		task.AttachmentBlobID = &blobID
		task.AttachmentName = name
		task.AttachmentType = mediaType
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		if task.AttachmentBlobID != nil {
			s.discardBlob(ctx, *task.AttachmentBlobID)
		}
		return dto.TaskResponse{}, err
	}

	s.logger.Info().Uint("task_id", task.ID).Str("kind", string(task.Kind)).Msg("task created")

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Update(ctx context.Context, id uint, payload dto.TaskUpdateRequest, attachment *Upload) (dto.TaskResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	task, err := s.getTask(ctx, id)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	if payload.Title != nil {
		task.Title = *payload.Title
	}
	if payload.Description != nil {
		task.Description = s.sanitizer.Sanitize(*payload.Description)
	}
	if payload.TotalPoints != nil {
		task.TotalPoints = *payload.TotalPoints
	}
	if payload.DueDate != nil {
		if *payload.DueDate == "" {
			task.DueDate = nil
		} else {
			dueDate, err := time.Parse(time.RFC3339, *payload.DueDate)
			if err != nil {
				return dto.TaskResponse{}, fmt.Errorf("invalid due date: %w", err)
			}
			task.DueDate = &dueDate
		}
	}

	oldAttachment := task.AttachmentBlobID
	if attachment != nil {
		blobID, name, mediaType, err := s.storeAttachment(ctx, *attachment)
		if err != nil {
			return dto.TaskResponse{}, err
		}
		task.AttachmentBlobID = &blobID
		task.AttachmentName = name
		task.AttachmentType = mediaType
	}

	if err := s.tasks.Update(ctx, &task); err != nil {
		if attachment != nil && task.AttachmentBlobID != nil {
			s.discardBlob(ctx, *task.AttachmentBlobID)
		}
		return dto.TaskResponse{}, err
	}

	// Release the replaced reference document once the record points at the
	// new one.
	if attachment != nil && oldAttachment != nil {
		s.discardBlob(ctx, *oldAttachment)
	}

	return dto.NewTaskResponse(task), nil
}

// Delete destroys the task and cascades to its submissions. Record rows go
// first, in one transaction; blob cleanup afterwards is best-effort and
// idempotent, so a partial failure can simply be re-run.
func (s *taskService) Delete(ctx context.Context, id uint) error {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return err
	}

	submissions, err := s.submissions.ListByTask(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	for _, submission := range submissions {
		if submission.FileBlobID != nil {
			s.discardBlob(ctx, *submission.FileBlobID)
		}
	}
	if task.AttachmentBlobID != nil {
		s.discardBlob(ctx, *task.AttachmentBlobID)
	}

	s.events.Publish(ctx, Event{Type: EventTaskDeleted, TaskID: id, OccurredAt: s.now()})
	s.logger.Info().Uint("task_id", id).Int("submissions", len(submissions)).Msg("task deleted")

	return nil
}

// Assign adds students to an assignment's audience and pre-creates their
// submissions in pending shape so the teacher sees the full roster at once.
func (s *taskService) Assign(ctx context.Context, id uint, payload dto.TaskAssignRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	task, err := s.getTask(ctx, id)
	if err != nil {
		return err
	}
	if models.PolicyFor(task.Kind).AudienceAllStudents {
		return fmt.Errorf("%w: %s", ErrAudienceFixed, task.Kind)
	}

	if err := s.tasks.AddAssignees(ctx, id, payload.StudentIDs); err != nil {
		return err
	}

	for _, studentID := range payload.StudentIDs {
		submission := models.Submission{TaskID: id, StudentID: studentID}
		if err := s.submissions.Create(ctx, &submission); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return err
		}
	}

	return nil
}

func (s *taskService) Attachment(ctx context.Context, id uint) (blobstore.Object, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return blobstore.Object{}, err
	}
	if task.AttachmentBlobID == nil {
		return blobstore.Object{}, blobstore.ErrBlobNotFound
	}

	object, err := s.blobs.Get(ctx, *task.AttachmentBlobID)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return blobstore.Object{}, err
		}
		return blobstore.Object{}, storageFailure(err)
	}
	return object, nil
}

func (s *taskService) getTask(ctx context.Context, id uint) (models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

func (s *taskService) storeAttachment(ctx context.Context, attachment Upload) (string, string, string, error) {
	mediaType, err := checkAttachmentUpload(attachment, s.maxBytes)
	if err != nil {
		observability.UploadRejected().WithLabelValues(rejectReason(err)).Inc()
		return "", "", "", err
	}

	blobID, err := s.blobs.Put(ctx, blobstore.PutInput{
		Data:      attachment.Data,
		FileName:  attachment.FileName,
		MediaType: mediaType,
		Metadata:  map[string]interface{}{"kind": "task_attachment"},
	})
	if err != nil {
		return "", "", "", storageFailure(err)
	}

	return blobID, attachment.FileName, mediaType, nil
}

func (s *taskService) discardBlob(ctx context.Context, blobID string) {
	if _, err := s.blobs.Delete(ctx, blobID); err != nil {
		s.logger.Warn().Err(err).Str("blob_id", blobID).Msg("failed to delete blob")
	}
}
