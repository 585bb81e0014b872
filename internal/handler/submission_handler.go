package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/courseloop/coursework-api/internal/blobstore"
	"github.com/courseloop/coursework-api/internal/dto"
	"github.com/courseloop/coursework-api/internal/repository"
	"github.com/courseloop/coursework-api/internal/service"
	"github.com/courseloop/coursework-api/internal/utils"
)

// SubmissionHandler manages the submission workflow endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. Submissions
// are addressed by (task, student) pair; gradeGuard restricts grading to
// staff roles when provided.
func (h *SubmissionHandler) Register(router fiber.Router, gradeGuard fiber.Handler) {
	if gradeGuard == nil {
		gradeGuard = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Get("/submissions", h.list)
	router.Post("/tasks/:taskID/submissions/:studentID", h.submit)
	router.Get("/tasks/:taskID/submissions/:studentID", h.get)
	router.Delete("/tasks/:taskID/submissions/:studentID", h.unsubmit)
	router.Put("/tasks/:taskID/submissions/:studentID", h.replace)
	router.Post("/tasks/:taskID/submissions/:studentID/grade", gradeGuard, h.grade)
	router.Get("/tasks/:taskID/submissions/:studentID/file", h.file)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := dto.SubmissionFilter{}
	var err error
	if filter.TaskID, err = parseQueryUint(c, "task_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if filter.StudentID, err = parseQueryUint(c, "student_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if filter.Submitted, err = parseQueryBool(c, "submitted"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if filter.Graded, err = parseQueryBool(c, "graded"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submissions, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	taskID, studentID, err := h.pairParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	upload, err := readUpload(file)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "failed to read file")
	}

	submission, err := h.service.Submit(c.Context(), taskID, studentID, upload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission received", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	taskID, studentID, err := h.pairParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(c.Context(), taskID, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) unsubmit(c *fiber.Ctx) error {
	taskID, studentID, err := h.pairParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Unsubmit(c.Context(), taskID, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission withdrawn", submission)
}

func (h *SubmissionHandler) replace(c *fiber.Ctx) error {
	taskID, studentID, err := h.pairParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	upload, err := readUpload(file)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "failed to read file")
	}

	submission, err := h.service.Replace(c.Context(), taskID, studentID, upload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission replaced", submission)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	taskID, studentID, err := h.pairParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Grade(c.Context(), taskID, studentID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *SubmissionHandler) file(c *fiber.Ctx) error {
	taskID, studentID, err := h.pairParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	object, err := h.service.File(c.Context(), taskID, studentID)
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, object.MediaType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+object.FileName+`"`)
	return c.Send(object.Data)
}

func (h *SubmissionHandler) pairParams(c *fiber.Ctx) (uint, uint, error) {
	taskID, err := parseUintParam(c, "taskID")
	if err != nil {
		return 0, 0, err
	}
	studentID, err := parseUintParam(c, "studentID")
	if err != nil {
		return 0, 0, err
	}
	return taskID, studentID, nil
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var conflict *service.StateConflictError
	switch {
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, blobstore.ErrBlobNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.As(err, &conflict),
		errors.Is(err, repository.ErrVersionConflict):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotAssigned):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrGradeOutOfRange),
		errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, service.ErrStorage):
		h.logger.Error().Err(err).Msg("content store failure")
		return utils.SendError(c, fiber.StatusBadGateway, "storage temporarily unavailable")
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
