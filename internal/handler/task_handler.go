package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/courseloop/coursework-api/internal/blobstore"
	"github.com/courseloop/coursework-api/internal/dto"
	"github.com/courseloop/coursework-api/internal/service"
	"github.com/courseloop/coursework-api/internal/utils"
)

// TaskHandler manages the teacher-facing task endpoints.
type TaskHandler struct {
	service service.TaskService
	logger  zerolog.Logger
}

// NewTaskHandler builds a task handler instance.
func NewTaskHandler(service service.TaskService, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger.With().Str("component", "task_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. Reads stay
// open to any authenticated user; mutations require guard when provided.
func (h *TaskHandler) Register(router fiber.Router, guard fiber.Handler) {
	if guard == nil {
		guard = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Get("/", h.list)
	router.Post("/", guard, h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", guard, h.update)
	router.Delete("/:id", guard, h.delete)
	router.Post("/:id/assignees", guard, h.assign)
	router.Get("/:id/attachment", h.attachment)
}

func (h *TaskHandler) list(c *fiber.Ctx) error {
	filter := dto.TaskFilter{}
	var err error
	if filter.OwnerID, err = parseQueryUint(c, "owner_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if kind := c.Query("kind"); kind != "" {
		filter.Kind = &kind
	}

	tasks, err := h.service.List(c.Context(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "tasks retrieved", tasks)
}

func (h *TaskHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	task, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task retrieved", task)
}

func (h *TaskHandler) create(c *fiber.Ctx) error {
	ownerID := userIDFromContext(c)
	if ownerID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	payload := dto.TaskCreateRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	attachment, err := h.optionalAttachment(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	task, err := h.service.Create(c.Context(), ownerID, payload, attachment)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "task created", task)
}

func (h *TaskHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.TaskUpdateRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	attachment, err := h.optionalAttachment(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	task, err := h.service.Update(c.Context(), id, payload, attachment)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task updated", task)
}

func (h *TaskHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task deleted", nil)
}

func (h *TaskHandler) assign(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TaskAssignRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.Assign(c.Context(), id, payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "students assigned", nil)
}

func (h *TaskHandler) attachment(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	object, err := h.service.Attachment(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, object.MediaType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+object.FileName+`"`)
	return c.Send(object.Data)
}

func (h *TaskHandler) optionalAttachment(c *fiber.Ctx) (*service.Upload, error) {
	file, err := c.FormFile("attachment")
	if err != nil {
		return nil, nil
	}

	upload, err := readUpload(file)
	if err != nil {
		return nil, errors.New("failed to read attachment")
	}
	return &upload, nil
}

func (h *TaskHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, blobstore.ErrBlobNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed), errors.Is(err, service.ErrAudienceFixed):
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
