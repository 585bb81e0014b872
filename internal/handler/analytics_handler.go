package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/courseloop/coursework-api/internal/service"
	"github.com/courseloop/coursework-api/internal/utils"
)

// AnalyticsHandler exposes the reporting endpoints. Each report supports
// ?format=csv, which streams the exact rows the JSON variant returns.
type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewAnalyticsHandler builds an analytics handler instance.
func NewAnalyticsHandler(service service.AnalyticsService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *AnalyticsHandler) Register(router fiber.Router, guard fiber.Handler) {
	if guard == nil {
		guard = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Get("/quiz-performance", guard, h.quizPerformance)
	router.Get("/timeliness", guard, h.timeliness)
	router.Get("/weekly-activity", guard, h.weeklyActivity)
}

func (h *AnalyticsHandler) quizPerformance(c *fiber.Ctx) error {
	if wantsCSV(c) {
		data, err := h.service.QuizPerformanceCSV(c.Context())
		if err != nil {
			return h.handleError(c, err)
		}
		return sendCSV(c, "quiz_performance.csv", data)
	}

	rows, err := h.service.QuizPerformanceByTopic(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "quiz performance retrieved", rows)
}

func (h *AnalyticsHandler) timeliness(c *fiber.Ctx) error {
	if wantsCSV(c) {
		data, err := h.service.TimelinessCSV(c.Context())
		if err != nil {
			return h.handleError(c, err)
		}
		return sendCSV(c, "timeliness.csv", data)
	}

	report, err := h.service.SubmissionTimeliness(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "timeliness report retrieved", report)
}

func (h *AnalyticsHandler) weeklyActivity(c *fiber.Ctx) error {
	weeks, err := parseQueryInt(c, "weeks")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if wantsCSV(c) {
		data, err := h.service.WeeklyActivityCSV(c.Context(), weeks)
		if err != nil {
			return h.handleError(c, err)
		}
		return sendCSV(c, "weekly_activity.csv", data)
	}

	rows, err := h.service.WeeklyActivity(c.Context(), weeks)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "weekly activity retrieved", rows)
}

func (h *AnalyticsHandler) handleError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Msg("report computation failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute report")
}

func wantsCSV(c *fiber.Ctx) bool {
	return c.Query("format") == "csv"
}

func sendCSV(c *fiber.Ctx, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}
