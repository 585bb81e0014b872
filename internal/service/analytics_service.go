package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/courseloop/coursework-api/internal/dto"
	"github.com/courseloop/coursework-api/internal/models"
	"github.com/courseloop/coursework-api/internal/observability"
	"github.com/courseloop/coursework-api/internal/repository"
)

// Timeliness bucket names.
const (
	TimelinessOnTime       = "ON_TIME"
	TimelinessLate         = "LATE"
	TimelinessNotSubmitted = "NOT_SUBMITTED"
)

// AnalyticsService derives reporting metrics from submission and task
// records. Every report is computed fresh per request; the CSV exports are
// pure serializations of the same computed rows, never a second code path.
type AnalyticsService interface {
	QuizPerformanceByTopic(ctx context.Context) ([]dto.TopicPerformanceRow, error)
	SubmissionTimeliness(ctx context.Context) (dto.TimelinessReport, error)
	WeeklyActivity(ctx context.Context, weeks int) ([]dto.WeeklyActivityRow, error)
	QuizPerformanceCSV(ctx context.Context) ([]byte, error)
	TimelinessCSV(ctx context.Context) ([]byte, error)
	WeeklyActivityCSV(ctx context.Context, weeks int) ([]byte, error)
}

type analyticsService struct {
	repo         repository.AnalyticsRepository
	logger       zerolog.Logger
	tracer       trace.Tracer
	defaultWeeks int
	now          func() time.Time
}

// NewAnalyticsService constructs the aggregation engine.
func NewAnalyticsService(repo repository.AnalyticsRepository, defaultWeeks int, logger zerolog.Logger) AnalyticsService {
	if defaultWeeks <= 0 {
		defaultWeeks = 12
	}
	return &analyticsService{
		repo:         repo,
		logger:       logger.With().Str("component", "analytics_service").Logger(),
		tracer:       otel.Tracer("github.com/courseloop/coursework-api/internal/service/analytics"),
		defaultWeeks: defaultWeeks,
		now:          time.Now,
	}
}

func (s *analyticsService) QuizPerformanceByTopic(ctx context.Context) ([]dto.TopicPerformanceRow, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.quiz_performance")
	defer span.End()
	defer s.observe("quiz_performance", s.now())

	submissions, err := s.repo.ListGradedSubmissionsByKind(ctx, models.TaskKindQuiz)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_graded_quiz_submissions_failed")
		return nil, err
	}

	rows := buildTopicRows(submissions)
	span.SetAttributes(attribute.Int("analytics.topic_count", len(rows)))
	return rows, nil
}

// buildTopicRows groups graded submissions by exact task title. Two tasks
// sharing a title are one topic even when owned by different teachers;
// near-duplicate titles stay distinct.
func buildTopicRows(submissions []models.Submission) []dto.TopicPerformanceRow {
	type topicAccumulator struct {
		count      int
		percentSum float64
		teachers   map[uint]struct{}
	}

	groups := map[string]*topicAccumulator{}
	for _, submission := range submissions {
		if submission.Grade == nil {
			continue
		}

		topic := submission.Task.Title
		acc, ok := groups[topic]
		if !ok {
			acc = &topicAccumulator{teachers: map[uint]struct{}{}}
			groups[topic] = acc
		}

		acc.count++
		acc.percentSum += (*submission.Grade / submission.Task.MaxPoints()) * 100
		acc.teachers[submission.Task.OwnerID] = struct{}{}
	}

	rows := make([]dto.TopicPerformanceRow, 0, len(groups))
	for topic, acc := range groups {
		teachers := make([]uint, 0, len(acc.teachers))
		for id := range acc.teachers {
			teachers = append(teachers, id)
		}
		sort.Slice(teachers, func(i, j int) bool { return teachers[i] < teachers[j] })

		rows = append(rows, dto.TopicPerformanceRow{
			Topic:       topic,
			TeacherIDs:  teachers,
			GradedCount: acc.count,
			MeanPercent: roundOneDecimal(acc.percentSum / float64(acc.count)),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Topic < rows[j].Topic })
	return rows
}

func (s *analyticsService) SubmissionTimeliness(ctx context.Context) (dto.TimelinessReport, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.timeliness")
	defer span.End()
	defer s.observe("timeliness", s.now())

	submissions, err := s.repo.ListSubmissionsWithDueDates(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_submissions_failed")
		return dto.TimelinessReport{}, err
	}

	report := buildTimelinessReport(submissions, s.now())
	span.SetAttributes(attribute.Int("analytics.classified_total", report.Total))
	return report, nil
}

// buildTimelinessReport classifies each due-dated submission. A pending row
// whose deadline is still in the future fits no bucket and is excluded from
// the total. Percentages are rounded to one decimal; rounding drift away
// from a 100 sum is accepted, not corrected.
func buildTimelinessReport(submissions []models.Submission, now time.Time) dto.TimelinessReport {
	counts := map[string]int{}
	total := 0

	for _, submission := range submissions {
		dueDate := submission.Task.DueDate
		if dueDate == nil {
			continue
		}

		switch {
		case submission.IsSubmitted && submission.SubmittedAt != nil && submission.SubmittedAt.After(*dueDate):
			counts[TimelinessLate]++
		case submission.IsSubmitted:
			counts[TimelinessOnTime]++
		case now.After(*dueDate):
			counts[TimelinessNotSubmitted]++
		default:
			continue
		}
		total++
	}

	buckets := make([]dto.TimelinessBucket, 0, 3)
	for _, name := range []string{TimelinessOnTime, TimelinessLate, TimelinessNotSubmitted} {
		percent := 0.0
		if total > 0 {
			percent = roundOneDecimal(float64(counts[name]) / float64(total) * 100)
		}
		buckets = append(buckets, dto.TimelinessBucket{Bucket: name, Count: counts[name], Percent: percent})
	}

	return dto.TimelinessReport{Total: total, Buckets: buckets}
}

func (s *analyticsService) WeeklyActivity(ctx context.Context, weeks int) ([]dto.WeeklyActivityRow, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.weekly_activity")
	defer span.End()
	defer s.observe("weekly_activity", s.now())

	if weeks <= 0 {
		weeks = s.defaultWeeks
	}

	now := s.now()
	since := startOfWeek(now).AddDate(0, 0, -7*(weeks-1))

	tasks, err := s.repo.ListTasksCreatedSince(ctx, since)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_tasks_failed")
		return nil, err
	}

	rows := buildWeeklyRows(tasks, since, weeks)
	span.SetAttributes(attribute.Int("analytics.weeks", weeks))
	return rows, nil
}

// buildWeeklyRows bins task creation timestamps into ISO-Monday-aligned
// weeks, always emitting exactly one row per week so the series has no gaps.
func buildWeeklyRows(tasks []models.Task, since time.Time, weeks int) []dto.WeeklyActivityRow {
	rows := make([]dto.WeeklyActivityRow, weeks)
	for i := range rows {
		rows[i] = dto.WeeklyActivityRow{WeekStart: since.AddDate(0, 0, 7*i)}
	}

	for _, task := range tasks {
		week := startOfWeek(task.CreatedAt)
		index := int(week.Sub(since).Hours() / (24 * 7))
		if index < 0 || index >= weeks {
			continue
		}

		switch task.Kind {
		case models.TaskKindAssignment:
			rows[index].Assignments++
		case models.TaskKindQuiz:
			rows[index].Quizzes++
		case models.TaskKindExam:
			rows[index].Exams++
		}
		rows[index].Total++
	}

	return rows
}

func (s *analyticsService) QuizPerformanceCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.QuizPerformanceByTopic(ctx)
	if err != nil {
		return nil, err
	}
	return marshalTopicCSV(rows)
}

func (s *analyticsService) TimelinessCSV(ctx context.Context) ([]byte, error) {
	report, err := s.SubmissionTimeliness(ctx)
	if err != nil {
		return nil, err
	}
	return marshalTimelinessCSV(report)
}

func (s *analyticsService) WeeklyActivityCSV(ctx context.Context, weeks int) ([]byte, error) {
	rows, err := s.WeeklyActivity(ctx, weeks)
	if err != nil {
		return nil, err
	}
	return marshalWeeklyCSV(rows)
}

func marshalTopicCSV(rows []dto.TopicPerformanceRow) ([]byte, error) {
	return writeCSV([]string{"topic", "teacher_ids", "graded_count", "mean_percent"}, len(rows), func(i int) []string {
		teachers := make([]string, 0, len(rows[i].TeacherIDs))
		for _, id := range rows[i].TeacherIDs {
			teachers = append(teachers, strconv.FormatUint(uint64(id), 10))
		}
		return []string{
			rows[i].Topic,
			strings.Join(teachers, "|"),
			strconv.Itoa(rows[i].GradedCount),
			formatDecimal(rows[i].MeanPercent),
		}
	})
}

func marshalTimelinessCSV(report dto.TimelinessReport) ([]byte, error) {
	return writeCSV([]string{"bucket", "count", "percent"}, len(report.Buckets), func(i int) []string {
		bucket := report.Buckets[i]
		return []string{bucket.Bucket, strconv.Itoa(bucket.Count), formatDecimal(bucket.Percent)}
	})
}

func marshalWeeklyCSV(rows []dto.WeeklyActivityRow) ([]byte, error) {
	return writeCSV([]string{"week_start", "assignments", "quizzes", "exams", "total"}, len(rows), func(i int) []string {
		row := rows[i]
		return []string{
			row.WeekStart.Format("2006-01-02"),
			strconv.Itoa(row.Assignments),
			strconv.Itoa(row.Quizzes),
			strconv.Itoa(row.Exams),
			strconv.Itoa(row.Total),
		}
	})
}

func writeCSV(header []string, count int, row func(int) []string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		if err := writer.Write(row(i)); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *analyticsService) observe(report string, start time.Time) {
	observability.ReportLatency().WithLabelValues(report).Observe(time.Since(start).Seconds())
}

func formatDecimal(value float64) string {
	return fmt.Sprintf("%.1f", value)
}

func roundOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}

// startOfWeek returns 00:00 UTC of the ISO week (Monday) containing t.
func startOfWeek(t time.Time) time.Time {
	utc := t.UTC()
	weekday := int(utc.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := utc.AddDate(0, 0, -(weekday - 1))
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}
