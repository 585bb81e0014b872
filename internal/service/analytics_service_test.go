package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courseloop/coursework-api/internal/dto"
	"github.com/courseloop/coursework-api/internal/models"
)

type fakeAnalyticsRepo struct {
	graded      []models.Submission
	withDue     []models.Submission
	tasks       []models.Task
	gradedByKind map[models.TaskKind][]models.Submission
}

func (r *fakeAnalyticsRepo) ListGradedSubmissionsByKind(ctx context.Context, kind models.TaskKind) ([]models.Submission, error) {
	if r.gradedByKind != nil {
		return r.gradedByKind[kind], nil
	}
	return r.graded, nil
}

func (r *fakeAnalyticsRepo) ListSubmissionsWithDueDates(ctx context.Context) ([]models.Submission, error) {
	return r.withDue, nil
}

func (r *fakeAnalyticsRepo) ListTasksCreatedSince(ctx context.Context, since time.Time) ([]models.Task, error) {
	var out []models.Task
	for _, task := range r.tasks {
		if !task.CreatedAt.Before(since) {
			out = append(out, task)
		}
	}
	return out, nil
}

func newAnalyticsFixture(repo *fakeAnalyticsRepo) *analyticsService {
	svc := NewAnalyticsService(repo, 12, testLogger()).(*analyticsService)
	svc.now = fixedClock
	return svc
}

func gradedSubmission(task models.Task, grade float64) models.Submission {
	return models.Submission{TaskID: task.ID, Grade: &grade, Task: task, IsSubmitted: true}
}

func TestQuizPerformanceByTopic(t *testing.T) {
	quizA := models.Task{ID: 1, Kind: models.TaskKindQuiz, OwnerID: 10, Title: "Algebra Quiz", TotalPoints: 100}
	quizB := models.Task{ID: 2, Kind: models.TaskKindQuiz, OwnerID: 11, Title: "Algebra Quiz", TotalPoints: 50}
	quizC := models.Task{ID: 3, Kind: models.TaskKindQuiz, OwnerID: 10, Title: "Algebra Quiz II", TotalPoints: 100}

	repo := &fakeAnalyticsRepo{graded: []models.Submission{
		gradedSubmission(quizA, 70),
		gradedSubmission(quizB, 45), // 90 percent on a 50-point scale
		gradedSubmission(quizC, 55),
	}}

	rows, err := newAnalyticsFixture(repo).QuizPerformanceByTopic(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Exact-title groups merge across teachers; near-duplicates stay apart.
	require.Equal(t, "Algebra Quiz", rows[0].Topic)
	require.Equal(t, []uint{10, 11}, rows[0].TeacherIDs)
	require.Equal(t, 2, rows[0].GradedCount)
	require.Equal(t, 80.0, rows[0].MeanPercent)

	require.Equal(t, "Algebra Quiz II", rows[1].Topic)
	require.Equal(t, []uint{10}, rows[1].TeacherIDs)
	require.Equal(t, 1, rows[1].GradedCount)
	require.Equal(t, 55.0, rows[1].MeanPercent)
}

func TestQuizPerformanceEmpty(t *testing.T) {
	rows, err := newAnalyticsFixture(&fakeAnalyticsRepo{}).QuizPerformanceByTopic(context.Background())
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestSubmissionTimeliness(t *testing.T) {
	pastDue := testClock.Add(-48 * time.Hour)
	futureDue := testClock.Add(48 * time.Hour)
	onTime := pastDue.Add(-time.Hour)
	late := pastDue.Add(time.Hour)

	taskPast := models.Task{ID: 1, DueDate: &pastDue}
	taskFuture := models.Task{ID: 2, DueDate: &futureDue}

	repo := &fakeAnalyticsRepo{withDue: []models.Submission{
		{Task: taskPast, IsSubmitted: true, SubmittedAt: &onTime},
		{Task: taskPast, IsSubmitted: true, SubmittedAt: &onTime},
		{Task: taskPast, IsSubmitted: true, SubmittedAt: &late},
		{Task: taskPast},
		// Pending with a future deadline fits no bucket yet.
		{Task: taskFuture},
		// Submitted against a future deadline is on time.
		{Task: taskFuture, IsSubmitted: true, SubmittedAt: &onTime},
	}}

	report, err := newAnalyticsFixture(repo).SubmissionTimeliness(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, report.Total)
	require.Len(t, report.Buckets, 3)

	byName := map[string]dto.TimelinessBucket{}
	for _, bucket := range report.Buckets {
		byName[bucket.Bucket] = bucket
	}

	require.Equal(t, 3, byName[TimelinessOnTime].Count)
	require.Equal(t, 60.0, byName[TimelinessOnTime].Percent)
	require.Equal(t, 1, byName[TimelinessLate].Count)
	require.Equal(t, 20.0, byName[TimelinessLate].Percent)
	require.Equal(t, 1, byName[TimelinessNotSubmitted].Count)
	require.Equal(t, 20.0, byName[TimelinessNotSubmitted].Percent)
}

func TestSubmissionTimelinessEmpty(t *testing.T) {
	report, err := newAnalyticsFixture(&fakeAnalyticsRepo{}).SubmissionTimeliness(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.Total)
	require.Len(t, report.Buckets, 3)
	for _, bucket := range report.Buckets {
		require.Zero(t, bucket.Count)
		require.Zero(t, bucket.Percent)
	}
}

func TestWeeklyActivity(t *testing.T) {
	// testClock is Wednesday 2026-04-15; its ISO week starts Monday 2026-04-13.
	currentWeek := time.Date(2026, 4, 13, 0, 0, 0, 0, time.UTC)
	previousWeek := currentWeek.AddDate(0, 0, -7)

	repo := &fakeAnalyticsRepo{tasks: []models.Task{
		{Kind: models.TaskKindAssignment, CreatedAt: currentWeek.Add(30 * time.Hour)},
		{Kind: models.TaskKindQuiz, CreatedAt: currentWeek.Add(50 * time.Hour)},
		{Kind: models.TaskKindExam, CreatedAt: previousWeek.Add(10 * time.Hour)},
		{Kind: models.TaskKindQuiz, CreatedAt: previousWeek.Add(20 * time.Hour)},
	}}

	rows, err := newAnalyticsFixture(repo).WeeklyActivity(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// The series is gap-free and ends at the current week.
	require.Equal(t, currentWeek.AddDate(0, 0, -21), rows[0].WeekStart)
	require.Equal(t, currentWeek, rows[3].WeekStart)

	require.Zero(t, rows[0].Total)
	require.Zero(t, rows[1].Total)

	require.Equal(t, 1, rows[2].Exams)
	require.Equal(t, 1, rows[2].Quizzes)
	require.Equal(t, 2, rows[2].Total)

	require.Equal(t, 1, rows[3].Assignments)
	require.Equal(t, 1, rows[3].Quizzes)
	require.Equal(t, 2, rows[3].Total)
}

func TestWeeklyActivityDefaultWindow(t *testing.T) {
	rows, err := newAnalyticsFixture(&fakeAnalyticsRepo{}).WeeklyActivity(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 12)
}

func TestCSVExportsMatchComputedReports(t *testing.T) {
	quiz := models.Task{ID: 1, Kind: models.TaskKindQuiz, OwnerID: 10, Title: "Algebra Quiz", TotalPoints: 100}
	pastDue := testClock.Add(-48 * time.Hour)
	onTime := pastDue.Add(-time.Hour)

	repo := &fakeAnalyticsRepo{
		graded: []models.Submission{gradedSubmission(quiz, 72.5)},
		withDue: []models.Submission{
			{Task: models.Task{ID: 2, DueDate: &pastDue}, IsSubmitted: true, SubmittedAt: &onTime},
			{Task: models.Task{ID: 2, DueDate: &pastDue}},
		},
	}
	svc := newAnalyticsFixture(repo)
	ctx := context.Background()

	topicCSV, err := svc.QuizPerformanceCSV(ctx)
	require.NoError(t, err)
	require.Equal(t, "topic,teacher_ids,graded_count,mean_percent\nAlgebra Quiz,10,1,72.5\n", string(topicCSV))

	timelinessCSV, err := svc.TimelinessCSV(ctx)
	require.NoError(t, err)
	require.Equal(t, "bucket,count,percent\nON_TIME,1,50.0\nLATE,0,0.0\nNOT_SUBMITTED,1,50.0\n", string(timelinessCSV))

	weeklyCSV, err := svc.WeeklyActivityCSV(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "week_start,assignments,quizzes,exams,total\n2026-04-06,0,0,0,0\n2026-04-13,0,0,0,0\n", string(weeklyCSV))

	// The export is a serialization of the same computed rows.
	rows, err := svc.QuizPerformanceByTopic(ctx)
	require.NoError(t, err)
	recomputed, err := marshalTopicCSV(rows)
	require.NoError(t, err)
	require.Equal(t, topicCSV, recomputed)
}
