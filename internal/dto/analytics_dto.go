package dto

import "time"

// TopicPerformanceRow is one topic group in the quiz performance report.
// Topic equality is exact title equality, case-sensitive.
type TopicPerformanceRow struct {
	Topic       string  `json:"topic"`
	TeacherIDs  []uint  `json:"teacher_ids"`
	GradedCount int     `json:"graded_count"`
	MeanPercent float64 `json:"mean_percent"`
}

// TimelinessBucket is one classification in the timeliness report.
type TimelinessBucket struct {
	Bucket  string  `json:"bucket"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// TimelinessReport groups every due-dated submission into its bucket.
// Percentages are rounded to one decimal and may not sum to exactly 100.
type TimelinessReport struct {
	Total   int                `json:"total"`
	Buckets []TimelinessBucket `json:"buckets"`
}

// WeeklyActivityRow is one ISO-week bin of task creation counts. Weeks with
// no activity are still present as zero rows so chart axes stay continuous.
type WeeklyActivityRow struct {
	WeekStart   time.Time `json:"week_start"`
	Assignments int       `json:"assignments"`
	Quizzes     int       `json:"quizzes"`
	Exams       int       `json:"exams"`
	Total       int       `json:"total"`
}
