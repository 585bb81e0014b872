package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/courseloop/coursework-api/internal/blobstore"
	"github.com/courseloop/coursework-api/internal/models"
	"github.com/courseloop/coursework-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

var testClock = time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return testClock
}

// Sample payloads whose magic bytes match their declared media types.
func pngUpload(name string) Upload {
	data := append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 64)...)
	return Upload{Data: data, FileName: name, MediaType: "image/png"}
}

func pdfUpload(name string) Upload {
	return Upload{Data: []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"), FileName: name, MediaType: "application/pdf"}
}

type pairKey struct {
	taskID    uint
	studentID uint
}

type fakeSubmissionRepo struct {
	mu        sync.Mutex
	rows      map[pairKey]models.Submission
	nextID    uint
	createErr error
	updateErr error
	// tasksRef, when set, stands in for the Task preload of the real queries.
	tasksRef *fakeTaskRepo
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{rows: map[pairKey]models.Submission{}}
}

func (r *fakeSubmissionRepo) withTask(row models.Submission) models.Submission {
	if r.tasksRef != nil {
		if task, ok := r.tasksRef.tasks[row.TaskID]; ok {
			row.Task = task
		}
	}
	return row
}

func (r *fakeSubmissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Submission
	for _, row := range r.rows {
		if filter.TaskID != nil && row.TaskID != *filter.TaskID {
			continue
		}
		if filter.StudentID != nil && row.StudentID != *filter.StudentID {
			continue
		}
		if filter.Submitted != nil && row.IsSubmitted != *filter.Submitted {
			continue
		}
		if filter.Graded != nil && (row.Grade != nil) != *filter.Graded {
			continue
		}
		out = append(out, r.withTask(row))
	}
	return out, nil
}

func (r *fakeSubmissionRepo) GetByPair(ctx context.Context, taskID, studentID uint) (models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[pairKey{taskID, studentID}]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return r.withTask(row), nil
}

func (r *fakeSubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}

	key := pairKey{submission.TaskID, submission.StudentID}
	if _, ok := r.rows[key]; ok {
		return gorm.ErrDuplicatedKey
	}

	r.nextID++
	submission.ID = r.nextID
	r.rows[key] = *submission
	return nil
}

func (r *fakeSubmissionRepo) UpdateConditional(ctx context.Context, submission *models.Submission, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updateErr != nil {
		return r.updateErr
	}

	key := pairKey{submission.TaskID, submission.StudentID}
	stored, ok := r.rows[key]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}

	submission.Version = expectedVersion + 1
	r.rows[key] = *submission
	return nil
}

func (r *fakeSubmissionRepo) ListByTask(ctx context.Context, taskID uint) ([]models.Submission, error) {
	id := taskID
	return r.List(ctx, repository.SubmissionFilter{TaskID: &id})
}

type fakeTaskRepo struct {
	mu        sync.Mutex
	tasks     map[uint]models.Task
	assignees map[pairKey]bool
	nextID    uint
	createErr error
	updateErr error
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[uint]models.Task{}, assignees: map[pairKey]bool{}}
}

func (r *fakeTaskRepo) put(task models.Task) models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == 0 {
		r.nextID++
		task.ID = r.nextID
	}
	r.tasks[task.ID] = task
	return task
}

func (r *fakeTaskRepo) List(ctx context.Context, filter repository.TaskFilter) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Task
	for _, task := range r.tasks {
		if filter.OwnerID != nil && task.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Kind != nil && task.Kind != *filter.Kind {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func (r *fakeTaskRepo) GetByID(ctx context.Context, id uint) (models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return models.Task{}, gorm.ErrRecordNotFound
	}
	return task, nil
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *models.Task) error {
	if r.createErr != nil {
		return r.createErr
	}
	*task = r.put(*task)
	return nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, task *models.Task) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	*task = r.put(*task)
	return nil
}

func (r *fakeTaskRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tasks, id)
	for key := range r.assignees {
		if key.taskID == id {
			delete(r.assignees, key)
		}
	}
	return nil
}

func (r *fakeTaskRepo) AddAssignees(ctx context.Context, taskID uint, studentIDs []uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, studentID := range studentIDs {
		r.assignees[pairKey{taskID, studentID}] = true
	}
	return nil
}

func (r *fakeTaskRepo) HasAssignee(ctx context.Context, taskID, studentID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.assignees[pairKey{taskID, studentID}], nil
}

func (r *fakeTaskRepo) ListAssignees(ctx context.Context, taskID uint) ([]models.TaskAssignee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.TaskAssignee
	for key := range r.assignees {
		if key.taskID == taskID {
			out = append(out, models.TaskAssignee{TaskID: key.taskID, StudentID: key.studentID})
		}
	}
	return out, nil
}

type fakeStudentRepo struct {
	students map[uint]models.Student
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: map[uint]models.Student{}}
}

func (r *fakeStudentRepo) GetByID(ctx context.Context, id uint) (models.Student, error) {
	student, ok := r.students[id]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return student, nil
}

func (r *fakeStudentRepo) ListByTeacher(ctx context.Context, teacherID uint) ([]models.Student, error) {
	var out []models.Student
	for _, student := range r.students {
		if student.TeacherID == teacherID {
			out = append(out, student)
		}
	}
	return out, nil
}

type fakeContentStore struct {
	mu      sync.Mutex
	objects map[string]blobstore.Object
	nextID  int
	putErr  error
	deleted []string
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{objects: map[string]blobstore.Object{}}
}

func (s *fakeContentStore) Put(ctx context.Context, input blobstore.PutInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.putErr != nil {
		return "", s.putErr
	}

	s.nextID++
	id := fmt.Sprintf("blob-%d", s.nextID)
	s.objects[id] = blobstore.Object{
		ID:        id,
		Data:      input.Data,
		FileName:  input.FileName,
		MediaType: input.MediaType,
		SizeBytes: int64(len(input.Data)),
		Metadata:  input.Metadata,
	}
	return id, nil
}

func (s *fakeContentStore) Get(ctx context.Context, id string) (blobstore.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	object, ok := s.objects[id]
	if !ok {
		return blobstore.Object{}, blobstore.ErrBlobNotFound
	}
	return object, nil
}

func (s *fakeContentStore) Delete(ctx context.Context, id string) (blobstore.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleted = append(s.deleted, id)
	if _, ok := s.objects[id]; !ok {
		return blobstore.DeleteResultAlreadyAbsent, nil
	}
	delete(s.objects, id)
	return blobstore.DeleteResultDeleted, nil
}

func (s *fakeContentStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}
