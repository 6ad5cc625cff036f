package store

import (
	"context"
	"errors"
	"time"

	"github.com/mind-engage/mindengage-french/internal/access"
	"github.com/mind-engage/mindengage-french/internal/grading"
	"github.com/mind-engage/mindengage-french/internal/progress"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a student update kept racing other writers.
	ErrConflict = errors.New("concurrent update conflict")
)

type CourseContent struct {
	Text     string `json:"text" bson:"text"`
	AudioURL string `json:"audioUrl,omitempty" bson:"audioUrl,omitempty"`
	ImageURL string `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	VideoURL string `json:"videoUrl,omitempty" bson:"videoUrl,omitempty"`
}

type Course struct {
	ID                string        `json:"id" bson:"_id"`
	Title             string        `json:"title" bson:"title"`
	Description       string        `json:"description" bson:"description"`
	Level             access.Level  `json:"level" bson:"level"`
	Content           CourseContent `json:"content" bson:"content"`
	IsPublished       bool          `json:"isPublished" bson:"isPublished"`
	Order             int           `json:"order" bson:"order"`
	Prerequisites     []string      `json:"prerequisites" bson:"prerequisites"`
	EstimatedDuration int           `json:"estimatedDuration" bson:"estimatedDuration"` // minutes
	CreatedAt         time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt" bson:"updatedAt"`
	CreatedBy         string        `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
}

type CourseFilter struct {
	Level         string
	PublishedOnly bool
}

type QuizFilter struct {
	CourseID      string
	Level         string
	PublishedOnly bool
}

type SubmissionRecord struct {
	ID          string                 `json:"id" bson:"_id"`
	QuizID      string                 `json:"quizId" bson:"quizId"`
	CourseID    string                 `json:"courseId" bson:"courseId"`
	StudentID   string                 `json:"studentId" bson:"studentId"`
	Answers     []grading.GradedAnswer `json:"answers" bson:"answers"`
	Score       int                    `json:"score" bson:"score"`
	TotalPoints int                    `json:"totalPoints" bson:"totalPoints"`
	Percentage  int                    `json:"percentage" bson:"percentage"`
	Passed      bool                   `json:"passed" bson:"passed"`
	SubmittedAt time.Time              `json:"submittedAt" bson:"submittedAt"`
	TimeSpent   int                    `json:"timeSpent" bson:"timeSpent"`
}

// ContentStore holds courses and the quizzes nested under them.
type ContentStore interface {
	PutCourse(ctx context.Context, c Course) error
	GetCourse(ctx context.Context, id string) (Course, error)
	// ListCourses returns courses ordered by Order, then ID.
	ListCourses(ctx context.Context, f CourseFilter) ([]Course, error)

	PutQuiz(ctx context.Context, q grading.Quiz) error
	// ListQuizzes returns quizzes in course order, then quiz Order.
	ListQuizzes(ctx context.Context, f QuizFilter) ([]grading.Quiz, error)
	// FindQuiz resolves a quiz id across all courses; the first course (by
	// course order) holding it wins.
	FindQuiz(ctx context.Context, quizID string) (grading.Quiz, error)
	CountQuizzes(ctx context.Context, courseID string, publishedOnly bool) (int, error)
}

// UpdateFunc maps the current student record to the one to write back.
type UpdateFunc func(prior progress.Record) (progress.Record, error)

// StudentStore keeps student documents and quiz submissions.
//
// UpdateStudent must apply fn atomically with respect to other updates of
// the same student: implementations read, call fn, and write inside one
// transaction or retry on a revision mismatch. A missing student is passed
// to fn as an empty record and created from its result.
type StudentStore interface {
	GetStudent(ctx context.Context, uid string) (progress.Record, error)
	CreateStudent(ctx context.Context, uid string, rec progress.Record) error
	UpdateStudent(ctx context.Context, uid string, fn UpdateFunc) (progress.Record, error)
	ListStudentIDs(ctx context.Context) ([]string, error)
	SaveSubmission(ctx context.Context, s SubmissionRecord) (string, error)
}

type Store interface {
	ContentStore
	StudentStore
	Close(ctx context.Context) error
}
