// Package events publishes domain events such as graded quiz submissions.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

const TypeQuizSubmitted = "quiz.submitted"

type Event struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Key  string          `json:"key"` // natural key, e.g. submission id
	Data json.RawMessage `json:"data"`
	At   time.Time       `json:"at"`
}

// New builds an event with a fresh id and data marshalled from v.
func New(typ, key string, v any, at time.Time) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: uuid.NewString(), Type: typ, Key: key, Data: data, At: at}, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// QuizSubmitted is the payload of TypeQuizSubmitted.
type QuizSubmitted struct {
	SubmissionID string `json:"submissionId"`
	QuizID       string `json:"quizId"`
	CourseID     string `json:"courseId"`
	StudentID    string `json:"studentId"`
	Score        int    `json:"score"`
	TotalPoints  int    `json:"totalPoints"`
	Percentage   int    `json:"percentage"`
	Passed       bool   `json:"passed"`
}
