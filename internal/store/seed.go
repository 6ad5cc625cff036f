package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mind-engage/mindengage-french/internal/grading"
)

// Bundle is a content file: courses plus the quizzes nested under them.
type Bundle struct {
	Courses []Course       `json:"courses"`
	Quizzes []grading.Quiz `json:"quizzes"`
}

// Validate checks ids and that every quiz names a course of the bundle.
func (b Bundle) Validate() error {
	courses := make(map[string]bool, len(b.Courses))
	for i, c := range b.Courses {
		if c.ID == "" {
			return fmt.Errorf("course #%d: missing id", i)
		}
		courses[c.ID] = true
	}
	for i, q := range b.Quizzes {
		if q.ID == "" {
			return fmt.Errorf("quiz #%d: missing id", i)
		}
		if !courses[q.CourseID] {
			return fmt.Errorf("quiz %q: unknown course %q", q.ID, q.CourseID)
		}
	}
	return nil
}

// Seed decodes a Bundle from r and writes it to cs, courses first. Missing
// timestamps are set to now.
func Seed(ctx context.Context, cs ContentStore, r io.Reader, now time.Time) (Bundle, error) {
	var b Bundle
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return Bundle{}, fmt.Errorf("decode content: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Bundle{}, err
	}
	for _, c := range b.Courses {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
		if err := cs.PutCourse(ctx, c); err != nil {
			return Bundle{}, fmt.Errorf("course %q: %w", c.ID, err)
		}
	}
	for _, q := range b.Quizzes {
		if q.CreatedAt.IsZero() {
			q.CreatedAt = now
		}
		if q.UpdatedAt.IsZero() {
			q.UpdatedAt = now
		}
		if err := cs.PutQuiz(ctx, q); err != nil {
			return Bundle{}, fmt.Errorf("quiz %q: %w", q.ID, err)
		}
	}
	return b, nil
}
