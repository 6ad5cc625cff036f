// Package quizflow runs the learner-facing flows: listing gated content,
// opening a quiz, and submitting answers for grading.
package quizflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/mind-engage/mindengage-french/internal/access"
	"github.com/mind-engage/mindengage-french/internal/events"
	"github.com/mind-engage/mindengage-french/internal/grading"
	"github.com/mind-engage/mindengage-french/internal/progress"
	"github.com/mind-engage/mindengage-french/internal/store"
)

// ErrUnavailable is returned for quizzes that exist but are not published.
var ErrUnavailable = errors.New("quiz is not available")

const premiumPlaceholder = "Premium content requires subscription."

// AccessError carries a negative access decision up to the HTTP layer.
type AccessError struct {
	Decision access.Decision
	Level    access.Level
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Decision.Reason)
}

// Identity is the verified caller, as asserted by the identity provider.
type Identity struct {
	UID   string
	Email string
	Name  string
}

type StudentStatus struct {
	HasSubscription  bool `json:"hasSubscription"`
	IsActive         bool `json:"isActive"`
	CanAccessPremium bool `json:"canAccessPremium"`
}

type CourseView struct {
	store.Course
	RequiresSubscription bool `json:"requiresSubscription"`
	CanAccess            bool `json:"canAccess"`
	QuizCount            int  `json:"quizCount"`
}

type QuizView struct {
	grading.Quiz
	RequiresSubscription bool `json:"requiresSubscription"`
	CanAccess            bool `json:"canAccess"`
}

type Outcome struct {
	SubmissionID string         `json:"submissionId"`
	Result       grading.Result `json:"results"`
	Message      string         `json:"message"`
}

type Service struct {
	Store  store.Store
	Policy *access.Policy
	Events events.Publisher
	Now    func() time.Time
}

func NewService(st store.Store, policy *access.Policy, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{Store: st, Policy: policy, Events: pub, Now: time.Now}
}

// student loads the caller's record. When create is set, a missing record is
// created with defaults; otherwise the defaults are only assumed.
func (s *Service) student(ctx context.Context, id Identity, create bool) (progress.Record, access.State, error) {
	rec, err := s.Store.GetStudent(ctx, id.UID)
	switch {
	case err == nil:
		return rec, store.AccessState(rec), nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, access.State{}, fmt.Errorf("load student: %w", err)
	}
	if !create {
		return nil, access.DefaultState(), nil
	}
	rec = store.NewStudentRecord(id.Email, id.Name, s.Now())
	if err := s.Store.CreateStudent(ctx, id.UID, rec); err != nil {
		return nil, access.State{}, fmt.Errorf("create student: %w", err)
	}
	return rec, store.AccessState(rec), nil
}

func status(st access.State) StudentStatus {
	return StudentStatus{HasSubscription: st.HasSubscription, IsActive: st.IsActive, CanAccessPremium: st.HasSubscription}
}

func inactive(st access.State) error {
	if st.IsActive {
		return nil
	}
	return &AccessError{Decision: access.Decision{Allowed: false, Reason: access.ReasonInactive}}
}

// ListCourses returns published courses in order. Gated course content is
// replaced with a placeholder for learners without a subscription.
func (s *Service) ListCourses(ctx context.Context, id Identity, level string) ([]CourseView, StudentStatus, error) {
	_, st, err := s.student(ctx, id, false)
	if err != nil {
		return nil, StudentStatus{}, err
	}
	if err := inactive(st); err != nil {
		return nil, status(st), err
	}
	courses, err := s.Store.ListCourses(ctx, store.CourseFilter{Level: level, PublishedOnly: true})
	if err != nil {
		return nil, status(st), fmt.Errorf("list courses: %w", err)
	}
	out := make([]CourseView, 0, len(courses))
	for _, c := range courses {
		n, err := s.Store.CountQuizzes(ctx, c.ID, true)
		if err != nil {
			return nil, status(st), fmt.Errorf("count quizzes: %w", err)
		}
		d := s.Policy.CanAccess(c.Level, st)
		v := CourseView{
			Course:               c,
			RequiresSubscription: s.Policy.RequiresSubscription(c.Level),
			CanAccess:            d.Allowed,
			QuizCount:            n,
		}
		if !d.Allowed {
			v.Content = store.CourseContent{Text: premiumPlaceholder}
		}
		if v.Prerequisites == nil {
			v.Prerequisites = []string{}
		}
		out = append(out, v)
	}
	return out, status(st), nil
}

// ListQuizzes returns published quizzes sorted by order, then title. Answer
// keys are never included, and questions are hidden when the learner cannot
// open the quiz.
func (s *Service) ListQuizzes(ctx context.Context, id Identity, courseID, level string) ([]QuizView, StudentStatus, error) {
	_, st, err := s.student(ctx, id, false)
	if err != nil {
		return nil, StudentStatus{}, err
	}
	if err := inactive(st); err != nil {
		return nil, status(st), err
	}
	quizzes, err := s.Store.ListQuizzes(ctx, store.QuizFilter{CourseID: courseID, Level: level, PublishedOnly: true})
	if err != nil {
		return nil, status(st), fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]QuizView, 0, len(quizzes))
	for _, q := range quizzes {
		d := s.Policy.CanAccess(q.Level, st)
		view := grading.Redact(q)
		if !d.Allowed {
			view = grading.HideQuestions(view)
		}
		out = append(out, QuizView{
			Quiz:                 view,
			RequiresSubscription: s.Policy.RequiresSubscription(q.Level),
			CanAccess:            d.Allowed,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Title < out[j].Title
	})
	return out, status(st), nil
}

// GetQuiz opens a single published quiz for the caller.
func (s *Service) GetQuiz(ctx context.Context, id Identity, quizID string) (grading.Quiz, StudentStatus, error) {
	_, st, err := s.student(ctx, id, true)
	if err != nil {
		return grading.Quiz{}, StudentStatus{}, err
	}
	if err := inactive(st); err != nil {
		return grading.Quiz{}, status(st), err
	}
	q, err := s.Store.FindQuiz(ctx, quizID)
	if err != nil {
		return grading.Quiz{}, status(st), err
	}
	if !q.IsPublished {
		return grading.Quiz{}, status(st), ErrUnavailable
	}
	if d := s.Policy.CanAccess(q.Level, st); !d.Allowed {
		return grading.Quiz{}, status(st), &AccessError{Decision: d, Level: q.Level}
	}
	return grading.Redact(q), status(st), nil
}

// Submit grades raw answers for quizID and records the attempt:
// the caller's account must be active, the payload well formed, the quiz
// known, and its level open to the caller. The graded result is saved, folded
// into the student's progress, and announced as a quiz.submitted event.
func (s *Service) Submit(ctx context.Context, id Identity, quizID string, raw []byte) (Outcome, error) {
	_, st, err := s.student(ctx, id, false)
	if err != nil {
		return Outcome{}, err
	}
	if err := inactive(st); err != nil {
		return Outcome{}, err
	}
	sub, err := grading.ParseSubmission(raw)
	if err != nil {
		return Outcome{}, err
	}
	q, err := s.Store.FindQuiz(ctx, quizID)
	if err != nil {
		return Outcome{}, err
	}
	if d := s.Policy.CanAccess(q.Level, st); !d.Allowed {
		return Outcome{}, &AccessError{Decision: d, Level: q.Level}
	}

	res := grading.Grade(q, sub)
	now := s.Now()
	subID, err := s.Store.SaveSubmission(ctx, store.SubmissionRecord{
		QuizID:      q.ID,
		CourseID:    q.CourseID,
		StudentID:   id.UID,
		Answers:     res.Answers,
		Score:       res.EarnedPoints,
		TotalPoints: res.TotalPoints,
		Percentage:  res.Percentage,
		Passed:      res.Passed,
		SubmittedAt: now,
		TimeSpent:   sub.TimeSpent,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("save submission: %w", err)
	}

	// The gate is applied again to the locked record: the account may have
	// changed since it was read above.
	_, err = s.Store.UpdateStudent(ctx, id.UID, func(prior progress.Record) (progress.Record, error) {
		if len(prior) == 0 {
			prior = store.NewStudentRecord(id.Email, id.Name, now)
		} else if d := s.Policy.CanAccess(q.Level, store.AccessState(prior)); !d.Allowed {
			return nil, &AccessError{Decision: d, Level: q.Level}
		}
		next := progress.Reconcile(prior, res)
		next["lastUpdated"] = store.Timestamp(now)
		return next, nil
	})
	var ae *AccessError
	if errors.As(err, &ae) {
		return Outcome{}, ae
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("update progress: %w", err)
	}

	s.publish(ctx, subID, q, id, res, now)
	return Outcome{SubmissionID: subID, Result: res, Message: res.Message()}, nil
}

func (s *Service) publish(ctx context.Context, subID string, q grading.Quiz, id Identity, res grading.Result, now time.Time) {
	e, err := events.New(events.TypeQuizSubmitted, subID, events.QuizSubmitted{
		SubmissionID: subID,
		QuizID:       q.ID,
		CourseID:     q.CourseID,
		StudentID:    id.UID,
		Score:        res.EarnedPoints,
		TotalPoints:  res.TotalPoints,
		Percentage:   res.Percentage,
		Passed:       res.Passed,
	}, now)
	if err == nil {
		err = s.Events.Publish(ctx, e)
	}
	if err != nil {
		log.Printf("publish %s for submission %s: %v", events.TypeQuizSubmitted, subID, err)
	}
}
