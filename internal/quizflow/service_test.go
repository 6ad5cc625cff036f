package quizflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-french/internal/access"
	"github.com/mind-engage/mindengage-french/internal/db"
	"github.com/mind-engage/mindengage-french/internal/events"
	"github.com/mind-engage/mindengage-french/internal/grading"
	"github.com/mind-engage/mindengage-french/internal/progress"
	"github.com/mind-engage/mindengage-french/internal/quizflow"
	"github.com/mind-engage/mindengage-french/internal/store"
	"github.com/mind-engage/mindengage-french/internal/store/sqlstore"
)

type recorder struct{ got []events.Event }

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.got = append(r.got, e)
	return nil
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*quizflow.Service, *sqlstore.SQLStore, *recorder) {
	t.Helper()
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	st := sqlstore.New(dbh, db.DriverSQLite)
	t.Cleanup(func() { _ = st.Close(ctx) })

	for _, c := range []store.Course{
		{ID: "c-a1", Title: "Débutant", Level: access.LevelA1, IsPublished: true, Order: 1,
			Content: store.CourseContent{Text: "Bonjour!"}},
		{ID: "c-b1", Title: "Intermédiaire", Level: access.LevelB1, IsPublished: true, Order: 2,
			Content: store.CourseContent{Text: "Le subjonctif..."}},
	} {
		require.NoError(t, st.PutCourse(ctx, c))
	}
	for _, q := range []grading.Quiz{
		{ID: "greetings", CourseID: "c-a1", Title: "Bonjour", Level: access.LevelA1, IsPublished: true, PassingScore: 50,
			Questions: []grading.Question{
				{ID: "q1", CorrectAnswerID: "a", Points: grading.Points(1), Explanation: "salut"},
				{ID: "q2", CorrectAnswerID: "b", Points: grading.Points(1)},
			}},
		{ID: "subjonctif", CourseID: "c-b1", Title: "Le subjonctif", Level: access.LevelB1, IsPublished: true, PassingScore: 70,
			Questions: []grading.Question{{ID: "q1", CorrectAnswerID: "x"}}},
		{ID: "draft", CourseID: "c-a1", Title: "Brouillon", Level: access.LevelA1, IsPublished: false},
	} {
		require.NoError(t, st.PutQuiz(ctx, q))
	}

	rec := &recorder{}
	svc := quizflow.NewService(st, access.NewPolicy(access.LevelB1, access.LevelB2), rec)
	svc.Now = func() time.Time { return fixedNow }
	return svc, st, rec
}

var learner = quizflow.Identity{UID: "u1", Email: "marie@example.com", Name: "Marie"}

func TestSubmitLegacyStudent(t *testing.T) {
	svc, st, rec := newService(t)
	ctx := context.Background()
	require.NoError(t, st.CreateStudent(ctx, "u1", progress.Record{"isActive": true, "quizzesCompleted": 3}))

	out, err := svc.Submit(ctx, learner, "greetings",
		[]byte(`{"answers":[{"questionId":"q1","selectedAnswerId":"a"},{"questionId":"q2","selectedAnswerId":"z"}],"timeSpent":42}`))
	require.NoError(t, err)
	require.NotEmpty(t, out.SubmissionID)
	require.Equal(t, 1, out.Result.EarnedPoints)
	require.Equal(t, 2, out.Result.TotalPoints)
	require.Equal(t, 50, out.Result.Percentage)
	require.True(t, out.Result.Passed)
	require.Equal(t, "Congratulations! You passed the quiz.", out.Message)

	got, err := st.GetStudent(ctx, "u1")
	require.NoError(t, err)
	n, ok := progress.Number(got["quizzesCompleted"])
	require.True(t, ok)
	require.Equal(t, 4.0, n)
	require.Equal(t, store.Timestamp(fixedNow), got["lastUpdated"])

	require.Len(t, rec.got, 1)
	require.Equal(t, events.TypeQuizSubmitted, rec.got[0].Type)
	require.Equal(t, out.SubmissionID, rec.got[0].Key)
}

func TestSubmitNestedStudent(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, st.CreateStudent(ctx, "u1", progress.Record{
		"isActive": true,
		"progress": map[string]any{"quizzesCompleted": 5, "averageScore": 80},
	}))

	_, err := svc.Submit(ctx, learner, "greetings", []byte(`{"answers":[]}`))
	require.NoError(t, err)

	got, err := st.GetStudent(ctx, "u1")
	require.NoError(t, err)
	nested, ok := got["progress"].(map[string]any)
	require.True(t, ok)
	n, _ := progress.Number(nested["quizzesCompleted"])
	require.Equal(t, 6.0, n)
	avg, _ := progress.Number(nested["averageScore"])
	require.Equal(t, 80.0, avg)
	_, flat := got["quizzesCompleted"]
	require.False(t, flat)
}

func TestSubmitMissingStudentCreatesRecord(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, learner, "greetings", []byte(`{"answers":[{"questionId":"q1","selectedAnswerId":"a"}]}`))
	require.NoError(t, err)

	got, err := st.GetStudent(ctx, "u1")
	require.NoError(t, err)
	n, _ := progress.Number(got["quizzesCompleted"])
	require.Equal(t, 1.0, n)
	require.Equal(t, "Marie", got["name"])
}

func TestSubmitErrors(t *testing.T) {
	svc, st, rec := newService(t)
	ctx := context.Background()

	t.Run("invalid payload", func(t *testing.T) {
		_, err := svc.Submit(ctx, learner, "greetings", []byte(`{"answers":"nope"}`))
		require.ErrorIs(t, err, grading.ErrInvalidSubmission)
	})
	t.Run("unknown quiz", func(t *testing.T) {
		_, err := svc.Submit(ctx, learner, "nope", []byte(`{"answers":[]}`))
		require.ErrorIs(t, err, store.ErrNotFound)
	})
	t.Run("gated level", func(t *testing.T) {
		_, err := svc.Submit(ctx, learner, "subjonctif", []byte(`{"answers":[]}`))
		var ae *quizflow.AccessError
		require.True(t, errors.As(err, &ae))
		require.Equal(t, access.ReasonSubscriptionRequired, ae.Decision.Reason)
		require.Equal(t, access.LevelB1, ae.Level)
	})
	t.Run("inactive account", func(t *testing.T) {
		require.NoError(t, st.CreateStudent(ctx, "u2", progress.Record{"isActive": false, "hasSubscription": true}))
		_, err := svc.Submit(ctx, quizflow.Identity{UID: "u2"}, "greetings", []byte(`{"answers":[]}`))
		var ae *quizflow.AccessError
		require.True(t, errors.As(err, &ae))
		require.Equal(t, access.ReasonInactive, ae.Decision.Reason)
	})

	require.Empty(t, rec.got)
	_, err := st.GetStudent(ctx, "u1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubscriberCanSubmitGatedQuiz(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, st.CreateStudent(ctx, "u1", progress.Record{"isActive": true, "hasSubscription": true}))

	out, err := svc.Submit(ctx, learner, "subjonctif", []byte(`{"answers":[{"questionId":"q1","selectedAnswerId":"x"}]}`))
	require.NoError(t, err)
	require.Equal(t, 100, out.Result.Percentage)
}

func TestGetQuiz(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	q, status, err := svc.GetQuiz(ctx, learner, "greetings")
	require.NoError(t, err)
	require.True(t, status.IsActive)
	require.False(t, status.CanAccessPremium)
	require.Len(t, q.Questions, 2)
	for _, question := range q.Questions {
		require.Empty(t, question.CorrectAnswerID)
		require.Empty(t, question.Explanation)
	}

	// first open creates the student document
	rec, err := st.GetStudent(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "marie@example.com", rec["email"])

	_, _, err = svc.GetQuiz(ctx, learner, "draft")
	require.ErrorIs(t, err, quizflow.ErrUnavailable)

	_, _, err = svc.GetQuiz(ctx, learner, "subjonctif")
	var ae *quizflow.AccessError
	require.True(t, errors.As(err, &ae))
}

func TestListCoursesMasksGatedContent(t *testing.T) {
	svc, _, _ := newService(t)

	courses, status, err := svc.ListCourses(context.Background(), learner, "")
	require.NoError(t, err)
	require.True(t, status.IsActive)
	require.Len(t, courses, 2)

	require.Equal(t, "c-a1", courses[0].ID)
	require.True(t, courses[0].CanAccess)
	require.Equal(t, "Bonjour!", courses[0].Content.Text)
	require.Equal(t, 1, courses[0].QuizCount)

	require.Equal(t, "c-b1", courses[1].ID)
	require.True(t, courses[1].RequiresSubscription)
	require.False(t, courses[1].CanAccess)
	require.Equal(t, "Premium content requires subscription.", courses[1].Content.Text)
}

func TestListQuizzes(t *testing.T) {
	svc, _, _ := newService(t)

	quizzes, _, err := svc.ListQuizzes(context.Background(), learner, "", "")
	require.NoError(t, err)
	require.Len(t, quizzes, 2)
	for _, q := range quizzes {
		switch q.ID {
		case "greetings":
			require.True(t, q.CanAccess)
			require.Len(t, q.Questions, 2)
			require.Empty(t, q.Questions[0].CorrectAnswerID)
		case "subjonctif":
			require.False(t, q.CanAccess)
			require.Empty(t, q.Questions)
		default:
			t.Fatalf("unexpected quiz %q", q.ID)
		}
	}

	byCourse, _, err := svc.ListQuizzes(context.Background(), learner, "c-b1", "")
	require.NoError(t, err)
	require.Len(t, byCourse, 1)
}

// deactivateOnSave turns the account off between the access check and the
// progress update.
type deactivateOnSave struct{ *sqlstore.SQLStore }

func (d deactivateOnSave) SaveSubmission(ctx context.Context, sub store.SubmissionRecord) (string, error) {
	_, err := d.UpdateStudent(ctx, sub.StudentID, func(p progress.Record) (progress.Record, error) {
		p["isActive"] = false
		return p, nil
	})
	if err != nil {
		return "", err
	}
	return d.SQLStore.SaveSubmission(ctx, sub)
}

func TestSubmitRechecksAccessWhenUpdating(t *testing.T) {
	svc, st, rec := newService(t)
	ctx := context.Background()
	require.NoError(t, st.CreateStudent(ctx, "u1", progress.Record{"isActive": true, "quizzesCompleted": 3}))
	svc.Store = deactivateOnSave{st}

	_, err := svc.Submit(ctx, learner, "greetings", []byte(`{"answers":[{"questionId":"q1","selectedAnswerId":"a"}]}`))
	var ae *quizflow.AccessError
	require.True(t, errors.As(err, &ae))
	require.Equal(t, access.ReasonInactive, ae.Decision.Reason)

	got, err := st.GetStudent(ctx, "u1")
	require.NoError(t, err)
	n, _ := progress.Number(got["quizzesCompleted"])
	require.Equal(t, float64(3), n)
	require.Empty(t, rec.got)
}
