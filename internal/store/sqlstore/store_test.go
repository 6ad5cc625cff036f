package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-french/internal/access"
	"github.com/mind-engage/mindengage-french/internal/db"
	"github.com/mind-engage/mindengage-french/internal/grading"
	"github.com/mind-engage/mindengage-french/internal/progress"
	"github.com/mind-engage/mindengage-french/internal/store"
	"github.com/mind-engage/mindengage-french/internal/store/sqlstore"
)

func openStore(t *testing.T) *sqlstore.SQLStore {
	s, _ := openStoreDB(t)
	return s
}

func openStoreDB(t *testing.T) (*sqlstore.SQLStore, *sql.DB) {
	t.Helper()
	ctx := context.Background()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	require.NoError(t, err)
	s := sqlstore.New(dbh, db.DriverSQLite)
	t.Cleanup(func() { _ = s.Close(ctx) })
	return s, dbh
}

func seedContent(t *testing.T, s store.ContentStore) {
	t.Helper()
	ctx := context.Background()
	courses := []store.Course{
		{ID: "c-b1", Title: "Intermédiaire", Level: access.LevelB1, IsPublished: true, Order: 2},
		{ID: "c-a1", Title: "Débutant", Level: access.LevelA1, IsPublished: true, Order: 1},
		{ID: "c-draft", Title: "Brouillon", Level: access.LevelA1, IsPublished: false, Order: 0},
	}
	for _, c := range courses {
		require.NoError(t, s.PutCourse(ctx, c))
	}
	quizzes := []grading.Quiz{
		{ID: "greetings", CourseID: "c-a1", Title: "Bonjour", Level: access.LevelA1, IsPublished: true, Order: 2, PassingScore: 60,
			Questions: []grading.Question{{ID: "q1", CorrectAnswerID: "a1", Points: grading.Points(2)}}},
		{ID: "numbers", CourseID: "c-a1", Title: "Les nombres", Level: access.LevelA1, IsPublished: true, Order: 1},
		{ID: "subjonctif", CourseID: "c-b1", Title: "Le subjonctif", Level: access.LevelB1, IsPublished: true, Order: 1},
		{ID: "wip", CourseID: "c-b1", Title: "Brouillon", Level: access.LevelB1, IsPublished: false, Order: 0},
		// same quiz id under a course that comes first by order
		{ID: "subjonctif", CourseID: "c-draft", Title: "Old copy", Level: access.LevelA1},
	}
	for _, q := range quizzes {
		require.NoError(t, s.PutQuiz(ctx, q))
	}
}

func TestCoursesAndQuizzes(t *testing.T) {
	s := openStore(t)
	seedContent(t, s)
	ctx := context.Background()

	all, err := s.ListCourses(ctx, store.CourseFilter{})
	require.NoError(t, err)
	require.Equal(t, []string{"c-draft", "c-a1", "c-b1"}, courseIDs(all))

	pub, err := s.ListCourses(ctx, store.CourseFilter{PublishedOnly: true, Level: "B1"})
	require.NoError(t, err)
	require.Equal(t, []string{"c-b1"}, courseIDs(pub))

	c, err := s.GetCourse(ctx, "c-a1")
	require.NoError(t, err)
	require.Equal(t, "Débutant", c.Title)

	_, err = s.GetCourse(ctx, "nope")
	require.True(t, errors.Is(err, store.ErrNotFound))

	qs, err := s.ListQuizzes(ctx, store.QuizFilter{PublishedOnly: true})
	require.NoError(t, err)
	require.Equal(t, []string{"numbers", "greetings", "subjonctif"}, quizIDs(qs))
	require.Equal(t, "c-b1", qs[2].CourseID)

	qs, err = s.ListQuizzes(ctx, store.QuizFilter{CourseID: "c-b1"})
	require.NoError(t, err)
	require.Equal(t, []string{"wip", "subjonctif"}, quizIDs(qs))

	n, err := s.CountQuizzes(ctx, "c-b1", true)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = s.CountQuizzes(ctx, "c-b1", false)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestFindQuizAcrossCourses(t *testing.T) {
	s := openStore(t)
	seedContent(t, s)
	ctx := context.Background()

	q, err := s.FindQuiz(ctx, "greetings")
	require.NoError(t, err)
	require.Equal(t, "c-a1", q.CourseID)
	require.Equal(t, 2, q.Questions[0].Value())
	require.Equal(t, "a1", q.Questions[0].CorrectAnswerID)

	q, err = s.FindQuiz(ctx, "subjonctif")
	require.NoError(t, err)
	require.Equal(t, "c-b1", q.CourseID, "courses are searched by id, not by order")

	require.NoError(t, s.PutCourse(ctx, store.Course{ID: "c-0-archive", Title: "Archive", Order: 99}))
	require.NoError(t, s.PutQuiz(ctx, grading.Quiz{ID: "subjonctif", CourseID: "c-0-archive", Title: "Archived"}))
	q, err = s.FindQuiz(ctx, "subjonctif")
	require.NoError(t, err)
	require.Equal(t, "c-0-archive", q.CourseID)

	_, err = s.FindQuiz(ctx, "missing")
	require.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStudentLifecycle(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.GetStudent(ctx, "u1")
	require.True(t, errors.Is(err, store.ErrNotFound))

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateStudent(ctx, "u1", store.NewStudentRecord("ana@example.com", "", now)))
	// second create is a no-op
	require.NoError(t, s.CreateStudent(ctx, "u1", progress.Record{"name": "other"}))

	rec, err := s.GetStudent(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Student", rec["name"])
	require.Equal(t, float64(0), rec["quizzesCompleted"])
	require.Equal(t, access.DefaultState(), store.AccessState(rec))

	next, err := s.UpdateStudent(ctx, "u1", func(prior progress.Record) (progress.Record, error) {
		return progress.Reconcile(prior, grading.Result{EarnedPoints: 3}), nil
	})
	require.NoError(t, err)
	require.Equal(t, float64(1), next["quizzesCompleted"])

	rec, err = s.GetStudent(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(1), rec["quizzesCompleted"])

	ids, err := s.ListStudentIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, ids)
}

func TestUpdateStudentCreatesMissingAndRollsBackOnError(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.UpdateStudent(ctx, "ghost", func(prior progress.Record) (progress.Record, error) {
		require.Empty(t, prior)
		return nil, errors.New("boom")
	})
	require.EqualError(t, err, "boom")
	_, err = s.GetStudent(ctx, "ghost")
	require.True(t, errors.Is(err, store.ErrNotFound))

	_, err = s.UpdateStudent(ctx, "ghost", func(prior progress.Record) (progress.Record, error) {
		return progress.Reconcile(prior, grading.Result{}), nil
	})
	require.NoError(t, err)
	rec, err := s.GetStudent(ctx, "ghost")
	require.NoError(t, err)
	require.Equal(t, float64(1), rec["quizzesCompleted"])
}

func TestConcurrentUpdatesDoNotLoseCounts(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateStudent(ctx, "u1", progress.Record{
		"progress": map[string]any{"quizzesCompleted": 0, "totalPoints": 0},
	}))

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateStudent(ctx, "u1", func(prior progress.Record) (progress.Record, error) {
				return progress.Reconcile(prior, grading.Result{EarnedPoints: 2}), nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rec, err := s.GetStudent(ctx, "u1")
	require.NoError(t, err)
	p := rec["progress"].(map[string]any)
	require.Equal(t, float64(n), p["quizzesCompleted"])
	require.Equal(t, float64(2*n), p["totalPoints"])
}

func TestSaveSubmission(t *testing.T) {
	s, dbh := openStoreDB(t)
	ctx := context.Background()
	id, err := s.SaveSubmission(ctx, store.SubmissionRecord{
		QuizID: "greetings", CourseID: "c-a1", StudentID: "u1",
		Score: 1, TotalPoints: 2, Percentage: 50, SubmittedAt: time.Now(),
	})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	var count int
	require.NoError(t, dbh.QueryRow(`SELECT COUNT(*) FROM quiz_submissions WHERE student_id=$1`, "u1").Scan(&count))
	require.Equal(t, 1, count)
}

func courseIDs(cs []store.Course) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func quizIDs(qs []grading.Quiz) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}
