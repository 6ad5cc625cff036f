package store_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-french/internal/db"
	"github.com/mind-engage/mindengage-french/internal/store"
	"github.com/mind-engage/mindengage-french/internal/store/sqlstore"
)

func TestSeedContentFile(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	st := sqlstore.New(dbh, db.DriverSQLite)
	defer st.Close(ctx)

	f, err := os.Open("testdata/content.json")
	require.NoError(t, err)
	defer f.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b, err := store.Seed(ctx, st, f, now)
	require.NoError(t, err)
	require.Len(t, b.Courses, 2)
	require.Len(t, b.Quizzes, 2)

	q, err := st.FindQuiz(ctx, "salutations-1")
	require.NoError(t, err)
	require.Equal(t, "c-a1-salutations", q.CourseID)
	require.Equal(t, 2, q.Questions[1].Value())
	require.True(t, q.CreatedAt.Equal(now))

	n, err := st.CountQuizzes(ctx, "c-b1-subjonctif", true)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestSeedRejectsBadBundles(t *testing.T) {
	cases := map[string]string{
		"orphan quiz":   `{"courses":[],"quizzes":[{"id":"q","courseId":"nope"}]}`,
		"missing id":    `{"courses":[{"title":"x"}]}`,
		"unknown field": `{"courses":[],"lessons":[]}`,
		"not json":      `courses:`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := store.Seed(context.Background(), nil, strings.NewReader(body), time.Now())
			require.Error(t, err)
		})
	}
}
