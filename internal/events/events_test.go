package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-french/internal/db"
	"github.com/mind-engage/mindengage-french/internal/events"
)

type recorder struct {
	got []events.Event
	err error
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.got = append(r.got, e)
	return r.err
}

func TestNewEvent(t *testing.T) {
	at := time.Unix(1700000000, 0)
	e, err := events.New(events.TypeQuizSubmitted, "sub-1", events.QuizSubmitted{QuizID: "q", Passed: true}, at)
	require.NoError(t, err)
	require.NotEmpty(t, e.ID)
	require.Equal(t, "sub-1", e.Key)

	var payload events.QuizSubmitted
	require.NoError(t, json.Unmarshal(e.Data, &payload))
	require.True(t, payload.Passed)
}

func TestMultiPublishesToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a, b := &recorder{}, &recorder{err: boom}
	err := events.Multi{a, b, events.Nop{}}.Publish(context.Background(), events.Event{Type: "x"})
	require.ErrorIs(t, err, boom)
	require.Len(t, a.got, 1)
	require.Len(t, b.got, 1)
}

func TestSQLLogAppends(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	defer dbh.Close()

	e, err := events.New(events.TypeQuizSubmitted, "sub-1", map[string]int{"score": 3}, time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.NoError(t, events.NewSQLLog(dbh, "").Publish(ctx, e))

	var typ, key, data, site string
	var at int64
	require.NoError(t, dbh.QueryRow(`SELECT site_id, typ, key, data, created_at FROM event_log`).Scan(&site, &typ, &key, &data, &at))
	require.Equal(t, "local", site)
	require.Equal(t, events.TypeQuizSubmitted, typ)
	require.Equal(t, "sub-1", key)
	require.JSONEq(t, `{"score":3}`, data)
	require.Equal(t, int64(1700000000), at)
}
