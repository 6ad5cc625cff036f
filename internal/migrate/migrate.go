// Package migrate brings stored student documents up to the current layout:
// access flags present, CEFR level names, the nested progress object, and
// both timestamps.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mind-engage/mindengage-french/internal/access"
	"github.com/mind-engage/mindengage-french/internal/progress"
	"github.com/mind-engage/mindengage-french/internal/store"
)

var legacyLevels = map[string]access.Level{
	"beginner":     access.LevelA1,
	"intermediate": access.LevelB1,
	"advanced":     access.LevelB2,
}

// Plan returns the migrated form of rec and whether anything changed. rec is
// not modified.
//
// A flat quizzesCompleted counter with no progress object is moved into a new
// progress object, so the record resolves as progress.Nested afterwards.
func Plan(rec progress.Record, now time.Time) (progress.Record, bool) {
	next := progress.Clone(rec)
	changed := false
	setDefault := func(k string, v any) {
		if _, ok := rec[k]; !ok {
			next[k] = v
			changed = true
		}
	}

	setDefault("hasSubscription", false)
	setDefault("isActive", true)

	level, _ := rec["level"].(string)
	if l, ok := legacyLevels[level]; ok {
		level = string(l)
		next["level"] = level
		changed = true
	}

	if n, ok := progress.Number(rec[progress.FieldQuizzesCompleted]); ok && rec[progress.FieldProgress] == nil {
		current := level
		if current == "" {
			current = string(access.LevelA1)
		}
		next[progress.FieldProgress] = map[string]any{
			"coursesCompleted":             0,
			progress.FieldQuizzesCompleted: n,
			"currentLevel":                 current,
			progress.FieldTotalPoints:      0,
			"completedCourses":             []any{},
			"badges":                       []any{},
		}
		delete(next, progress.FieldQuizzesCompleted)
		changed = true
	}

	if empty(rec["createdAt"]) {
		next["createdAt"] = store.Timestamp(now)
		changed = true
	}
	if empty(rec["lastUpdated"]) {
		next["lastUpdated"] = store.Timestamp(now)
		changed = true
	}
	return next, changed
}

func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

type Report struct {
	TotalStudents    int      `json:"totalStudents"`
	MigratedStudents int      `json:"migratedStudents"`
	Failed           []string `json:"failed,omitempty"`
}

func (r Report) Message() string {
	return fmt.Sprintf("Successfully migrated %d student records", r.MigratedStudents)
}

var errGone = errors.New("student removed")

// Run migrates every student. Each record is re-planned inside
// StudentStore.UpdateStudent so concurrent quiz submissions are not lost.
// A failure on one student is logged and recorded in the report; only a
// failure to list students aborts the run.
func Run(ctx context.Context, st store.StudentStore, now time.Time) (Report, error) {
	ids, err := st.ListStudentIDs(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list students: %w", err)
	}
	rep := Report{TotalStudents: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		migrated := false
		_, err := st.UpdateStudent(ctx, id, func(prior progress.Record) (progress.Record, error) {
			if len(prior) == 0 {
				return nil, errGone
			}
			next, changed := Plan(prior, now)
			migrated = changed
			return next, nil
		})
		switch {
		case errors.Is(err, errGone):
			continue
		case err != nil:
			log.Printf("migrate student %s: %v", id, err)
			rep.Failed = append(rep.Failed, id)
			continue
		}
		if migrated {
			rep.MigratedStudents++
		}
	}
	return rep, nil
}
