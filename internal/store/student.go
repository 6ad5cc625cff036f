package store

import (
	"time"

	"github.com/mind-engage/mindengage-french/internal/access"
	"github.com/mind-engage/mindengage-french/internal/progress"
)

// AccessState reads the gating flags from a student record. Missing or
// non-boolean flags take the defaults of access.DefaultState.
func AccessState(rec progress.Record) access.State {
	st := access.DefaultState()
	if v, ok := rec["hasSubscription"].(bool); ok {
		st.HasSubscription = v
	}
	if v, ok := rec["isActive"].(bool); ok {
		st.IsActive = v
	}
	return st
}

// NewStudentRecord is the document created the first time a learner opens a quiz.
func NewStudentRecord(email, name string, now time.Time) progress.Record {
	if name == "" {
		name = "Student"
	}
	return progress.Record{
		"email":            email,
		"name":             name,
		"level":            string(access.LevelA1),
		"hasSubscription":  false,
		"isActive":         true,
		"quizzesCompleted": 0,
		"createdAt":        Timestamp(now),
		"lastUpdated":      Timestamp(now),
	}
}

// Timestamp formats t the way student documents store times.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
