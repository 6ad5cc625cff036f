// Package sqlstore keeps courses, quizzes, and student documents in SQLite or
// Postgres. Documents are stored as JSON text next to the few columns that
// queries filter and sort on.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-french/internal/db"
	"github.com/mind-engage/mindengage-french/internal/grading"
	"github.com/mind-engage/mindengage-french/internal/progress"
	"github.com/mind-engage/mindengage-french/internal/store"
)

type SQLStore struct {
	db     *sql.DB
	driver db.Driver
}

var _ store.Store = (*SQLStore)(nil)

func New(dbh *sql.DB, driver db.Driver) *SQLStore {
	return &SQLStore{db: dbh, driver: driver}
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close(_ context.Context) error { return s.db.Close() }

// ---- courses ----

func (s *SQLStore) PutCourse(ctx context.Context, c store.Course) error {
	if c.ID == "" {
		return errors.New("course id required")
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO courses (id,level,is_published,ord,doc,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET level=EXCLUDED.level, is_published=EXCLUDED.is_published,
		  ord=EXCLUDED.ord, doc=EXCLUDED.doc, updated_at=EXCLUDED.updated_at`,
		c.ID, string(c.Level), c.IsPublished, c.Order, string(doc), time.Now().Unix())
	return err
}

func (s *SQLStore) GetCourse(ctx context.Context, id string) (store.Course, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM courses WHERE id=$1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Course{}, fmt.Errorf("course %q: %w", id, store.ErrNotFound)
		}
		return store.Course{}, err
	}
	var c store.Course
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return store.Course{}, err
	}
	return c, nil
}

func (s *SQLStore) ListCourses(ctx context.Context, f store.CourseFilter) ([]store.Course, error) {
	q := `SELECT doc FROM courses WHERE 1=1`
	args := []any{}
	if f.PublishedOnly {
		args = append(args, true)
		q += fmt.Sprintf(" AND is_published=$%d", len(args))
	}
	if f.Level != "" {
		args = append(args, f.Level)
		q += fmt.Sprintf(" AND level=$%d", len(args))
	}
	q += ` ORDER BY ord, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []store.Course{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var c store.Course
		if err := json.Unmarshal([]byte(doc), &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---- quizzes ----

func (s *SQLStore) PutQuiz(ctx context.Context, q grading.Quiz) error {
	if q.ID == "" || q.CourseID == "" {
		return errors.New("quiz id and course id required")
	}
	doc, err := json.Marshal(q)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (course_id,id,level,is_published,ord,title,doc,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (course_id,id) DO UPDATE SET level=EXCLUDED.level, is_published=EXCLUDED.is_published,
		  ord=EXCLUDED.ord, title=EXCLUDED.title, doc=EXCLUDED.doc, updated_at=EXCLUDED.updated_at`,
		q.CourseID, q.ID, string(q.Level), q.IsPublished, q.Order, q.Title, string(doc), time.Now().Unix())
	return err
}

func (s *SQLStore) ListQuizzes(ctx context.Context, f store.QuizFilter) ([]grading.Quiz, error) {
	q := `SELECT qz.course_id, qz.doc FROM quizzes qz JOIN courses c ON c.id = qz.course_id WHERE 1=1`
	args := []any{}
	if f.CourseID != "" {
		args = append(args, f.CourseID)
		q += fmt.Sprintf(" AND qz.course_id=$%d", len(args))
	}
	if f.PublishedOnly {
		args = append(args, true)
		q += fmt.Sprintf(" AND qz.is_published=$%d", len(args))
	}
	if f.Level != "" {
		args = append(args, f.Level)
		q += fmt.Sprintf(" AND qz.level=$%d", len(args))
	}
	q += ` ORDER BY c.ord, c.id, qz.ord, qz.id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []grading.Quiz{}
	for rows.Next() {
		var courseID, doc string
		if err := rows.Scan(&courseID, &doc); err != nil {
			return nil, err
		}
		qz, err := decodeQuiz(courseID, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, qz)
	}
	return out, rows.Err()
}

// FindQuiz searches courses in id order and returns the first match.
func (s *SQLStore) FindQuiz(ctx context.Context, quizID string) (grading.Quiz, error) {
	var courseID, doc string
	err := s.db.QueryRowContext(ctx, `SELECT qz.course_id, qz.doc FROM quizzes qz
		JOIN courses c ON c.id = qz.course_id
		WHERE qz.id=$1 ORDER BY c.id LIMIT 1`, quizID).Scan(&courseID, &doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return grading.Quiz{}, fmt.Errorf("quiz %q: %w", quizID, store.ErrNotFound)
		}
		return grading.Quiz{}, err
	}
	return decodeQuiz(courseID, doc)
}

func (s *SQLStore) CountQuizzes(ctx context.Context, courseID string, publishedOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM quizzes WHERE course_id=$1`
	args := []any{courseID}
	if publishedOnly {
		q += ` AND is_published=$2`
		args = append(args, true)
	}
	var n int
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

func decodeQuiz(courseID, doc string) (grading.Quiz, error) {
	var q grading.Quiz
	if err := json.Unmarshal([]byte(doc), &q); err != nil {
		return grading.Quiz{}, err
	}
	q.CourseID = courseID
	return q, nil
}

// ---- students ----

func (s *SQLStore) GetStudent(ctx context.Context, uid string) (progress.Record, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM students WHERE id=$1`, uid).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("student %q: %w", uid, store.ErrNotFound)
		}
		return nil, err
	}
	return decodeRecord(doc)
}

func (s *SQLStore) CreateStudent(ctx context.Context, uid string, rec progress.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO students (id,doc,updated_at) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO NOTHING`, uid, string(doc), time.Now().Unix())
	return err
}

// UpdateStudent runs fn inside a transaction. On Postgres the row is locked
// with FOR UPDATE; SQLite serializes writers on its own.
func (s *SQLStore) UpdateStudent(ctx context.Context, uid string, fn store.UpdateFunc) (progress.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	q := `SELECT doc FROM students WHERE id=$1`
	if s.driver == db.DriverPostgres {
		q += ` FOR UPDATE`
	}
	prior := progress.Record{}
	var doc string
	switch err := tx.QueryRowContext(ctx, q, uid).Scan(&doc); {
	case err == nil:
		if prior, err = decodeRecord(doc); err != nil {
			return nil, err
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, err
	}

	next, err := fn(prior)
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(next)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO students (id,doc,updated_at) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET doc=EXCLUDED.doc, updated_at=EXCLUDED.updated_at`,
		uid, string(buf), time.Now().Unix()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *SQLStore) ListStudentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM students ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveSubmission(ctx context.Context, sub store.SubmissionRecord) (string, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	doc, err := json.Marshal(sub)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quiz_submissions (id,quiz_id,course_id,student_id,doc,submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		sub.ID, sub.QuizID, sub.CourseID, sub.StudentID, string(doc), sub.SubmittedAt.Unix())
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

func decodeRecord(doc string) (progress.Record, error) {
	rec := progress.Record{}
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
