// Package mongostore keeps the LMS documents in MongoDB.
//
// Quizzes live in their own collection keyed by "<courseId>/<quizId>", which
// mirrors the course -> quizzes hierarchy of the original document layout.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mind-engage/mindengage-french/internal/grading"
	"github.com/mind-engage/mindengage-french/internal/progress"
	"github.com/mind-engage/mindengage-french/internal/store"
)

const (
	revField = "_rev"

	// maxUpdateAttempts bounds the optimistic retry loop in UpdateStudent.
	maxUpdateAttempts = 8
)

type MongoStore struct {
	db          *mongo.Database
	courses     *mongo.Collection
	quizzes     *mongo.Collection
	students    *mongo.Collection
	submissions *mongo.Collection
}

var _ store.Store = (*MongoStore)(nil)

type quizDoc struct {
	Key          string `bson:"_id"`
	grading.Quiz `bson:",inline"`
}

// Connect dials uri and returns a store on database dbName.
func Connect(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s := New(client.Database(dbName))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func New(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:          db,
		courses:     db.Collection("courses"),
		quizzes:     db.Collection("quizzes"),
		students:    db.Collection("students"),
		submissions: db.Collection("quiz_submissions"),
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.quizzes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}},
		{Keys: bson.D{{Key: "courseId", Value: 1}, {Key: "order", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("quiz indexes: %w", err)
	}
	_, err = s.submissions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "submittedAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("submission indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// ---- courses ----

func (s *MongoStore) PutCourse(ctx context.Context, c store.Course) error {
	if c.ID == "" {
		return errors.New("course id required")
	}
	_, err := s.courses.ReplaceOne(ctx, bson.M{"_id": c.ID}, c, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) GetCourse(ctx context.Context, id string) (store.Course, error) {
	var c store.Course
	err := s.courses.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.Course{}, fmt.Errorf("course %q: %w", id, store.ErrNotFound)
		}
		return store.Course{}, err
	}
	return c, nil
}

func (s *MongoStore) ListCourses(ctx context.Context, f store.CourseFilter) ([]store.Course, error) {
	filter := bson.M{}
	if f.PublishedOnly {
		filter["isPublished"] = true
	}
	if f.Level != "" {
		filter["level"] = f.Level
	}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.courses.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []store.Course{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- quizzes ----

func (s *MongoStore) PutQuiz(ctx context.Context, q grading.Quiz) error {
	if q.ID == "" || q.CourseID == "" {
		return errors.New("quiz id and course id required")
	}
	doc := quizDoc{Key: q.CourseID + "/" + q.ID, Quiz: q}
	_, err := s.quizzes.ReplaceOne(ctx, bson.M{"_id": doc.Key}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) ListQuizzes(ctx context.Context, f store.QuizFilter) ([]grading.Quiz, error) {
	filter := bson.M{}
	if f.CourseID != "" {
		filter["courseId"] = f.CourseID
	}
	if f.PublishedOnly {
		filter["isPublished"] = true
	}
	if f.Level != "" {
		filter["level"] = f.Level
	}
	return s.findQuizzes(ctx, filter)
}

// FindQuiz searches courses in id order and returns the first match.
func (s *MongoStore) FindQuiz(ctx context.Context, quizID string) (grading.Quiz, error) {
	qs, err := s.findQuizzes(ctx, bson.M{"id": quizID})
	if err != nil {
		return grading.Quiz{}, err
	}
	if len(qs) == 0 {
		return grading.Quiz{}, fmt.Errorf("quiz %q: %w", quizID, store.ErrNotFound)
	}
	best := qs[0]
	for _, q := range qs[1:] {
		if q.CourseID < best.CourseID {
			best = q
		}
	}
	return best, nil
}

// findQuizzes loads matching quizzes and orders them by their course's
// position, then by quiz order. Quizzes whose course is gone are dropped.
func (s *MongoStore) findQuizzes(ctx context.Context, filter bson.M) ([]grading.Quiz, error) {
	cur, err := s.quizzes.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var docs []quizDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []grading.Quiz{}, nil
	}
	courses, err := s.ListCourses(ctx, store.CourseFilter{})
	if err != nil {
		return nil, err
	}
	rank := make(map[string]int, len(courses))
	for i, c := range courses {
		rank[c.ID] = i
	}

	out := make([]grading.Quiz, 0, len(docs))
	for _, d := range docs {
		if _, ok := rank[d.CourseID]; ok {
			out = append(out, d.Quiz)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if rank[a.CourseID] != rank[b.CourseID] {
			return rank[a.CourseID] < rank[b.CourseID]
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *MongoStore) CountQuizzes(ctx context.Context, courseID string, publishedOnly bool) (int, error) {
	filter := bson.M{"courseId": courseID}
	if publishedOnly {
		filter["isPublished"] = true
	}
	n, err := s.quizzes.CountDocuments(ctx, filter)
	return int(n), err
}

// ---- students ----

func (s *MongoStore) GetStudent(ctx context.Context, uid string) (progress.Record, error) {
	var raw bson.M
	err := s.students.FindOne(ctx, bson.M{"_id": uid}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("student %q: %w", uid, store.ErrNotFound)
		}
		return nil, err
	}
	rec, _, _ := toRecord(raw)
	return rec, nil
}

func (s *MongoStore) CreateStudent(ctx context.Context, uid string, rec progress.Record) error {
	doc := toDoc(rec)
	doc["_id"] = uid
	doc[revField] = int64(1)
	_, err := s.students.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// UpdateStudent applies fn with optimistic concurrency: the write only lands
// if the document still carries the revision fn was given, otherwise the
// read is retried. After maxUpdateAttempts it gives up with store.ErrConflict.
func (s *MongoStore) UpdateStudent(ctx context.Context, uid string, fn store.UpdateFunc) (progress.Record, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var raw bson.M
		exists := true
		if err := s.students.FindOne(ctx, bson.M{"_id": uid}).Decode(&raw); err != nil {
			if !errors.Is(err, mongo.ErrNoDocuments) {
				return nil, err
			}
			exists = false
			raw = bson.M{}
		}
		prior, rev, hasRev := toRecord(raw)

		next, err := fn(prior)
		if err != nil {
			return nil, err
		}
		doc := toDoc(next)
		doc[revField] = rev + 1

		if !exists {
			doc["_id"] = uid
			if _, err := s.students.InsertOne(ctx, doc); err != nil {
				if mongo.IsDuplicateKeyError(err) {
					continue
				}
				return nil, err
			}
			return next, nil
		}

		filter := bson.M{"_id": uid, revField: rev}
		if !hasRev {
			filter = bson.M{"_id": uid, revField: bson.M{"$exists": false}}
		}
		res, err := s.students.ReplaceOne(ctx, filter, doc)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
	}
	return nil, fmt.Errorf("student %q: %w", uid, store.ErrConflict)
}

func (s *MongoStore) ListStudentIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.students.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out, nil
}

func (s *MongoStore) SaveSubmission(ctx context.Context, sub store.SubmissionRecord) (string, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if _, err := s.submissions.InsertOne(ctx, sub); err != nil {
		return "", err
	}
	return sub.ID, nil
}

// toRecord strips storage fields from raw and reports its revision.
func toRecord(raw bson.M) (progress.Record, int64, bool) {
	rec := make(progress.Record, len(raw))
	for k, v := range raw {
		rec[k] = v
	}
	delete(rec, "_id")
	n, hasRev := progress.Number(rec[revField])
	delete(rec, revField)
	return rec, int64(n), hasRev
}

func toDoc(rec progress.Record) bson.M {
	doc := make(bson.M, len(rec)+2)
	for k, v := range rec {
		doc[k] = v
	}
	delete(doc, "_id")
	return doc
}
