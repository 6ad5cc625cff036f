package grading

import (
	"time"

	"github.com/mind-engage/mindengage-french/internal/access"
)

type Answer struct {
	ID   string `json:"id" bson:"id"`
	Text string `json:"text" bson:"text"`
}

type Question struct {
	ID              string   `json:"id" bson:"id"`
	Type            string   `json:"type,omitempty" bson:"type,omitempty"` // multiple-choice | text | audio
	Prompt          string   `json:"question,omitempty" bson:"question,omitempty"`
	Answers         []Answer `json:"answers,omitempty" bson:"answers,omitempty"`
	CorrectAnswerID string   `json:"correctAnswerId,omitempty" bson:"correctAnswerId,omitempty"`
	// Points is nil when the question carries no value; it then counts as 1.
	Points      *int   `json:"points,omitempty" bson:"points,omitempty"`
	Explanation string `json:"explanation,omitempty" bson:"explanation,omitempty"`
	AudioURL    string `json:"audioUrl,omitempty" bson:"audioUrl,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
}

// Value is the number of points the question is worth when graded.
// An explicit zero or negative value is used as given.
func (q Question) Value() int {
	if q.Points == nil {
		return 1
	}
	return *q.Points
}

// Points returns a pointer to n, for building questions in code.
func Points(n int) *int { return &n }

type Quiz struct {
	ID           string       `json:"id" bson:"id"`
	CourseID     string       `json:"courseId" bson:"courseId"`
	Title        string       `json:"title" bson:"title"`
	Description  string       `json:"description,omitempty" bson:"description,omitempty"`
	Level        access.Level `json:"level" bson:"level"`
	Questions    []Question   `json:"questions" bson:"questions"`
	TimeLimit    int          `json:"timeLimit,omitempty" bson:"timeLimit,omitempty"` // minutes
	PassingScore float64      `json:"passingScore" bson:"passingScore"`               // percentage
	IsActive     bool         `json:"isActive" bson:"isActive"`
	IsPublished  bool         `json:"isPublished" bson:"isPublished"`
	Order        int          `json:"order" bson:"order"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updatedAt"`
	CreatedBy    string       `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
}

// Redact returns a copy of q safe to show a learner: answer keys and
// explanations are removed. q itself is left untouched.
func Redact(q Quiz) Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.CorrectAnswerID = ""
		qq.Explanation = ""
		qq.Answers = append([]Answer(nil), qq.Answers...)
		out.Questions[i] = qq
	}
	return out
}

// HideQuestions returns a copy of q with no questions, for listings shown to
// learners who cannot open the quiz.
func HideQuestions(q Quiz) Quiz {
	out := q
	out.Questions = []Question{}
	return out
}
