package grading

import "math"

// GradedAnswer is one line of the per-question breakdown.
type GradedAnswer struct {
	QuestionID       string `json:"questionId" bson:"questionId"`
	SelectedAnswerID string `json:"selectedAnswerId" bson:"selectedAnswerId"`
	IsCorrect        bool   `json:"isCorrect" bson:"isCorrect"`
	PointsEarned     int    `json:"pointsEarned" bson:"pointsEarned"`
}

// Result is the outcome of grading one submission against one quiz.
type Result struct {
	EarnedPoints int            `json:"score"`
	TotalPoints  int            `json:"totalPoints"`
	Percentage   int            `json:"percentage"`
	Passed       bool           `json:"passed"`
	Answers      []GradedAnswer `json:"answers"`
}

const (
	passedMessage = "Congratulations! You passed the quiz."
	failedMessage = "Keep practicing! You can retake the quiz."
)

// Message is the learner-facing summary line for r.
func (r Result) Message() string {
	if r.Passed {
		return passedMessage
	}
	return failedMessage
}

// Grade scores s against q. Questions are walked in quiz order; for each one
// the first submitted entry with the same question id is used. Unanswered
// questions still count toward the total but get no breakdown line, and
// entries for unknown questions are ignored. q is never modified.
func Grade(q Quiz, s Submission) Result {
	res := Result{Answers: []GradedAnswer{}}
	for _, question := range q.Questions {
		value := question.Value()
		res.TotalPoints += value

		sa, ok := findAnswer(s.Answers, question.ID)
		if !ok {
			continue
		}
		ga := GradedAnswer{
			QuestionID:       question.ID,
			SelectedAnswerID: sa.SelectedAnswerID,
			IsCorrect:        sa.SelectedAnswerID == question.CorrectAnswerID,
		}
		if ga.IsCorrect {
			ga.PointsEarned = value
		}
		res.EarnedPoints += ga.PointsEarned
		res.Answers = append(res.Answers, ga)
	}

	res.Percentage = Percentage(res.EarnedPoints, res.TotalPoints)
	res.Passed = float64(res.Percentage) >= q.PassingScore
	return res
}

// Percentage rounds earned/total*100 half up; it is 0 when total is 0.
func Percentage(earned, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(earned)/float64(total)*100 + 0.5))
}

func findAnswer(answers []SubmittedAnswer, questionID string) (SubmittedAnswer, bool) {
	if questionID == "" {
		return SubmittedAnswer{}, false
	}
	for _, a := range answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return SubmittedAnswer{}, false
}
