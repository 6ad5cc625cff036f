package grading

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSubmission is returned when a payload does not have the shape
// {"answers": [...], "timeSpent": n}. Nothing is graded in that case.
var ErrInvalidSubmission = errors.New("invalid submission")

type SubmittedAnswer struct {
	QuestionID       string `json:"questionId"`
	SelectedAnswerID string `json:"selectedAnswerId"`
}

type Submission struct {
	Answers   []SubmittedAnswer `json:"answers"`
	TimeSpent int               `json:"timeSpent"` // seconds
}

// ParseSubmission validates and decodes a raw request body. Ids that are not
// strings are kept as empty strings; timeSpent falls back to 0 when missing,
// not a number, or outside the int32 range.
func ParseSubmission(raw []byte) (Submission, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return Submission{}, fmt.Errorf("%w: body must be a JSON object", ErrInvalidSubmission)
	}
	ansRaw, ok := body["answers"]
	if !ok || len(bytes.TrimSpace(ansRaw)) == 0 || bytes.Equal(bytes.TrimSpace(ansRaw), []byte("null")) {
		return Submission{}, fmt.Errorf("%w: answers required", ErrInvalidSubmission)
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(ansRaw, &entries); err != nil {
		return Submission{}, fmt.Errorf("%w: answers must be a list", ErrInvalidSubmission)
	}

	s := Submission{Answers: make([]SubmittedAnswer, 0, len(entries))}
	for i, e := range entries {
		var fields map[string]any
		if err := json.Unmarshal(e, &fields); err != nil || fields == nil {
			return Submission{}, fmt.Errorf("%w: answers[%d] must be an object", ErrInvalidSubmission, i)
		}
		s.Answers = append(s.Answers, SubmittedAnswer{
			QuestionID:       stringField(fields, "questionId"),
			SelectedAnswerID: stringField(fields, "selectedAnswerId"),
		})
	}

	if ts, ok := body["timeSpent"]; ok {
		var n float64
		if err := json.Unmarshal(ts, &n); err == nil && math.Abs(n) <= math.MaxInt32 {
			s.TimeSpent = int(n)
		}
	}
	return s, nil
}

func stringField(m map[string]any, k string) string {
	if s, ok := m[k].(string); ok {
		return s
	}
	return ""
}
