package http

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-french/internal/auth/middleware"
	"github.com/mind-engage/mindengage-french/internal/quizflow"
)

// maxSubmissionBytes caps POST /student/quizzes/{id}/submit bodies.
const maxSubmissionBytes = 1 << 20

func identity(r *http.Request) quizflow.Identity {
	id := quizflow.Identity{UID: authmw.SubjectFromContext(r.Context())}
	if c := authmw.ClaimsFromContext(r.Context()); c != nil {
		id.Email, id.Name = c.Email, c.Name
	}
	return id
}

// GET /student/courses?level=A1
func ListCoursesHandler(svc *quizflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courses, status, err := svc.ListCourses(r.Context(), identity(r), r.URL.Query().Get("level"))
		if err != nil {
			writeFlowError(w, err, "Failed to fetch courses")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"courses": courses, "studentStatus": status})
	}
}

// GET /student/quizzes?courseId=...&level=...
func ListQuizzesHandler(svc *quizflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		quizzes, status, err := svc.ListQuizzes(r.Context(), identity(r), q.Get("courseId"), q.Get("level"))
		if err != nil {
			writeFlowError(w, err, "Failed to fetch quizzes")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes, "studentStatus": status})
	}
}

// GET /student/quizzes/{quizID}
func GetQuizHandler(svc *quizflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quiz, status, err := svc.GetQuiz(r.Context(), identity(r), chi.URLParam(r, "quizID"))
		if err != nil {
			writeFlowError(w, err, "Failed to fetch quiz")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"quiz":          quiz,
			"accessGranted": true,
			"studentStatus": map[string]bool{"hasSubscription": status.HasSubscription, "isActive": status.IsActive},
		})
	}
}

// POST /student/quizzes/{quizID}/submit
func SubmitQuizHandler(svc *quizflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid submission data")
			return
		}
		out, err := svc.Submit(r.Context(), identity(r), chi.URLParam(r, "quizID"), raw)
		if err != nil {
			writeFlowError(w, err, "Failed to submit quiz")
			return
		}
		respondJSON(w, http.StatusOK, out)
	}
}
