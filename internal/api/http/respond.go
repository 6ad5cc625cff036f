package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/mindengage-french/internal/access"
	"github.com/mind-engage/mindengage-french/internal/grading"
	"github.com/mind-engage/mindengage-french/internal/quizflow"
	"github.com/mind-engage/mindengage-french/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]any{"error": msg})
}

// writeFlowError maps quizflow errors to status codes. fallback is the
// message used for unexpected failures, which are logged.
func writeFlowError(w http.ResponseWriter, err error, fallback string) {
	var ae *quizflow.AccessError
	switch {
	case errors.Is(err, grading.ErrInvalidSubmission):
		respondError(w, http.StatusBadRequest, "Invalid submission data")
	case errors.As(err, &ae) && ae.Decision.Reason == access.ReasonInactive:
		respondError(w, http.StatusForbidden, "Account is inactive. Please contact support.")
	case errors.As(err, &ae):
		respondJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":                "Subscription required",
			"message":              "This quiz requires a premium subscription to access.",
			"requiredSubscription": true,
			"quizLevel":            ae.Level,
		})
	case errors.Is(err, quizflow.ErrUnavailable):
		respondError(w, http.StatusForbidden, "Quiz is not available")
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Quiz not found")
	default:
		log.Printf("%s: %v", fallback, err)
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
