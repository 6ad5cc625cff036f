package http

import (
	"net/http"
	"time"

	"github.com/mind-engage/mindengage-french/internal/migrate"
	"github.com/mind-engage/mindengage-french/internal/store"
)

// POST /admin/migrate-students
func MigrateStudentsHandler(st store.StudentStore, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := migrate.Run(r.Context(), st, now())
		if err != nil {
			writeFlowError(w, err, "Failed to migrate students")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"success":          true,
			"message":          rep.Message(),
			"totalStudents":    rep.TotalStudents,
			"migratedStudents": rep.MigratedStudents,
			"failed":           rep.Failed,
		})
	}
}
