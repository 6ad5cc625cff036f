package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	authmw "github.com/mind-engage/mindengage-french/internal/auth/middleware"
	"github.com/mind-engage/mindengage-french/internal/quizflow"
	"github.com/mind-engage/mindengage-french/internal/rbac"
	"github.com/mind-engage/mindengage-french/internal/storage"
)

type Deps struct {
	Quizzes *quizflow.Service
	Auth    *authmw.AuthService
	Blobs   storage.BlobStore
	Session authmw.SessionConfig

	EnableLocalAuth bool
	CORSOrigins     []string
	// Ready reports whether backing stores are reachable; nil means always ready.
	Ready func(r *http.Request) error
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/auth", func(ar chi.Router) {
		// Local login stands in for the identity provider in dev/offline setups.
		if d.EnableLocalAuth {
			ar.Post("/login", authmw.LoginHandler(d.Auth))
		}
		ar.Post("/admin/login", authmw.AdminLoginHandler(d.Auth, d.Session))
		ar.Post("/logout", authmw.LogoutHandler(d.Session.Secure))
		ar.Get("/verify", authmw.VerifyHandler(d.Auth))
	})

	// Learner API (ID token -> role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))

		pr.With(rbac.Require("course:view")).
			Get("/student/courses", ListCoursesHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:view")).
			Get("/student/quizzes", ListQuizzesHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:view")).
			Get("/student/quizzes/{quizID}", GetQuizHandler(d.Quizzes))
		pr.With(rbac.Require("quiz:submit")).
			Post("/student/quizzes/{quizID}/submit", SubmitQuizHandler(d.Quizzes))

		if d.Blobs != nil {
			pr.With(rbac.Require("media:view")).
				Get("/media/*", MediaHandler(d.Blobs))
		}
	})

	// Admin API (session cookie)
	r.Group(func(pr chi.Router) {
		pr.Use(authmw.SessionMiddleware(d.Auth))

		pr.With(rbac.Require("students:migrate")).
			Post("/admin/migrate-students", MigrateStudentsHandler(d.Quizzes.Store, d.Quizzes.Now))
		if d.Blobs != nil {
			pr.With(rbac.RequireAny("media:upload", "course:edit")).
				Post("/admin/media/courses/{courseID}", UploadCourseMediaHandler(d.Blobs))
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r); err != nil {
				http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
	})
	return r
}
